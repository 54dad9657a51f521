package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"papervault/internal/auth"
	"papervault/internal/config"
	"papervault/internal/constants"
	"papervault/internal/database"
	"papervault/internal/logger"
	"papervault/internal/server"
	"papervault/internal/storage"
	"papervault/internal/version"
)

func main() {
	// 0. Version flag
	showVersion := flag.Bool("version", false, "print version and exit")
	workDirFlag := flag.String("workdir", "", "working directory (overrides config)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("%s %s\n", constants.AppDisplayName, version.Version)
		os.Exit(0)
	}

	// 1. Initialize logger
	log := logger.NewLogger(constants.DefaultLogLevel)
	log.Info("%s version %s starting", constants.AppDisplayName, version.Version)

	// 2. Load or create config
	log.Info("Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	if *workDirFlag != "" {
		cfg.WorkingDirectory = *workDirFlag
	}
	log.SetLevel(cfg.LogLevel)
	log.Debug("Config directory: %s", config.GetConfigDir())
	cfg.LogEffectiveValues(log)

	if cfg.WorkingDirectory == "" {
		log.Error("Working directory not set — configure working_directory in %s or pass -workdir", config.GetConfigPath())
		os.Exit(1)
	}

	// 3. Initialize working directory (blob and log dirs)
	log.Info("Initializing working directory: %s", cfg.WorkingDirectory)
	if err := config.InitializeWorkingDirectory(cfg.WorkingDirectory); err != nil {
		log.Error("Failed to initialize working directory: %v", err)
		os.Exit(1)
	}

	// Enable file logging now that workdir is available
	if err := log.SetWorkDir(cfg.WorkingDirectory); err != nil {
		log.Warn("Failed to enable file logging: %v", err)
	} else {
		log.Info("File logging enabled in %s", cfg.WorkingDirectory)
	}

	// 4. Open database and apply schema
	dbPath := config.DatabasePath(cfg.WorkingDirectory)
	db, err := database.InitDatabase(dbPath)
	if err != nil {
		log.Error("Failed to open database: %v", err)
		os.Exit(1)
	}
	log.Debug("Database opened at %s", dbPath)

	// 5. Select blob storage backend
	var blobs storage.BlobStore
	switch cfg.Storage.Backend {
	case "minio":
		blobs, err = storage.NewMinioStore(context.Background(), storage.MinioConfig{
			Endpoint:  cfg.Storage.MinioEndpoint,
			AccessKey: cfg.Storage.MinioAccessKey,
			SecretKey: cfg.Storage.MinioSecretKey,
			Bucket:    cfg.Storage.MinioBucket,
			UseSSL:    cfg.Storage.MinioUseSSL,
		}, log)
		if err != nil {
			log.Error("Failed to connect to MinIO: %v", err)
			os.Exit(1)
		}
		log.Info("Storage: minio backend (%s/%s)", cfg.Storage.MinioEndpoint, cfg.Storage.MinioBucket)
	default:
		blobDir := cfg.Storage.Directory
		if blobDir == "" {
			blobDir = config.BlobPath(cfg.WorkingDirectory)
		}
		blobs, err = storage.NewFileStore(blobDir)
		if err != nil {
			log.Error("Failed to initialize blob directory: %v", err)
			os.Exit(1)
		}
		log.Info("Storage: file backend (%s)", blobDir)
	}

	// 6. Bootstrap auth: create super admin if no users exist
	bootstrapResult, err := auth.Bootstrap(auth.NewStore(db), log)
	if err != nil {
		log.Error("Auth bootstrap failed: %v", err)
		os.Exit(1)
	}
	if bootstrapResult != nil {
		fmt.Println("╔══════════════════════════════════════════════════════════════╗")
		fmt.Println("║              INITIAL SUPER ADMIN CREDENTIALS                 ║")
		fmt.Println("║  Save these now — they will NOT be shown again.              ║")
		fmt.Println("╠══════════════════════════════════════════════════════════════╣")
		fmt.Printf("║  Email    : %-48s ║\n", bootstrapResult.Email)
		fmt.Printf("║  Password : %-48s ║\n", bootstrapResult.Password)
		fmt.Println("╚══════════════════════════════════════════════════════════════╝")
		log.Info("Auth: bootstrap complete — super admin account created")
	}

	// 7. Build application and start HTTP server
	app := server.NewApp(cfg, log, db, blobs)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := server.NewServer(app, addr)

	log.Info("Starting %s server on port %d", constants.AppDisplayName, cfg.Port)
	if err := srv.Start(); err != nil {
		log.Error("Server error: %v", err)
		os.Exit(1)
	}
}
