package constants

// Application identity
const (
	AppName        = "papervault"
	AppDisplayName = "PaperVault"
)

// Paths
const (
	ConfigDir    = ".config/papervault"
	ConfigFile   = "config.yaml"
	DatabaseFile = "papervault.db"
	BlobDir      = "blobs"
)

// API
const (
	DefaultPort = 5000
)

// Database pragmas, applied immediately after opening any connection.
var SQLitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Logging
const (
	DefaultLogLevel    = "info"
	LogTimestampFormat = "2006-01-02 15:04:05"
	LogsDir            = "logs"
	LogFileExtension   = ".log"
	LogsDirDebug       = "debug"
	LogsDirInfo        = "info"
	LogsDirWarn        = "warn"
	LogsDirError       = "error"
)

// Shutdown
const (
	ShutdownTimeoutSecs = 10
)

// Pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Stats
const (
	StatsRecentUploads = 5 // papers shown in the recent-uploads section
)
