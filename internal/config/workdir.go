package config

import (
	"fmt"
	"os"
	"path/filepath"

	"papervault/internal/constants"
)

func ValidateWorkingDirectory(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist")
	}
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory")
	}

	return nil
}

// InitializeWorkingDirectory creates the blob and log directories under the
// working directory.
func InitializeWorkingDirectory(path string) error {
	if err := ValidateWorkingDirectory(path); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(path, constants.BlobDir), constants.DirPermissions); err != nil {
		return err
	}

	logsBaseDir := filepath.Join(path, constants.LogsDir)
	logSubDirs := []string{
		constants.LogsDirDebug,
		constants.LogsDirInfo,
		constants.LogsDirWarn,
		constants.LogsDirError,
	}
	for _, subDir := range logSubDirs {
		logDir := filepath.Join(logsBaseDir, subDir)
		if err := os.MkdirAll(logDir, constants.DirPermissions); err != nil {
			return fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	return nil
}

// DatabasePath returns the location of the SQLite database under the
// working directory.
func DatabasePath(workDir string) string {
	return filepath.Join(workDir, constants.DatabaseFile)
}

// BlobPath returns the blob directory for the file storage backend.
func BlobPath(workDir string) string {
	return filepath.Join(workDir, constants.BlobDir)
}
