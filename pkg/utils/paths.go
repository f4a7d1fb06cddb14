package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	appDir     = "quire"
	dbFileName = "quire.db"
)

// GetDefaultDBPath returns the per-user location of the quire database.
func GetDefaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return dbFileName
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(homeDir, "AppData", "Roaming", appDir, dbFileName)
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appDir, dbFileName)
	default:
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			return filepath.Join(dataHome, appDir, dbFileName)
		}
		return filepath.Join(homeDir, ".local", "share", appDir, dbFileName)
	}
}

// IsMemoryPath reports whether path names an in-memory SQLite database rather than a file.
func IsMemoryPath(path string) bool {
	return strings.HasPrefix(path, ":memory:") || strings.Contains(path, "mode=memory")
}

// ResolveAndEnsureDBPath expands ~, makes path absolute and creates its parent directory.
// An empty path resolves to GetDefaultDBPath. In-memory paths are returned unchanged.
func ResolveAndEnsureDBPath(path string) (string, error) {
	if IsMemoryPath(path) {
		return path, nil
	}
	if path == "" {
		path = GetDefaultDBPath()
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand '%s': %w", path, err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", path, err)
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory '%s' for database: %w", dir, err)
	}
	return absPath, nil
}
