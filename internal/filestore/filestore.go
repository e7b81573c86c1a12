// Package filestore handles the local scratch space used by conversion runs
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/constants"
)

var (
	filenameSanitizeRegex   = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
	multipleUnderscoreRegex = regexp.MustCompile(`_+`)
)

// EnsureDirectoryExists ensures the specified directory exists
func EnsureDirectoryExists(dirPath string) error {
	if dirPath == "" {
		return fmt.Errorf("empty directory path")
	}
	if err := os.MkdirAll(dirPath, constants.DirectoryPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// SanitizeFilename sanitizes a filename to be safe for file system operations
func SanitizeFilename(fileName string) string {
	if fileName == "" {
		return fallbackFilename()
	}

	baseName := filepath.Base(fileName)
	sanitized := filenameSanitizeRegex.ReplaceAllString(baseName, "_")
	sanitized = multipleUnderscoreRegex.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "._")

	// Limit length
	if len(sanitized) > constants.MaxFilenameLength {
		ext := filepath.Ext(sanitized)
		baseRunes := []rune(strings.TrimSuffix(sanitized, ext))
		maxBaseLen := constants.MaxFilenameLength - len(ext)

		if maxBaseLen < 0 {
			sanitizedRunes := []rune(sanitized)
			maxLen := constants.MaxFilenameLength
			if len(sanitizedRunes) < maxLen {
				maxLen = len(sanitizedRunes)
			}
			sanitized = string(sanitizedRunes[:maxLen])
		} else if len(baseRunes) > maxBaseLen {
			sanitized = string(baseRunes[:maxBaseLen]) + ext
		}
	}

	if sanitized == "" || sanitized == "." || sanitized == ".." {
		return fallbackFilename()
	}
	return sanitized
}

func fallbackFilename() string {
	return fmt.Sprintf("sanitized_fallback_%d", time.Now().UnixNano())
}

// RemoveFiles deletes each path independently. Missing files are ignored and
// other failures are logged, never returned. It reports how many files were removed.
func RemoveFiles(logger *zap.Logger, paths ...string) int {
	removed := 0
	for _, path := range paths {
		if path == "" {
			continue
		}
		err := os.Remove(path)
		switch {
		case err == nil:
			removed++
			logger.Debug("removed temp file", zap.String("path", path))
		case errors.Is(err, fs.ErrNotExist):
		default:
			logger.Warn("failed to remove temp file", zap.String("path", path), zap.Error(err))
		}
	}
	return removed
}

// CleanupOldEntries removes entries of dirPath older than maxAge. Run
// directories are removed recursively; dot-files such as the lock file are kept.
func CleanupOldEntries(logger *zap.Logger, dirPath string, maxAge time.Duration) int {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read directory for cleanup", zap.String("dir", dirPath), zap.Error(err))
		}
		return 0
	}

	now := time.Now()
	removedCount := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logger.Warn("failed to stat entry during cleanup", zap.String("entry", entry.Name()), zap.Error(err))
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}

		entryPath := filepath.Join(dirPath, entry.Name())
		if entry.IsDir() {
			err = os.RemoveAll(entryPath)
		} else {
			err = os.Remove(entryPath)
		}
		if err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove stale entry", zap.String("path", entryPath), zap.Error(err))
		} else if err == nil {
			removedCount++
		}
	}

	if removedCount > 0 {
		logger.Info("removed stale temp entries", zap.String("dir", dirPath), zap.Int("count", removedCount))
	}
	return removedCount
}
