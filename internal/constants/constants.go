// Package constants defines application-wide constant values
package constants

import (
	"os"
	"time"
)

// HTTP Server Configuration
const (
	// DefaultPort is the default server port
	DefaultPort = "3000"

	// HTTPReadTimeout is the maximum duration for reading the entire request
	HTTPReadTimeout = 30 * time.Second

	// HTTPWriteTimeout is the maximum duration before timing out writes of the response.
	// The catalog endpoints issue one Drive query per GIF, so this is generous.
	HTTPWriteTimeout = 120 * time.Second

	// HTTPIdleTimeout is the maximum amount of time to wait for the next request
	HTTPIdleTimeout = 180 * time.Second

	// ShutdownTimeout is the graceful shutdown timeout
	ShutdownTimeout = 30 * time.Second
)

// Media types and extensions
const (
	// SourceExtension is the extension carried by every source item name
	SourceExtension = ".gif"

	// DerivedExtension replaces SourceExtension in derived artifact names
	DerivedExtension = ".mp4"

	// SourceMimeType is matched (as a substring) when listing source items
	SourceMimeType = "image/gif"

	// DerivedMimeType is the content type of uploaded artifacts
	DerivedMimeType = "video/mp4"
)

// Public Drive URLs
const (
	// DisplayURLFormat renders a GIF through the Drive thumbnail endpoint
	DisplayURLFormat = "https://drive.google.com/thumbnail?id=%s&sz=w1000"

	// DownloadURLFormat is the public download link of a derived artifact
	DownloadURLFormat = "https://drive.google.com/uc?export=download&id=%s"
)

// Sweep Configuration
const (
	// DefaultSweepInitialDelay is the delay before the first auto-conversion sweep
	DefaultSweepInitialDelay = 10 * time.Second

	// DefaultSweepInterval is the interval between auto-conversion sweeps
	DefaultSweepInterval = 1 * time.Minute
)

// Temp Directory Maintenance
const (
	// TempCleanupInitialDelay is the delay before the first janitor run
	TempCleanupInitialDelay = 5 * time.Minute

	// TempCleanupInterval is the interval between janitor runs
	TempCleanupInterval = 1 * time.Hour

	// DefaultTempMaxAge is the age after which leftover run directories are removed
	DefaultTempMaxAge = 24 * time.Hour

	// LockFileName is the advisory lock held on the temp directory
	LockFileName = ".lock"
)

// Video Conversion Configuration
const (
	// FFprobeTimeout is the timeout for ffprobe operations
	FFprobeTimeout = 15 * time.Second

	// ProgressUpdateThrottle is the minimum time between progress updates
	ProgressUpdateThrottle = 500 * time.Millisecond

	// ProgressMaxBeforeCompletion is the maximum progress before marking as complete
	ProgressMaxBeforeCompletion = 99.0

	// QueueSizeMultiplier sizes the default job queue relative to the worker count
	QueueSizeMultiplier = 2
)

// Google Drive API Configuration
const (
	// DriveAPIRequestTimeout is the timeout for standard Drive API requests
	DriveAPIRequestTimeout = 30 * time.Second

	// DriveAPITransferTimeout bounds a single download or upload
	DriveAPITransferTimeout = 20 * time.Minute

	// DriveListPageSize is the page size used when listing folders
	DriveListPageSize = 1000
)

// Client Poll Loop Configuration
const (
	// PollInitialDelay is the wait between triggering a conversion and the first poll
	PollInitialDelay = 2 * time.Second

	// PollInterval is the period between catalog re-fetches
	PollInterval = 3 * time.Second

	// PollMaxAttempts bounds the number of catalog re-fetches
	PollMaxAttempts = 40
)

// File System Configuration
const (
	// DirectoryPermissions is the default permission mode for created directories
	DirectoryPermissions os.FileMode = 0755

	// MaxFilenameLength is the maximum length for sanitized filenames
	MaxFilenameLength = 100
)

// Default Configuration Values
const (
	// DefaultTempDir is the default scratch directory for conversion runs
	DefaultTempDir = "temp"

	// DefaultLogLevel is the default zap level
	DefaultLogLevel = "info"

	// DefaultLogFormat selects console or JSON output based on the terminal
	DefaultLogFormat = "auto"

	// DefaultServerURL is used by the CLI client commands
	DefaultServerURL = "http://localhost:3000"
)
