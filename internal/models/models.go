// Package models contains data structures used across the application
package models

import (
	"time"
)

// Config holds application configuration settings.
type Config struct {
	Port               string
	ServiceAccountKey  string
	ServiceAccountFile string
	SourceFolderID     string
	TargetFolderID     string
	TempDir            string
	TempMaxAge         time.Duration
	WorkerCount        int
	QueueSize          int
	SweepEnabled       bool
	SweepInterval      time.Duration
	SweepInitialDelay  time.Duration
	DedupeInFlight     bool
	TranscodeTimeout   time.Duration
	FFmpegPath         string
	FFprobePath        string
	AllowedOrigins     []string
	LogLevel           string
	LogFormat          string
}

// HasCredentials reports whether any form of service account credentials is configured.
func (c Config) HasCredentials() bool {
	return c.ServiceAccountKey != "" || c.ServiceAccountFile != ""
}

// SourceItem is a GIF file listed from the source folder.
type SourceItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	FolderID    string    `json:"folderId,omitempty"`
	MimeType    string    `json:"mimeType,omitempty"`
	CreatedTime time.Time `json:"createdTime,omitempty"`
	WebViewLink string    `json:"webViewLink,omitempty"`
}

// DerivedArtifact is an MP4 produced from a SourceItem.
type DerivedArtifact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FolderID string `json:"folderId,omitempty"`
}

// CatalogEntry is a single item of the readiness catalog returned to clients.
type CatalogEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayURL   string `json:"displayUrl"`
	WebViewLink  string `json:"webViewLink,omitempty"`
	MP4Available bool   `json:"mp4Available"`
	MP4URL       string `json:"mp4Url,omitempty"`
	MP4ID        string `json:"mp4Id,omitempty"`
}

// CatalogResponse is the payload of the catalog endpoints.
type CatalogResponse struct {
	Error string         `json:"error,omitempty"`
	Gifs  []CatalogEntry `json:"gifs"`
}

// ConversionResponse is the standard API response structure for conversion triggers.
type ConversionResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	MP4ID       string `json:"mp4Id,omitempty"`
	MP4URL      string `json:"mp4Url,omitempty"`
	GifID       string `json:"gifId,omitempty"`
	GifFileName string `json:"gifFileName,omitempty"`
	Error       string `json:"error,omitempty"`
}

// StartedConversion names one item submitted by a bulk conversion.
type StartedConversion struct {
	GifID   string `json:"gifId"`
	GifName string `json:"gifName"`
}

// BulkConversionResponse is returned by the convert-all endpoint.
type BulkConversionResponse struct {
	Success            bool                `json:"success"`
	Message            string              `json:"message,omitempty"`
	ConversionsStarted []StartedConversion `json:"conversionsStarted"`
	Skipped            []StartedConversion `json:"skipped,omitempty"`
	TotalGifs          int                 `json:"totalGifs"`
	Error              string              `json:"error,omitempty"`
}

// StatusResponse summarises catalog readiness.
type StatusResponse struct {
	TotalGifs         int    `json:"totalGifs"`
	ReadyForDisplay   int    `json:"readyForDisplay"`
	Processing        int    `json:"processing"`
	ActiveConversions int    `json:"activeConversions"`
	Message           string `json:"message"`
	Error             string `json:"error,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	DriveAPIReady bool      `json:"driveApiReady"`
}

// ConversionJob represents a job passed to a conversion worker.
type ConversionJob struct {
	RunID          string
	GifID          string
	GifName        string
	TargetFolderID string
}

// RunStage is the pipeline step a run is currently executing.
type RunStage string

// Pipeline stages reported by the run registry.
const (
	StageQueued      RunStage = "queued"
	StageFetching    RunStage = "fetching"
	StageTranscoding RunStage = "transcoding"
	StageUploading   RunStage = "uploading"
)

// ActiveConversionInfo represents details of a queued or running conversion.
type ActiveConversionInfo struct {
	RunID     string    `json:"runId"`
	GifID     string    `json:"gifId"`
	GifName   string    `json:"gifName"`
	Stage     RunStage  `json:"stage"`
	Progress  float64   `json:"progress"`
	StartedAt time.Time `json:"startedAt"`
}
