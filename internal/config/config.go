// Package config handles loading and managing application configuration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/gatanasi/gif-converter/internal/constants"
	"github.com/gatanasi/gif-converter/internal/models"
)

// fileConfig mirrors models.Config for TOML decoding. Durations are written
// as Go duration strings ("90s", "5m").
type fileConfig struct {
	Port               string   `toml:"port"`
	ServiceAccountFile string   `toml:"service_account_file"`
	SourceFolderID     string   `toml:"source_folder_id"`
	TargetFolderID     string   `toml:"target_folder_id"`
	TempDir            string   `toml:"temp_dir"`
	TempMaxAge         string   `toml:"temp_max_age"`
	WorkerCount        int      `toml:"worker_count"`
	QueueSize          int      `toml:"queue_size"`
	SweepEnabled       *bool    `toml:"sweep_enabled"`
	SweepInterval      string   `toml:"sweep_interval"`
	SweepInitialDelay  string   `toml:"sweep_initial_delay"`
	DedupeInFlight     *bool    `toml:"dedupe_in_flight"`
	TranscodeTimeout   string   `toml:"transcode_timeout"`
	FFmpegPath         string   `toml:"ffmpeg_path"`
	FFprobePath        string   `toml:"ffprobe_path"`
	AllowedOrigins     []string `toml:"allowed_origins"`
	LogLevel           string   `toml:"log_level"`
	LogFormat          string   `toml:"log_format"`
}

// Default returns the configuration used when neither a file nor the
// environment set a value. QueueSize is left at zero so Load can size the
// queue from the final worker count.
func Default() models.Config {
	return models.Config{
		Port:              constants.DefaultPort,
		TempDir:           constants.DefaultTempDir,
		TempMaxAge:        constants.DefaultTempMaxAge,
		WorkerCount:       runtime.NumCPU(),
		SweepEnabled:      true,
		SweepInterval:     constants.DefaultSweepInterval,
		SweepInitialDelay: constants.DefaultSweepInitialDelay,
		DedupeInFlight:    true,
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		AllowedOrigins:    []string{"*"},
		LogLevel:          constants.DefaultLogLevel,
		LogFormat:         constants.DefaultLogFormat,
	}
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that order of increasing precedence. An empty path falls
// back to CONFIG_FILE. Missing folder ids or credentials are not errors: the
// API reports them per request.
func Load(path string) (models.Config, error) {
	config := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := applyFile(&config, path); err != nil {
			return models.Config{}, err
		}
	}

	applyEnv(&config)
	normalize(&config)
	return config, nil
}

func applyFile(config *models.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var file fileConfig
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.Port, file.Port)
	setString(&config.ServiceAccountFile, file.ServiceAccountFile)
	setString(&config.SourceFolderID, file.SourceFolderID)
	setString(&config.TargetFolderID, file.TargetFolderID)
	setString(&config.TempDir, file.TempDir)
	setString(&config.FFmpegPath, file.FFmpegPath)
	setString(&config.FFprobePath, file.FFprobePath)
	setString(&config.LogLevel, file.LogLevel)
	setString(&config.LogFormat, file.LogFormat)
	if file.WorkerCount > 0 {
		config.WorkerCount = file.WorkerCount
	}
	if file.QueueSize > 0 {
		config.QueueSize = file.QueueSize
	}
	if file.SweepEnabled != nil {
		config.SweepEnabled = *file.SweepEnabled
	}
	if file.DedupeInFlight != nil {
		config.DedupeInFlight = *file.DedupeInFlight
	}
	if len(file.AllowedOrigins) > 0 {
		config.AllowedOrigins = file.AllowedOrigins
	}

	durations := []struct {
		key    string
		raw    string
		target *time.Duration
	}{
		{"temp_max_age", file.TempMaxAge, &config.TempMaxAge},
		{"sweep_interval", file.SweepInterval, &config.SweepInterval},
		{"sweep_initial_delay", file.SweepInitialDelay, &config.SweepInitialDelay},
		{"transcode_timeout", file.TranscodeTimeout, &config.TranscodeTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse config file %s: invalid %s %q: %w", path, d.key, d.raw, err)
		}
		*d.target = value
	}
	return nil
}

func applyEnv(config *models.Config) {
	config.Port = getEnv("PORT", config.Port)
	config.ServiceAccountKey = getEnv("GOOGLE_SERVICE_ACCOUNT_KEY", config.ServiceAccountKey)
	config.ServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", config.ServiceAccountFile)
	config.SourceFolderID = getEnv("GOOGLE_DRIVE_FOLDER_ID", config.SourceFolderID)
	config.TargetFolderID = getEnv("GOOGLE_DRIVE_MP4_FOLDER_ID", config.TargetFolderID)
	config.TempDir = getEnv("TEMP_DIR", config.TempDir)
	config.FFmpegPath = getEnv("FFMPEG_PATH", config.FFmpegPath)
	config.FFprobePath = getEnv("FFPROBE_PATH", config.FFprobePath)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.LogFormat = getEnv("LOG_FORMAT", config.LogFormat)

	config.WorkerCount = parseIntEnv("WORKER_COUNT", config.WorkerCount)
	config.QueueSize = parseIntEnv("QUEUE_SIZE", config.QueueSize)

	config.SweepEnabled = parseBoolEnv("SWEEP_ENABLED", config.SweepEnabled)
	config.DedupeInFlight = parseBoolEnv("DEDUPE_IN_FLIGHT", config.DedupeInFlight)

	config.TempMaxAge = parseDurationEnv("TEMP_MAX_AGE", config.TempMaxAge)
	config.SweepInterval = parseDurationEnv("SWEEP_INTERVAL", config.SweepInterval)
	config.SweepInitialDelay = parseDurationEnv("SWEEP_INITIAL_DELAY", config.SweepInitialDelay)
	config.TranscodeTimeout = parseDurationEnv("TRANSCODE_TIMEOUT", config.TranscodeTimeout)

	if allowedOriginsStr, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok && strings.TrimSpace(allowedOriginsStr) != "" {
		config.AllowedOrigins = splitOrigins(allowedOriginsStr)
	}
}

func normalize(config *models.Config) {
	defaults := Default()
	if config.WorkerCount < 1 {
		log.Printf("Warning: Invalid worker count %d, using default %d", config.WorkerCount, defaults.WorkerCount)
		config.WorkerCount = defaults.WorkerCount
	}
	if config.QueueSize < 1 {
		config.QueueSize = config.WorkerCount * constants.QueueSizeMultiplier
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.SweepInitialDelay < 0 {
		config.SweepInitialDelay = 0
	}
	if config.TempMaxAge <= 0 {
		config.TempMaxAge = defaults.TempMaxAge
	}
	if config.TranscodeTimeout < 0 {
		config.TranscodeTimeout = 0
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = defaults.AllowedOrigins
	}
	config.SourceFolderID = strings.TrimSpace(config.SourceFolderID)
	config.TargetFolderID = strings.TrimSpace(config.TargetFolderID)
}

func splitOrigins(raw string) []string {
	origins := strings.Split(raw, ",")
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func setString(target *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*target = value
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// parseIntEnv retrieves an integer environment variable or returns a default.
func parseIntEnv(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s ('%s'), using default %d", key, valueStr, fallback)
		return fallback
	}
	return value
}

func parseBoolEnv(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s ('%s'), using default %t", key, valueStr, fallback)
		return fallback
	}
	return value
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s ('%s'), using default %s", key, valueStr, fallback)
		return fallback
	}
	return value
}
