package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the optional YAML configuration file looked up in the
// working directory. Environment variables always win over file values.
const ConfigFile = "person-tracker.yaml"

type Config struct {
	Database  DatabaseConfig `yaml:"database"`
	Tracking  TrackingConfig `yaml:"tracking"`
	Detector  DetectorConfig `yaml:"detector"`
	Camera    CameraConfig   `yaml:"camera"`
	Web       WebConfig      `yaml:"web"`
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"` // "text" or "json"
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // root directory for identity folders and metadata.json
}

type TrackingConfig struct {
	UpdateIntervalSec   int     `yaml:"update_interval"`      // seconds between captures of the same identity
	SimilarityThreshold float64 `yaml:"similarity_threshold"` // lower = stricter matching
	MinFaceWidth        int     `yaml:"min_face_width"`
	MinFaceHeight       int     `yaml:"min_face_height"`
	CropPadding         int     `yaml:"crop_padding"`   // pixels of context around a face crop
	CycleDelayMs        int     `yaml:"cycle_delay_ms"` // sleep between cycles to cap CPU usage
}

// UpdateInterval returns the capture throttle interval as a duration.
func (c *TrackingConfig) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalSec) * time.Second
}

// CycleDelay returns the inter-cycle sleep as a duration.
func (c *TrackingConfig) CycleDelay() time.Duration {
	return time.Duration(c.CycleDelayMs) * time.Millisecond
}

type DetectorConfig struct {
	URL           string  `yaml:"url"`        // face detection/embedding service
	MinConfidence float64 `yaml:"confidence"` // detection score floor, enforced by the service
}

type CameraConfig struct {
	Device      string `yaml:"device"`
	FrameWidth  int    `yaml:"frame_width"`
	FrameHeight int    `yaml:"frame_height"`
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable, falling back to the default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "./database",
		},
		Tracking: TrackingConfig{
			UpdateIntervalSec:   300,
			SimilarityThreshold: 0.6,
			MinFaceWidth:        50,
			MinFaceHeight:       50,
			CropPadding:         50,
			CycleDelayMs:        100,
		},
		Detector: DetectorConfig{
			URL:           "http://localhost:8000",
			MinConfidence: 0.8,
		},
		Camera: CameraConfig{
			Device:      "0",
			FrameWidth:  640,
			FrameHeight: 480,
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration from defaults, an optional YAML file in the
// working directory, and environment variable overrides, in that order.
func Load() *Config {
	cfg := defaults()

	if data, err := os.ReadFile(ConfigFile); err == nil {
		// The file is optional; a malformed one is ignored and env vars
		// still apply below.
		_ = yaml.Unmarshal(data, cfg)
	}

	cfg.Database.Path = envString("TRACKER_DATABASE_PATH", cfg.Database.Path)
	cfg.Tracking.UpdateIntervalSec = envInt("TRACKER_UPDATE_INTERVAL", cfg.Tracking.UpdateIntervalSec)
	cfg.Tracking.SimilarityThreshold = envFloat("TRACKER_SIMILARITY_THRESHOLD", cfg.Tracking.SimilarityThreshold)
	cfg.Tracking.MinFaceWidth = envInt("TRACKER_MIN_FACE_WIDTH", cfg.Tracking.MinFaceWidth)
	cfg.Tracking.MinFaceHeight = envInt("TRACKER_MIN_FACE_HEIGHT", cfg.Tracking.MinFaceHeight)
	cfg.Tracking.CropPadding = envInt("TRACKER_CROP_PADDING", cfg.Tracking.CropPadding)
	cfg.Tracking.CycleDelayMs = envInt("TRACKER_CYCLE_DELAY_MS", cfg.Tracking.CycleDelayMs)
	cfg.Detector.URL = envString("TRACKER_DETECTOR_URL", cfg.Detector.URL)
	cfg.Detector.MinConfidence = envFloat("TRACKER_DETECTION_CONFIDENCE", cfg.Detector.MinConfidence)
	cfg.Camera.Device = envString("TRACKER_CAMERA_DEVICE", cfg.Camera.Device)
	cfg.Camera.FrameWidth = envInt("TRACKER_FRAME_WIDTH", cfg.Camera.FrameWidth)
	cfg.Camera.FrameHeight = envInt("TRACKER_FRAME_HEIGHT", cfg.Camera.FrameHeight)
	cfg.Web.Host = envString("TRACKER_WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("TRACKER_WEB_PORT", cfg.Web.Port)
	cfg.LogLevel = envString("TRACKER_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envString("TRACKER_LOG_FORMAT", cfg.LogFormat)

	return cfg
}
