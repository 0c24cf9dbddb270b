package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Server    ServerConfig
	Detector  DetectorConfig
	Camera    CameraConfig
	Capture   CaptureConfig
	Biometric BiometricConfig
	Database  DatabaseConfig
	Web       WebConfig
}

// ServerConfig describes how clients reach the identity server.
type ServerConfig struct {
	URL         string        `yaml:"url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

type DetectorConfig struct {
	URL          string  `yaml:"url"`
	MinScore     float64 `yaml:"min_score"`
	MaxImageSize int     `yaml:"max_image_size"`
}

type CameraConfig struct {
	Device      string        `yaml:"device"`
	Preferred   string        `yaml:"preferred"` // label substring picked first when no device is given
	LockTimeout time.Duration `yaml:"lock_timeout"`
	FFmpegPath  string        `yaml:"-"`
}

type CaptureConfig struct {
	FeedInterval    time.Duration `yaml:"feed_interval"`
	CaptureInterval time.Duration `yaml:"capture_interval"`
	TargetSamples   int           `yaml:"target_samples"`
	WarmupTimeout   time.Duration `yaml:"warmup_timeout"`
}

type BiometricConfig struct {
	Dimension      int     `yaml:"dimension"`
	MatchThreshold float64 `yaml:"match_threshold"`
}

type DatabaseConfig struct {
	Driver        string // "postgres" (default) or "mysql"
	URL           string // Connection URL or DSN
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWIndexPath string // Path to persist the identity HNSW index (optional, rebuilt on startup if empty)
}

type WebConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string
}

type defaults struct {
	Capture   CaptureConfig   `yaml:"capture"`
	Biometric BiometricConfig `yaml:"biometric"`
	Camera    CameraConfig    `yaml:"camera"`
	Server    ServerConfig    `yaml:"server"`
	Detector  DetectorConfig  `yaml:"detector"`
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

// envFloat reads a non-negative float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a positive time.ParseDuration value, falling back to defaultVal.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func loadDefaults() defaults {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	d := loadDefaults()

	driver := strings.ToLower(envString("DATABASE_DRIVER", "postgres"))
	if driver == "mariadb" {
		driver = "mysql"
	}

	return &Config{
		Server: ServerConfig{
			URL:         envString("FACEAUTH_SERVER_URL", d.Server.URL),
			HTTPTimeout: envDuration("HTTP_TIMEOUT", d.Server.HTTPTimeout),
		},
		Detector: DetectorConfig{
			URL:          envString("DETECTOR_URL", d.Detector.URL),
			MinScore:     envFloat("DETECTOR_MIN_SCORE", d.Detector.MinScore),
			MaxImageSize: envInt("DETECTOR_MAX_IMAGE_SIZE", d.Detector.MaxImageSize),
		},
		Camera: CameraConfig{
			Device:      os.Getenv("CAMERA_DEVICE"),
			Preferred:   envString("CAMERA_PREFERRED", d.Camera.Preferred),
			LockTimeout: d.Camera.LockTimeout,
			FFmpegPath:  envString("FFMPEG_PATH", "ffmpeg"),
		},
		Capture:   d.Capture,
		Biometric: BiometricConfig{
			Dimension:      d.Biometric.Dimension,
			MatchThreshold: envFloat("MATCH_THRESHOLD", d.Biometric.MatchThreshold),
		},
		Database: DatabaseConfig{
			Driver:        driver,
			URL:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8080),
			Host:           envString("WEB_HOST", "0.0.0.0"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
