package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Admin       AdminConfig
	Database    DatabaseConfig
	Camera      CameraConfig
	Vision      VisionConfig
	Faces       FacesConfig
	Recognition RecognitionConfig
}

type AdminConfig struct {
	Username string
	Password string
}

type DatabaseConfig struct {
	Driver       string // "postgres" (default) or "mariadb"
	URL          string // PostgreSQL connection URL
	MariaDBDSN   string // MariaDB DSN (e.g., attendance:attendance@tcp(mariadb:3306)/attendance)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type CameraConfig struct {
	Device int // V4L device index, defaults to 0
	Width  int
	Height int
}

type VisionConfig struct {
	ModelsDir string // directory with the dlib model files
	URL       string // optional HTTP detector service; takes precedence over dlib when set
}

type FacesConfig struct {
	Dir            string // directory for enrolled face images
	MaxUploadBytes int64  // multipart upload limit (default 16 MiB)
}

// RecognitionConfig holds the tunables for the recognition loop.
// Defaults come from the embedded defaults.yaml; the tolerance can be
// overridden with RECOGNITION_TOLERANCE.
type RecognitionConfig struct {
	Tolerance       float64 `yaml:"tolerance"`
	Downsample      int     `yaml:"downsample"`
	FrameStride     int     `yaml:"frame_stride"`
	MaxReadFailures int     `yaml:"max_read_failures"`
	JPEGQuality     int     `yaml:"jpeg_quality"`
	HNSWMinEntries  int     `yaml:"hnsw_min_entries"`
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

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var defaults struct {
		Recognition RecognitionConfig `yaml:"recognition"`
	}
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	rec := defaults.Recognition
	if s := os.Getenv("RECOGNITION_TOLERANCE"); s != "" {
		if t, err := strconv.ParseFloat(s, 64); err == nil && t > 0 {
			rec.Tolerance = t
		}
	}

	return &Config{
		Admin: AdminConfig{
			Username: envString("ADMIN_USERNAME", "admin"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
		Database: DatabaseConfig{
			Driver:       envString("STORAGE_DRIVER", "postgres"),
			URL:          os.Getenv("DATABASE_URL"),
			MariaDBDSN:   os.Getenv("MARIADB_DSN"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Camera: CameraConfig{
			Device: envInt("CAMERA_DEVICE", 0),
			Width:  envInt("CAMERA_WIDTH", 640),
			Height: envInt("CAMERA_HEIGHT", 480),
		},
		Vision: VisionConfig{
			ModelsDir: envString("DLIB_MODELS_DIR", "models"),
			URL:       os.Getenv("VISION_URL"),
		},
		Faces: FacesConfig{
			Dir:            envString("FACES_DIR", "data/faces"),
			MaxUploadBytes: int64(envInt("FACES_MAX_UPLOAD_MB", 16)) << 20,
		},
		Recognition: rec,
	}
}
