package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type StorageBackend string

const (
	StorageGCS StorageBackend = "gcs"
	StorageS3  StorageBackend = "s3"
)

// Config holds every runtime setting of the service. It is built once in
// main and handed to the components that need it.
type Config struct {
	ServerAddr   string
	DatabaseURL  string
	LogLevel     string
	LogPretty    bool
	MaxUploadMB  int
	AllowOrigins string

	StorageBackend   StorageBackend
	StorageBucket    string
	GCSPublicBaseURL string
	S3Region         string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	S3PublicBaseURL  string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout time.Duration

	DetectorModelPath    string
	DetectionConfidence  float64
	ClipModelPath        string
	PromptEmbeddingsPath string
	ClassifierModelPath  string
	ClassNamesPath       string

	StyleModelDir    string
	StyleCatalogPath string
	StyleInputSize   int

	AuthPrivateKeyPEM string
	JWTSecret         string
	TokenDuration     time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		ServerAddr:   Env("SERVER_ADDR", ":8000"),
		DatabaseURL:  Env("DATABASE_URL", ""),
		LogLevel:     Env("LOG_LEVEL", "info"),
		AllowOrigins: Env("CORS_ALLOW_ORIGINS", "*"),

		StorageBackend:   StorageBackend(strings.ToLower(Env("STORAGE_BACKEND", string(StorageGCS)))),
		StorageBucket:    Env("STORAGE_BUCKET", Env("SUPABASE_BUCKET", "")),
		GCSPublicBaseURL: Env("GCS_PUBLIC_BASE_URL", "https://storage.googleapis.com"),
		S3Region:         Env("S3_REGION", "us-east-1"),
		S3Endpoint:       Env("S3_ENDPOINT", ""),
		S3AccessKey:      Env("S3_ACCESS_KEY", ""),
		S3SecretKey:      Env("S3_SECRET_KEY", ""),
		S3PublicBaseURL:  Env("S3_PUBLIC_BASE_URL", ""),

		GeminiAPIKey: Env("GEMINI_API_KEY", ""),
		GeminiModel:  Env("GEMINI_MODEL", "gemini-2.5-flash"),

		DetectorModelPath:    Env("DETECTOR_MODEL_PATH", "models/painting_detector.onnx"),
		ClipModelPath:        Env("CLIP_MODEL_PATH", "models/clip_image_encoder.onnx"),
		PromptEmbeddingsPath: Env("PROMPT_EMBEDDINGS_PATH", "models/prompt_embeddings.json"),
		ClassifierModelPath:  Env("CLASSIFIER_MODEL_PATH", "models/style_classifier.onnx"),
		ClassNamesPath:       Env("CLASS_NAMES_PATH", "models/class_names.json"),

		StyleModelDir:    Env("STYLE_MODEL_DIR", "models/saved_models"),
		StyleCatalogPath: Env("STYLE_CATALOG_PATH", "styles.yaml"),

		AuthPrivateKeyPEM: Env("AUTH_PRIVATE_KEY_PEM", ""),
		JWTSecret:         Env("JWT_SECRET", ""),
	}

	var err error
	if cfg.LogPretty, err = envBool("LOG_PRETTY", false); err != nil {
		return nil, err
	}
	if cfg.MaxUploadMB, err = envInt("MAX_UPLOAD_MB", 20); err != nil {
		return nil, err
	}
	if cfg.StyleInputSize, err = envInt("STYLE_INPUT_SIZE", 512); err != nil {
		return nil, err
	}
	if cfg.DetectionConfidence, err = envFloat("DETECTION_CONFIDENCE", 0.05); err != nil {
		return nil, err
	}
	if cfg.GeminiTimeout, err = envDuration("GEMINI_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.TokenDuration, err = envDuration("TOKEN_DURATION", 24*time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL not set")
	}
	if c.StorageBucket == "" {
		return errors.New("STORAGE_BUCKET not set")
	}
	switch c.StorageBackend {
	case StorageGCS:
	case StorageS3:
		if c.S3AccessKey == "" || c.S3SecretKey == "" {
			return errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 storage backend")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.DetectionConfidence < 0 || c.DetectionConfidence > 1 {
		return fmt.Errorf("DETECTION_CONFIDENCE must be between 0 and 1, got %v", c.DetectionConfidence)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.StyleInputSize <= 0 {
		return fmt.Errorf("STYLE_INPUT_SIZE must be positive, got %d", c.StyleInputSize)
	}
	return nil
}

// Env returns the value of envVar or def when it is unset or empty.
func Env(envVar, def string) string {
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v
	}
	return def
}

func envInt(envVar string, def int) (int, error) {
	v := Env(envVar, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer", envVar)
	}
	return n, nil
}

func envFloat(envVar string, def float64) (float64, error) {
	v := Env(envVar, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be a number", envVar)
	}
	return f, nil
}

func envBool(envVar string, def bool) (bool, error) {
	v := Env(envVar, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be a boolean", envVar)
	}
	return b, nil
}

func envDuration(envVar string, def time.Duration) (time.Duration, error) {
	v := Env(envVar, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be a duration like 30s", envVar)
	}
	return d, nil
}
