package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"hemotwin-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	PresignExpiry   time.Duration

	DatabaseURL             string
	DocStoreType            string
	FirebaseDatabaseURL     string
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	OCRProvider    string
	OCRSpaceAPIKey string
	OCRSpaceURL    string
	OCRLanguage    string
	OCRTimeout     time.Duration
	OCRMaxAttempts int
	OCRRetryDelay  time.Duration

	QueueURL               string
	QueueVisibilitySeconds int
	WorkerConcurrency      int
	ShutdownTimeout        time.Duration

	RateLimitPerMinute     int
	ScanRateLimitPerMinute int
}

// Load reads configuration from .env files and environment variables.
// Environment variables win over file values.
func Load() Config {
	v := viper.New()
	setDefaults(v)

	// Best-effort load of local env files for dev convenience.
	for _, path := range []string{".env", "cmd/.env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			telemetry.Error("config.env_file_ignored", map[string]any{"path": path, "error": err.Error()})
		}
	}
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds a Config from an already-populated viper instance.
func FromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))

	if env == "production" && dbURL == "" {
		telemetry.Error("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:            v.GetString("PORT"),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		Env:             env,

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),
		PresignExpiry:   v.GetDuration("UPLOADS_PRESIGN_EXPIRY"),

		DatabaseURL:             dbURL,
		DocStoreType:            normalizeDocStoreType(v.GetString("DOCSTORE"), dbURL),
		FirebaseDatabaseURL:     v.GetString("FIREBASE_DATABASE_URL"),
		FirebaseProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),

		OCRProvider:    strings.ToLower(strings.TrimSpace(v.GetString("OCR_PROVIDER"))),
		OCRSpaceAPIKey: strings.TrimSpace(v.GetString("OCR_SPACE_API_KEY")),
		OCRSpaceURL:    v.GetString("OCR_SPACE_URL"),
		OCRLanguage:    v.GetString("OCR_LANGUAGE"),
		OCRTimeout:     v.GetDuration("OCR_TIMEOUT"),
		OCRMaxAttempts: v.GetInt("OCR_MAX_ATTEMPTS"),
		OCRRetryDelay:  v.GetDuration("OCR_RETRY_DELAY"),

		QueueURL:               strings.TrimSpace(v.GetString("HT_SQS_QUEUE_URL")),
		QueueVisibilitySeconds: v.GetInt("HT_SQS_VISIBILITY_TIMEOUT_SECONDS"),
		WorkerConcurrency:      v.GetInt("HT_WORKER_CONCURRENCY"),
		ShutdownTimeout:        v.GetDuration("HT_SHUTDOWN_TIMEOUT"),

		RateLimitPerMinute:     v.GetInt("RATE_LIMIT_PER_MINUTE"),
		ScanRateLimitPerMinute: v.GetInt("SCAN_RATE_LIMIT_PER_MINUTE"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:8081")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("UPLOADS_PRESIGN_EXPIRY", "15m")
	v.SetDefault("OCR_PROVIDER", "ocrspace")
	v.SetDefault("OCR_SPACE_URL", "https://api.ocr.space/parse/image")
	v.SetDefault("OCR_LANGUAGE", "eng")
	v.SetDefault("OCR_TIMEOUT", "30s")
	v.SetDefault("OCR_MAX_ATTEMPTS", 3)
	v.SetDefault("OCR_RETRY_DELAY", "2s")
	v.SetDefault("HT_SQS_VISIBILITY_TIMEOUT_SECONDS", 300)
	v.SetDefault("HT_WORKER_CONCURRENCY", 4)
	v.SetDefault("HT_SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("SCAN_RATE_LIMIT_PER_MINUTE", 10)
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// normalizeDocStoreType picks postgres when a database is configured and no
// explicit choice was made.
func normalizeDocStoreType(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "firebase", "rtdb":
		return "firebase"
	case "firestore":
		return "firestore"
	case "postgres", "pg":
		return "postgres"
	case "memory":
		return "memory"
	}
	if dbURL != "" {
		return "postgres"
	}
	return "memory"
}
