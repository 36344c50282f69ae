package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	// Bearer tokens issued by the auth provider, verified locally.
	AuthJWTSecret string
	// Shared secret for server-to-server calls from the compute engine.
	EngineSecret string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Storage StorageConfig
	Compute ComputeConfig

	OpenAIAPIKey string
}

// StorageConfig configures the S3-compatible object store.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// ComputeConfig configures the external computation engine.
type ComputeConfig struct {
	// PythonBin is the interpreter used to launch the engine.
	PythonBin string
	// EngineRoot is the engine project directory (working dir + PYTHONPATH).
	EngineRoot string
	// JobsDir is the scratch directory for per-offer job inputs.
	JobsDir string
	// Timeout force-fails a run that exceeds it. Zero disables the watchdog.
	Timeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:       getenv("APP_SERVICE", "planhaus"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":4000"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		EngineSecret:  strings.TrimSpace(getenv("ENGINE_SECRET", "")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "planhaus"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		Storage: StorageConfig{
			Endpoint:  getenv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKey: getenv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getenv("STORAGE_SECRET_KEY", ""),
			Bucket:    getenv("STORAGE_BUCKET", "house-plans"),
			UseSSL:    getenvBool("STORAGE_USE_SSL", false),
			PublicURL: strings.TrimRight(getenv("STORAGE_PUBLIC_URL", ""), "/"),
		},

		Compute: ComputeConfig{
			PythonBin:  getenv("COMPUTE_PYTHON_BIN", "python3"),
			EngineRoot: getenv("COMPUTE_ENGINE_ROOT", "../engine/new"),
			JobsDir:    getenv("COMPUTE_JOBS_DIR", "jobs_output"),
			Timeout:    getenvDuration("COMPUTE_TIMEOUT", 30*time.Minute),
		},

		OpenAIAPIKey: strings.TrimSpace(getenv("OPENAI_API_KEY", "")),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
