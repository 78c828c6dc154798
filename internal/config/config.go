// Package config provides configuration loading for the application.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"Ystore/internal"
	"Ystore/internal/logger"
)

type Config struct {
	Port            string
	ModelsDir       string
	LogDir          string
	RequestMaxBytes int64
	Engines         EnginesConfig
	SQL             SQLConfig
	Redis           RedisConfig
	CORS            CORSConfig
}

// EnginesConfig selects which engine serves each resource.
type EnginesConfig struct {
	Default string
	Routes  map[string]string
}

type SQLConfig struct {
	PostgresDSN   string
	SQLitePath    string
	MigrationsDir string
}

// Enabled reports whether a SQL database is configured.
func (c SQLConfig) Enabled() bool {
	return c.PostgresDSN != "" || c.SQLitePath != ""
}

type RedisConfig struct {
	Addr   string
	Prefix string
}

// CORSConfig lists are comma-separated. MaxAge is in seconds; zero omits the
// header.
type CORSConfig struct {
	AllowOrigin      string
	AllowCredentials bool
	AllowHeaders     string
	MaxAge           int
}

func LoadConfig() *Config {
	// .env lives next to go.mod
	root, _ := internal.FindRepoRoot()
	_ = godotenv.Load(filepath.Join(root, ".env"))

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		ModelsDir:       getEnv("MODELS_DIR", "./db"),
		LogDir:          getEnv("LOG_DIR", "log"),
		RequestMaxBytes: getEnvInt64("REQUEST_MAX_BYTES", 1<<20),
		Engines: EnginesConfig{
			Default: getEnvOptional("DEFAULT_ENGINE"),
			Routes:  parseRoutes(getEnvOptional("ENGINE_ROUTES")),
		},
		SQL: SQLConfig{
			PostgresDSN:   getEnvOptional("POSTGRES_DSN"),
			SQLitePath:    getEnvOptional("SQLITE_PATH"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./db/migrations"),
		},
		Redis: RedisConfig{
			Addr:   getEnvOptional("REDIS_ADDR"),
			Prefix: getEnv("REDIS_PREFIX", "ystore"),
		},
		CORS: CORSConfig{
			AllowOrigin:      getEnv("CORS_ALLOW_ORIGIN", "*"),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			AllowHeaders:     getEnv("CORS_ALLOW_HEADERS", "Content-Type"),
			MaxAge:           int(getEnvInt64("CORS_MAX_AGE", 86400)),
		},
	}
	if cfg.RequestMaxBytes <= 0 {
		logger.Warn("env_invalid_int", map[string]any{
			"key":      "REQUEST_MAX_BYTES",
			"value":    cfg.RequestMaxBytes,
			"fallback": 1 << 20,
		})
		cfg.RequestMaxBytes = 1 << 20
	}

	return cfg
}

// parseRoutes reads "cars=sql, users=memory". Malformed pairs are skipped
// with a warning.
func parseRoutes(value string) map[string]string {
	routes := map[string]string{}
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		resource, engine, ok := strings.Cut(pair, "=")
		resource, engine = strings.TrimSpace(resource), strings.TrimSpace(engine)
		if !ok || resource == "" || engine == "" {
			logger.Warn("env_invalid_route", map[string]any{"key": "ENGINE_ROUTES", "value": pair})
			continue
		}
		routes[resource] = engine
	}
	return routes
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	logger.Warn("env_default", map[string]any{
		"key":      key,
		"fallback": fallback,
	})
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn("env_invalid_bool", map[string]any{
			"key":      key,
			"value":    value,
			"fallback": fallback,
		})
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		logger.Warn("env_invalid_int", map[string]any{
			"key":      key,
			"value":    value,
			"fallback": fallback,
		})
		return fallback
	}
	return parsed
}

func getEnvOptional(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
