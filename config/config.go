package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds application configuration. Sensitive values carry no
// in-code defaults and must come from the config file or the environment.
type AppConfig struct {
	AppPort   string
	JWTSecret string

	// Database: DatabaseURI wins when set; "sqlite://file" selects the
	// embedded driver for local development, anything else is a MySQL DSN.
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Identity provider OAuth
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string

	RateLimitPerMinute int
	AllowedOrigins     []string

	// Gin framework configuration
	GinMode string
	GinPath string

	// Redis for caching, token blacklist and oauth state
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load reads configuration once during boot.
// Precedence: config/config.json -> defaults -> environment overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func loadJSONConfig(path string, out *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		log.Printf("warning: invalid JSON config %s: %v", path, err)
		return err
	}

	setString(raw, "AppPort", &out.AppPort)
	setString(raw, "JWTSecret", &out.JWTSecret)
	setString(raw, "DatabaseURI", &out.DatabaseURI)
	setString(raw, "DBHost", &out.DBHost)
	setString(raw, "DBPort", &out.DBPort)
	setString(raw, "DBUser", &out.DBUser)
	setString(raw, "DBPassword", &out.DBPassword)
	setString(raw, "DBName", &out.DBName)
	setString(raw, "GitHubClientID", &out.GitHubClientID)
	setString(raw, "GitHubClientSecret", &out.GitHubClientSecret)
	setString(raw, "GoogleClientID", &out.GoogleClientID)
	setString(raw, "GoogleClientSecret", &out.GoogleClientSecret)
	setString(raw, "OAuthRedirectBase", &out.OAuthRedirectBase)
	setInt(raw, "RateLimitPerMinute", &out.RateLimitPerMinute)
	setStrings(raw, "AllowedOrigins", &out.AllowedOrigins)
	setString(raw, "GinMode", &out.GinMode)
	setString(raw, "GinPath", &out.GinPath)
	setString(raw, "RedisHost", &out.RedisHost)
	setInt(raw, "RedisPort", &out.RedisPort)
	setInt(raw, "RedisDB", &out.RedisDB)
	setString(raw, "RedisPassword", &out.RedisPassword)
	setString(raw, "LogLevel", &out.LogLevel)
	setString(raw, "LogPath", &out.LogPath)
	setInt(raw, "LogMaxSizeMB", &out.LogMaxSizeMB)
	setInt(raw, "LogMaxBackups", &out.LogMaxBackups)
	setInt(raw, "LogMaxAgeDays", &out.LogMaxAgeDays)
	setBool(raw, "LogCompress", &out.LogCompress)
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "devloops"
	}
	if c.DBName == "" {
		c.DBName = "devloops"
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8080"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/app.log"
	}
}

func applyEnvOverrides(c *AppConfig) {
	envString("APP_PORT", &c.AppPort)
	envString("JWT_SECRET", &c.JWTSecret)
	envString("DATABASE_URI", &c.DatabaseURI)
	envString("DB_HOST", &c.DBHost)
	envString("DB_PORT", &c.DBPort)
	envString("DB_USER", &c.DBUser)
	envString("DB_PASSWORD", &c.DBPassword)
	envString("DB_NAME", &c.DBName)
	envString("GITHUB_CLIENT_ID", &c.GitHubClientID)
	envString("GITHUB_CLIENT_SECRET", &c.GitHubClientSecret)
	envString("GOOGLE_CLIENT_ID", &c.GoogleClientID)
	envString("GOOGLE_CLIENT_SECRET", &c.GoogleClientSecret)
	envString("OAUTH_REDIRECT_BASE", &c.OAuthRedirectBase)
	envInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	envStrings("ALLOWED_ORIGINS", &c.AllowedOrigins)
	envString("GIN_MODE", &c.GinMode)
	envString("GIN_PATH", &c.GinPath)
	envString("REDIS_HOST", &c.RedisHost)
	envInt("REDIS_PORT", &c.RedisPort)
	envInt("REDIS_DB", &c.RedisDB)
	envString("REDIS_PASSWORD", &c.RedisPassword)
	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_PATH", &c.LogPath)
	envInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	envInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	envInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	envBool("LOG_COMPRESS", &c.LogCompress)
}

func setString(raw map[string]any, key string, dst *string) {
	if v, ok := raw[key].(string); ok && v != "" {
		*dst = v
	}
}

func setInt(raw map[string]any, key string, dst *int) {
	switch v := raw[key].(type) {
	case float64:
		*dst = int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(raw map[string]any, key string, dst *bool) {
	switch v := raw[key].(type) {
	case bool:
		*dst = v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func setStrings(raw map[string]any, key string, dst *[]string) {
	switch v := raw[key].(type) {
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	case string:
		if parts := splitCSV(v); len(parts) > 0 {
			*dst = parts
		}
	}
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envStrings(key string, dst *[]string) {
	if v := os.Getenv(key); v != "" {
		if parts := splitCSV(v); len(parts) > 0 {
			*dst = parts
		}
	}
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
