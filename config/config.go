package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults inside code and must be provided via config.json or the environment.
type AppConfig struct {
	AppPort            string
	SessionSecret      string
	SessionTTLHours    int
	RateLimitPerMinute int
	AllowedOrigins     []string
	AdminEmails        []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for sessions, oauth state and the feed cache; empty host means in-memory
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// OpenID Connect identity provider
	OIDCDomain         string
	OIDCClientID       string
	OIDCClientSecret   string
	OIDCDiscoveryURL   string
	OIDCRedirectURL    string
	OIDCLogoutReturnTo string
	// News ingestion
	NewsBaseURL           string
	NewsBatchSize         int
	NewsWorkers           int
	NewsTimeoutSec        int
	NewsIngestIntervalMin int
	// Kafka domain events; no brokers disables publishing
	KafkaBrokers []string
	KafkaTopic   string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// ErrMissingSecret is returned by LoadFrom when no session secret is configured.
var ErrMissingSecret = errors.New("APP_SECRET_KEY must be set")

var cfg AppConfig
var loaded bool

// Load loads the application configuration once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg = c
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

// LoadFrom builds a configuration from the JSON file at path (optional), defaults and environment overrides.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}
	if c.OIDCDiscoveryURL == "" && c.OIDCDomain != "" {
		c.OIDCDiscoveryURL = "https://" + c.OIDCDomain + "/.well-known/openid-configuration"
	}
	if c.SessionSecret == "" {
		return c, ErrMissingSecret
	}
	return c, nil
}

// IsAdminEmail reports whether email is configured as a bootstrap admin (case-insensitive).
func (c AppConfig) IsAdminEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

// loadJSONConfig reads grouped sections of a JSON file into out. A missing file is not an error.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if f, ok := m[key].(float64); ok {
			return int(f)
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.SessionSecret = getString(app, "SessionSecret")
		out.SessionTTLHours = getInt(app, "SessionTTLHours")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.AdminEmails = getStringSlice(app, "AdminEmails")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if oi, ok := raw["oidc"].(map[string]any); ok {
		out.OIDCDomain = getString(oi, "Domain")
		out.OIDCClientID = getString(oi, "ClientID")
		out.OIDCClientSecret = getString(oi, "ClientSecret")
		out.OIDCDiscoveryURL = getString(oi, "DiscoveryURL")
		out.OIDCRedirectURL = getString(oi, "RedirectURL")
		out.OIDCLogoutReturnTo = getString(oi, "LogoutReturnTo")
	}

	if nw, ok := raw["news"].(map[string]any); ok {
		out.NewsBaseURL = getString(nw, "BaseURL")
		out.NewsBatchSize = getInt(nw, "BatchSize")
		out.NewsWorkers = getInt(nw, "Workers")
		out.NewsTimeoutSec = getInt(nw, "TimeoutSec")
		out.NewsIngestIntervalMin = getInt(nw, "IngestIntervalMin")
	}

	if kf, ok := raw["kafka"].(map[string]any); ok {
		out.KafkaBrokers = getStringSlice(kf, "Brokers")
		out.KafkaTopic = getString(kf, "Topic")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 24
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
		c.GinPath = "logs/go_gin.log"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "newsboard"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.NewsBaseURL == "" {
		c.NewsBaseURL = "https://hacker-news.firebaseio.com/v0"
	}
	if c.NewsBatchSize == 0 {
		c.NewsBatchSize = 30
	}
	if c.NewsWorkers == 0 {
		c.NewsWorkers = 10
	}
	if c.NewsTimeoutSec == 0 {
		c.NewsTimeoutSec = 10
	}
	if c.KafkaTopic == "" {
		c.KafkaTopic = "newsboard.events"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	strs := map[string]*string{
		"APP_PORT":              &c.AppPort,
		"APP_SECRET_KEY":        &c.SessionSecret,
		"GIN_MODE":              &c.GinMode,
		"GIN_PATH":              &c.GinPath,
		"DB_DRIVER":             &c.DBDriver,
		"DATABASE_URI":          &c.DatabaseURI,
		"DB_HOST":               &c.DBHost,
		"DB_PORT":               &c.DBPort,
		"DB_USER":               &c.DBUser,
		"DB_PASSWORD":           &c.DBPassword,
		"DB_NAME":               &c.DBName,
		"REDIS_HOST":            &c.RedisHost,
		"REDIS_PASSWORD":        &c.RedisPassword,
		"OIDC_DOMAIN":           &c.OIDCDomain,
		"OIDC_CLIENT_ID":        &c.OIDCClientID,
		"OIDC_CLIENT_SECRET":    &c.OIDCClientSecret,
		"OIDC_DISCOVERY_URL":    &c.OIDCDiscoveryURL,
		"OIDC_REDIRECT_URL":     &c.OIDCRedirectURL,
		"OIDC_LOGOUT_RETURN_TO": &c.OIDCLogoutReturnTo,
		"NEWS_BASE_URL":         &c.NewsBaseURL,
		"KAFKA_TOPIC":           &c.KafkaTopic,
		"LOG_LEVEL":             &c.LogLevel,
		"LOG_PATH":              &c.LogPath,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SESSION_TTL_HOURS":        &c.SessionTTLHours,
		"RATE_LIMIT_PER_MINUTE":    &c.RateLimitPerMinute,
		"REDIS_PORT":               &c.RedisPort,
		"REDIS_DB":                 &c.RedisDB,
		"NEWS_BATCH_SIZE":          &c.NewsBatchSize,
		"NEWS_WORKERS":             &c.NewsWorkers,
		"NEWS_TIMEOUT_SEC":         &c.NewsTimeoutSec,
		"NEWS_INGEST_INTERVAL_MIN": &c.NewsIngestIntervalMin,
		"LOG_MAX_SIZE_MB":          &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":          &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":         &c.LogMaxAgeDays,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %q", key, v)
		}
		*dst = i
	}

	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}
	c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	c.AdminEmails = readListEnv("ADMIN_EMAILS", c.AdminEmails)
	c.KafkaBrokers = readListEnv("KAFKA_BROKERS", c.KafkaBrokers)
	return nil
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
