package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Transition modes for the request status workflow.
const (
	TransitionModePermissive = "permissive"
	TransitionModeStrict     = "strict"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Requests      RequestsConfig
	Uploads       UploadsConfig
	Notifications NotificationsConfig
	Email         EmailConfig
	SMS           SMSConfig
	Reports       ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RequestsConfig governs the document request workflow.
type RequestsConfig struct {
	// TransitionMode is "permissive" (any status may be set, matching the
	// legacy portal) or "strict" (only adjacent transitions allowed).
	TransitionMode string
	MaxQuantity    int
}

// UploadsConfig controls requirement files attached to requests.
type UploadsConfig struct {
	StorageDir        string
	MaxFileSizeBytes  int64
	AllowedExtensions []string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
}

// NotificationsConfig tunes the dispatcher workers and the retention sweep.
type NotificationsConfig struct {
	WorkerConcurrency int
	RetentionDays     int
	CleanupInterval   time.Duration
}

// EmailConfig holds the SendGrid transport settings.
type EmailConfig struct {
	SendgridAPIKey string
	FromName       string
	FromAddress    string
	ReplyTo        string
	PortalURL      string
}

// SMSConfig holds the outbound SMS gateway settings. The gateway is treated
// as unconfigured when APIKey is empty.
type SMSConfig struct {
	APIKey     string
	SenderName string
	APIBase    string
}

// ReportsConfig tunes read-side aggregation caching.
type ReportsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	mode := strings.ToLower(v.GetString("REQUEST_TRANSITION_MODE"))
	if mode != TransitionModeStrict {
		mode = TransitionModePermissive
	}
	cfg.Requests = RequestsConfig{
		TransitionMode: mode,
		MaxQuantity:    v.GetInt("REQUEST_MAX_QUANTITY"),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		StorageDir:        v.GetString("UPLOADS_STORAGE_DIR"),
		MaxFileSizeBytes:  maxUploadSize,
		AllowedExtensions: splitAndTrim(v.GetString("UPLOADS_ALLOWED_EXTENSIONS")),
		SignedURLSecret:   v.GetString("UPLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("UPLOADS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		WorkerConcurrency: v.GetInt("NOTIFICATIONS_WORKER_CONCURRENCY"),
		RetentionDays:     v.GetInt("NOTIFICATIONS_RETENTION_DAYS"),
		CleanupInterval:   parseDuration(v.GetString("NOTIFICATIONS_CLEANUP_INTERVAL"), 12*time.Hour),
	}

	cfg.Email = EmailConfig{
		SendgridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromName:       v.GetString("EMAIL_FROM_NAME"),
		FromAddress:    v.GetString("EMAIL_FROM_ADDRESS"),
		ReplyTo:        v.GetString("EMAIL_REPLY_TO"),
		PortalURL:      v.GetString("PORTAL_URL"),
	}

	cfg.SMS = SMSConfig{
		APIKey:     v.GetString("SMS_API_KEY"),
		SenderName: v.GetString("SMS_SENDER_NAME"),
		APIBase:    v.GetString("SMS_API_BASE"),
	}

	cfg.Reports = ReportsConfig{
		CacheEnabled: v.GetBool("REPORTS_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("REPORTS_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lnhs_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REQUEST_TRANSITION_MODE", TransitionModePermissive)
	v.SetDefault("REQUEST_MAX_QUANTITY", 10)

	v.SetDefault("UPLOADS_STORAGE_DIR", "./uploads")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("UPLOADS_ALLOWED_EXTENSIONS", "jpg,jpeg,png,gif,pdf,doc,docx")
	v.SetDefault("UPLOADS_SIGNED_URL_SECRET", "dev_uploads_secret")
	v.SetDefault("UPLOADS_SIGNED_URL_TTL", "30m")

	v.SetDefault("NOTIFICATIONS_WORKER_CONCURRENCY", 2)
	v.SetDefault("NOTIFICATIONS_RETENTION_DAYS", 30)
	v.SetDefault("NOTIFICATIONS_CLEANUP_INTERVAL", "12h")

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("EMAIL_FROM_NAME", "LNHS Portal")
	v.SetDefault("EMAIL_FROM_ADDRESS", "noreply@lnhs.edu.ph")
	v.SetDefault("EMAIL_REPLY_TO", "registrar@lnhs.edu.ph")
	v.SetDefault("PORTAL_URL", "http://localhost:3000")

	v.SetDefault("SMS_API_KEY", "")
	v.SetDefault("SMS_SENDER_NAME", "LNHSPORTAL")
	v.SetDefault("SMS_API_BASE", "https://api.semaphore.co/api/v4")

	v.SetDefault("REPORTS_CACHE_ENABLED", false)
	v.SetDefault("REPORTS_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
