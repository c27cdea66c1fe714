package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port        string
	Env         string
	APIUrl      string
	FrontendURL string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimeZone string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret               string
	JWTAccessTokenDuration  time.Duration
	JWTRefreshTokenDuration time.Duration
	ShareSessionDuration    time.Duration

	// Default operator
	OperatorUsername string
	OperatorPassword string
	OperatorEmail    string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// Media S3
	MediaS3Endpoint        string
	MediaS3Region          string
	MediaS3AccessKeyID     string
	MediaS3SecretAccessKey string
	MediaS3UsePathStyle    bool
	TracksBucket           string

	// Local storage
	LocalAssetsPath string

	// Signed URLs
	PlaybackURLTTLMinutes int
	ArtworkURLTTLMinutes  int

	// Shares
	ShareSlugLength               int
	ShareEmailVerificationEnabled bool
	ShareExpirySweepEnabled       bool

	// Security
	BcryptCost        int
	RateLimitRequests int
	RateLimitDuration time.Duration

	// Uploads
	UploadRateLimitRequests int
	UploadRateLimitWindow   time.Duration
	MaxUploadSizeMB         int64

	// CORS
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

func New() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		APIUrl:      getEnv("API_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "playdrop"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "playdrop_db"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),
		DBTimeZone: getEnv("DB_TIMEZONE", "UTC"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// JWT
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key"),
		JWTAccessTokenDuration:  getEnvAsDuration("JWT_ACCESS_TOKEN_DURATION", "1h"),
		JWTRefreshTokenDuration: getEnvAsDuration("JWT_REFRESH_TOKEN_DURATION", "168h"),
		ShareSessionDuration:    getEnvAsDuration("SHARE_SESSION_DURATION", "12h"),

		// Default operator
		OperatorUsername: getEnv("OPERATOR_USERNAME", "supervisor"),
		OperatorPassword: getEnv("OPERATOR_PASSWORD", ""),
		OperatorEmail:    getEnv("OPERATOR_EMAIL", "supervisor@playdrop.app"),

		// SMTP
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@playdrop.app"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "PlayDrop"),

		// Media S3
		MediaS3Endpoint:        getEnv("MEDIA_S3_ENDPOINT", ""),
		MediaS3Region:          getEnv("MEDIA_S3_REGION", "us-east-1"),
		MediaS3AccessKeyID:     getEnv("MEDIA_S3_ACCESS_KEY_ID", ""),
		MediaS3SecretAccessKey: getEnv("MEDIA_S3_SECRET_ACCESS_KEY", ""),
		MediaS3UsePathStyle:    getEnv("MEDIA_S3_USE_PATH_STYLE", "true") == "true",
		TracksBucket:           getEnv("TRACKS_BUCKET", "playdrop-tracks"),

		// Local storage
		LocalAssetsPath: getEnv("LOCAL_ASSETS_PATH", "/data/assets"),

		// Signed URLs
		PlaybackURLTTLMinutes: getEnvAsInt("PLAYBACK_URL_TTL_MINUTES", 60),
		ArtworkURLTTLMinutes:  getEnvAsInt("ARTWORK_URL_TTL_MINUTES", 60),

		// Shares
		ShareSlugLength:               getEnvAsInt("SHARE_SLUG_LENGTH", 12),
		ShareEmailVerificationEnabled: getEnv("SHARE_EMAIL_VERIFICATION_ENABLED", "false") == "true",
		ShareExpirySweepEnabled:       getEnv("SHARE_EXPIRY_SWEEP_ENABLED", "true") == "true",

		// Security
		BcryptCost:        getEnvAsInt("BCRYPT_COST", 12),
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitDuration: getEnvAsDuration("RATE_LIMIT_DURATION", "1m"),

		// Uploads
		UploadRateLimitRequests: getEnvAsInt("UPLOAD_RATE_LIMIT_REQUESTS", 30),
		UploadRateLimitWindow:   getEnvAsDuration("UPLOAD_RATE_LIMIT_WINDOW", "10m"),
		MaxUploadSizeMB:         int64(getEnvAsInt("MAX_UPLOAD_SIZE_MB", 200)),

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AllowedMethods: getEnvAsSlice("ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvAsSlice("ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Hour
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
