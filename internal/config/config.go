package config

import "os"

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port          string
	LogLevel      string
	PostgresDSN   string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// BaseURL is the externally visible origin used to build verification
	// links and OAuth redirect URLs.
	BaseURL string
	// TokenSecret signs email-verification tokens. Distinct from any session
	// material; sessions are opaque ids, not signed tokens.
	TokenSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GithubClientID     string
	GithubClientSecret string

	ResendAPIKey string
	EmailFrom    string

	AllowedOrigins []string
}

func Load() *Config {
	return &Config{
		Port:          getenv("PORT", "8080"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		PostgresDSN:   getenv("POSTGRES_DSN", ""),
		MongoURI:      getenv("MONGO_URI", ""),
		MongoDB:       getenv("MONGO_DB", "gatehouse"),
		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "gatehouse-avatars"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",

		BaseURL:     getenv("BASE_URL", "http://localhost:8080"),
		TokenSecret: getenv("TOKEN_SECRET", ""),

		GoogleClientID:     getenv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
		GithubClientID:     getenv("GITHUB_CLIENT_ID", ""),
		GithubClientSecret: getenv("GITHUB_CLIENT_SECRET", ""),

		ResendAPIKey: getenv("RESEND_API_KEY", ""),
		EmailFrom:    getenv("EMAIL_FROM", "onboarding@resend.dev"),

		AllowedOrigins: []string{
			getenv("FRONTEND_ORIGIN", "http://localhost:5173"),
			"http://localhost:3000",
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
