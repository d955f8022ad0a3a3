package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port     string
	Auth     AuthConfig
	Google   GoogleConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Queue    QueueConfig
	CORS     CORSConfig
	DevMode  bool
}

type AuthConfig struct {
	JWTSecret     string
	JWTAccessTTL  string
	JWTRefreshTTL string
	AdminEmail    string
	AdminPassword string
}

type GoogleConfig struct {
	// VerifyMode selects the ID-token verifier: "oidc" checks the token
	// locally against Google's JWKS, "idtoken" delegates to Google's
	// validation library with a hard audience check.
	VerifyMode string
	Issuer     string
	// Audiences is a comma-separated allow-list; distinct client platforms
	// (mobile, web) register distinct OAuth client IDs.
	Audiences string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type RedisConfig struct {
	Addr            string
	RateLimitPerMin int
}

type QueueConfig struct {
	AMQPURL  string
	Exchange string
}

type CORSConfig struct {
	AllowedOrigins string
}

func Load() Config {
	return Config{
		Port: getenv("APP_PORT", "8080"),
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			JWTAccessTTL:  getenv("JWT_ACCESS_TTL", "15m"),
			JWTRefreshTTL: getenv("JWT_REFRESH_TTL", "336h"),
			AdminEmail:    os.Getenv("ADMIN_EMAIL"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		},
		Google: GoogleConfig{
			VerifyMode: getenv("GOOGLE_VERIFY_MODE", "oidc"),
			Issuer:     getenv("GOOGLE_ISSUER", "https://accounts.google.com"),
			Audiences:  os.Getenv("GOOGLE_AUDIENCES"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:            os.Getenv("REDIS_ADDR"),
			RateLimitPerMin: atoi(getenv("RATE_LIMIT_PER_MIN", "30")),
		},
		Queue: QueueConfig{
			AMQPURL:  os.Getenv("AMQP_URL"),
			Exchange: getenv("AMQP_EXCHANGE", "auth.events"),
		},
		CORS: CORSConfig{
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		DevMode: os.Getenv("APP_ENV") != "production",
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}
