package config

import "time"

// APIConfig holds runtime configuration for the API service.
//
// It is constructed once at startup and passed to every component; nothing
// reads the environment after LoadAPIConfig returns.
type APIConfig struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	JWTSecret          string
	TokenTTL           time.Duration
	AllowedOrigin      string
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
//
// JWT_SECRET intentionally has no fallback: an unset secret must abort
// startup rather than sign tokens with a known default.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":3001"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://crewtrack:crewtrack@db:5432/crewtrack?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:          GetString("JWT_SECRET", ""),
		TokenTTL:           time.Duration(GetInt("TOKEN_TTL_HOURS", 168)) * time.Hour,
		AllowedOrigin:      GetString("CORS_ALLOWED_ORIGIN", "http://localhost:5173"),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
