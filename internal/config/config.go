package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"peerprep/interview/internal/models"
)

// app config for the interview service
type Config struct {
	Port     string
	Provider string

	DBDriver    string // "postgres" | "sqlite"
	PostgresDSN string
	SQLitePath  string

	GatewayTimeout time.Duration
	Skills         []string
	RequireSession bool

	JWTSecret      string
	OperatorKey    string // guards the transcript endpoints; empty disables them
	RedisAddr      string
	AllowedOrigins []string

	Export ExportConfig

	OtelEnabled bool
}

// transcript export settings
type ExportConfig struct {
	Enabled  bool
	Schedule string
	Dir      string
	MinScore int
}

// loads configuration from environment variables, reading a local .env file first if present
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Port:     getEnvOrDefault("PORT", "8080"),
		Provider: getEnvOrDefault("AI_PROVIDER", "gemini"),

		DBDriver:    strings.ToLower(getEnvOrDefault("DB_DRIVER", "postgres")),
		PostgresDSN: postgresDSN(),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "interview.db"),

		GatewayTimeout: getEnvDuration("GATEWAY_TIMEOUT", 30*time.Second),
		Skills:         ParseSkills(os.Getenv("INTERVIEW_SKILLS")),
		RequireSession: getEnvBool("INTERVIEW_REQUIRE_SESSION", true),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		OperatorKey:    os.Getenv("OPERATOR_API_KEY"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		Export: ExportConfig{
			Enabled:  getEnvBool("TRANSCRIPT_EXPORT_ENABLED", false),
			Schedule: getEnvOrDefault("TRANSCRIPT_EXPORT_SCHEDULE", "0 2 * * *"),
			Dir:      getEnvOrDefault("TRANSCRIPT_EXPORT_DIR", "./exports"),
			MinScore: getEnvInt("TRANSCRIPT_EXPORT_MIN_SCORE", 7),
		},

		OtelEnabled: getEnvBool("OTEL_ENABLED", false),
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini")
	}
	if config.DBDriver != "postgres" && config.DBDriver != "sqlite" {
		return errors.New("unsupported DB_DRIVER: " + config.DBDriver + ". Supported: postgres, sqlite")
	}
	if config.GatewayTimeout <= 0 {
		return errors.New("GATEWAY_TIMEOUT must be positive")
	}
	if len(config.Skills) == 0 {
		return errors.New("INTERVIEW_SKILLS must name at least one skill")
	}
	if config.Export.MinScore < models.MinInteractionScore || config.Export.MinScore > models.MaxInteractionScore {
		return errors.New("TRANSCRIPT_EXPORT_MIN_SCORE must be between 1 and 10")
	}
	// Gemini validation is handled by gemini.NewConfig()
	return nil
}

// ParseSkills turns a comma separated list into a normalized, de-duplicated skill vocabulary.
// An empty list yields the default vocabulary.
func ParseSkills(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), models.DefaultSkills...)
	}
	seen := make(map[string]bool)
	skills := []string{}
	for _, item := range splitList(raw) {
		skill := NormalizeSkill(item)
		if skill == "" || seen[skill] {
			continue
		}
		seen[skill] = true
		skills = append(skills, skill)
	}
	return skills
}

// NormalizeSkill lowercases a skill name and joins words with underscores.
func NormalizeSkill(name string) string {
	return models.NormalizeSkill(name)
}

func postgresDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return "host=" + getEnvOrDefault("POSTGRES_HOST", "localhost") +
		" user=" + getEnvOrDefault("POSTGRES_USER", "postgres") +
		" password=" + getEnvOrDefault("POSTGRES_PASSWORD", "postgres") +
		" dbname=" + getEnvOrDefault("POSTGRES_DB", "interviews") +
		" port=" + getEnvOrDefault("POSTGRES_PORT", "5432") +
		" sslmode=" + getEnvOrDefault("POSTGRES_SSLMODE", "disable")
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
