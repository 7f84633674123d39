package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	APIPort            string `mapstructure:"API_PORT"`
	AppEnv             string `mapstructure:"APP_ENV"`
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSslMode  string `mapstructure:"DB_SSLMODE"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	LeaderboardBackend string `mapstructure:"LEADERBOARD_BACKEND"` // redis | memory
	LeaderboardKey     string `mapstructure:"LEADERBOARD_KEY"`

	GeminiAPIKey          string `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL         string `mapstructure:"GEMINI_BASE_URL"`
	GeminiModel           string `mapstructure:"GEMINI_MODEL"`
	GraderTimeoutSeconds  int    `mapstructure:"GRADER_TIMEOUT_SECONDS"`
	GraderMaxAttempts     int    `mapstructure:"GRADER_MAX_ATTEMPTS"`
	VerdictCacheTTLHours  int    `mapstructure:"VERDICT_CACHE_TTL_HOURS"`
	PvPWinXP              int    `mapstructure:"PVP_WIN_XP"`
	PvPPendingTTLMinutes  int    `mapstructure:"PVP_PENDING_TTL_MINUTES"`
	PvPActiveTTLHours     int    `mapstructure:"PVP_ACTIVE_TTL_HOURS"`
	NatsURL               string `mapstructure:"NATS_URL"`
	HooksAsync            bool   `mapstructure:"HOOKS_ASYNC"`
	RebuildSchedule       string `mapstructure:"LEADERBOARD_REBUILD_SCHEDULE"`
	ExpirySchedule        string `mapstructure:"MATCH_EXPIRY_SCHEDULE"`
	MaintenanceLockTTLSec int    `mapstructure:"MAINTENANCE_LOCK_TTL_SECONDS"`
	SeedFile              string `mapstructure:"SEED_FILE"`

	// Derived after unmarshalling.
	JWTKey    []byte        `mapstructure:"-"`
	JWTExp    time.Duration `mapstructure:"-"`
	DBConnStr string        `mapstructure:"-"`
}

var AppConfig *Config

var defaults = map[string]interface{}{
	"API_PORT":                     "8080",
	"APP_ENV":                      "development",
	"JWT_SECRET":                   "defaultsecret",
	"JWT_EXPIRATION_HOURS":         72,
	"DB_HOST":                      "localhost",
	"DB_PORT":                      "5432",
	"DB_USER":                      "user",
	"DB_PASSWORD":                  "password",
	"DB_NAME":                      "data_quest",
	"DB_SSLMODE":                   "disable",
	"REDIS_ADDR":                   "localhost:6379",
	"REDIS_PASSWORD":               "",
	"REDIS_DB":                     0,
	"LEADERBOARD_BACKEND":          "redis",
	"LEADERBOARD_KEY":              "leaderboard:global",
	"GEMINI_API_KEY":               "",
	"GEMINI_BASE_URL":              "https://generativelanguage.googleapis.com/v1beta",
	"GEMINI_MODEL":                 "gemini-2.5-flash",
	"GRADER_TIMEOUT_SECONDS":       30,
	"GRADER_MAX_ATTEMPTS":          3,
	"VERDICT_CACHE_TTL_HOURS":      24,
	"PVP_WIN_XP":                   100,
	"PVP_PENDING_TTL_MINUTES":      60,
	"PVP_ACTIVE_TTL_HOURS":         24,
	"NATS_URL":                     "",
	"HOOKS_ASYNC":                  true,
	"LEADERBOARD_REBUILD_SCHEDULE": "@every 1h",
	"MATCH_EXPIRY_SCHEDULE":        "@every 5m",
	"MAINTENANCE_LOCK_TTL_SECONDS": 300,
	"SEED_FILE":                    "seed/challenges.json",
}

// Load reads .env (if present) and the process environment into AppConfig.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	AppConfig = cfg
}

// FromEnv builds a Config from environment variables on top of the defaults.
func FromEnv() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	switch cfg.LeaderboardBackend {
	case "redis", "memory":
	default:
		return nil, fmt.Errorf("unknown LEADERBOARD_BACKEND %q", cfg.LeaderboardBackend)
	}

	cfg.JWTKey = []byte(cfg.JWTSecret)
	cfg.JWTExp = time.Duration(cfg.JWTExpirationHours) * time.Hour
	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode
	return cfg, nil
}

func (c *Config) GraderTimeout() time.Duration {
	return time.Duration(c.GraderTimeoutSeconds) * time.Second
}

func (c *Config) VerdictCacheTTL() time.Duration {
	return time.Duration(c.VerdictCacheTTLHours) * time.Hour
}

func (c *Config) PvPPendingTTL() time.Duration {
	return time.Duration(c.PvPPendingTTLMinutes) * time.Minute
}

func (c *Config) PvPActiveTTL() time.Duration {
	return time.Duration(c.PvPActiveTTLHours) * time.Hour
}

func (c *Config) MaintenanceLockTTL() time.Duration {
	return time.Duration(c.MaintenanceLockTTLSec) * time.Second
}
