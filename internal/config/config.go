package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AdminBotToken string
	UserBotToken  string
	AdminIDs      []int64

	DBDriver         string
	DBDataSourceName string
	MigrationsDir    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MediaDir string

	SpreadsheetID   string
	CredentialsPath string

	PollInterval time.Duration
	SendDelay    time.Duration
	SessionTTL   time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: could not load .env file, using environment variables")
	}

	config := &Config{}

	config.AdminBotToken = os.Getenv("ADMIN_BOT_TOKEN")
	if config.AdminBotToken == "" {
		return nil, fmt.Errorf("ADMIN_BOT_TOKEN is required")
	}
	config.UserBotToken = os.Getenv("USER_BOT_TOKEN")
	if config.UserBotToken == "" {
		return nil, fmt.Errorf("USER_BOT_TOKEN is required")
	}

	admins, err := ParseAdminIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_IDS: %w", err)
	}
	if len(admins) == 0 {
		return nil, fmt.Errorf("ADMIN_IDS must list at least one operator id")
	}
	config.AdminIDs = admins

	config.DBDriver = "postgres"

	dbHost := getEnvOrDefault("SHOPBOT_DB_HOST", "localhost")
	dbPort := getEnvOrDefault("SHOPBOT_DB_PORT", "5432")
	dbName := getEnvOrDefault("SHOPBOT_DB_DATABASE", "shopbot")
	dbUser := getEnvOrDefault("SHOPBOT_DB_USERNAME", "shopbot")
	dbPassword := getEnvOrDefault("SHOPBOT_DB_PASSWORD", "shopbot")

	config.DBDataSourceName = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPassword, dbHost, dbPort, dbName)
	config.MigrationsDir = getEnvOrDefault("MIGRATIONS_DIR", "migrations")

	redisHost := getEnvOrDefault("SHOPBOT_REDIS_HOST", "localhost")
	redisPort := getEnvOrDefault("SHOPBOT_REDIS_PORT", "6379")
	config.RedisAddr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	config.RedisPassword = os.Getenv("SHOPBOT_REDIS_PASSWORD")
	if db := os.Getenv("SHOPBOT_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			config.RedisDB = n
		}
	}

	config.MediaDir = getEnvOrDefault("MEDIA_DIR", "media")
	config.SpreadsheetID = os.Getenv("GSHEET_ANALYTICS_ID")
	config.CredentialsPath = getEnvOrDefault("GOOGLE_CREDENTIALS_JSON", "credentials.json")

	config.PollInterval = durationOrDefault("POLL_INTERVAL", time.Minute)
	config.SendDelay = durationOrDefault("SEND_DELAY", 100*time.Millisecond)
	config.SessionTTL = durationOrDefault("SESSION_TTL", 30*time.Minute)

	return config, nil
}

// ParseAdminIDs splits a comma-separated allow-list of operator ids.
func ParseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Config) IsAdmin(id int64) bool {
	for _, admin := range c.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
