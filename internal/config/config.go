package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds everything read from the environment at startup.
type Config struct {
	Port          string
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string

	MLServiceURL     string
	GeocoderURL      string
	ReportServiceURL string

	TelegramBotToken string
	MunicipalChatID  int64

	EscalationCron string
	UploadDir      string
	ClientURL      string
}

// Load builds the configuration from environment variables, falling back to
// development defaults. godotenv is expected to have been loaded by main.
func Load() *Config {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			getenv("DB_HOST", "localhost"),
			getenv("DB_USER", "user"),
			getenv("DB_PASSWORD", "password"),
			getenv("DB_NAME", "civicgodb"),
			getenv("DB_PORT", "5432"),
		)
	}

	chatID, _ := strconv.ParseInt(os.Getenv("MUNICIPAL_CHAT_ID"), 10, 64)

	return &Config{
		Port:          getenv("PORT", "8080"),
		DatabaseDSN:   dsn,
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     getenv("JWT_SECRET", "civicgo_dev_secret"),

		MLServiceURL:     os.Getenv("ML_SERVICE_URL"),
		GeocoderURL:      getenv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		ReportServiceURL: os.Getenv("REPORT_SERVICE_URL"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		MunicipalChatID:  chatID,

		EscalationCron: getenv("ESCALATION_CRON", DefaultEscalationCron),
		UploadDir:      getenv("UPLOAD_DIR", "uploads"),
		ClientURL:      getenv("CLIENT_URL", "http://localhost:5173"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
