package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			// A missing .env is fine in development, real variables may already be exported
			if _, statErr := os.Stat(".env"); os.IsNotExist(statErr) {
				return nil
			}
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL string
	// Payment gateway
	RAZORPAY_KEY_ID     string
	RAZORPAY_KEY_SECRET string
	RAZORPAY_BASE_URL   string
	RAZORPAY_TIMEOUT    time.Duration
	// Object storage (S3 compatible, e.g. DigitalOcean Spaces)
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_BUCKET     string
	SPACES_REGION     string
	SPACES_ENDPOINT   string
	SPACES_CDN_URL    string
	// Email
	EMAIL_PROVIDER   string // smtp, sendgrid, log
	SMTP_HOST        string
	SMTP_PORT        int
	SMTP_USERNAME    string
	SMTP_PASSWORD    string
	SENDGRID_API_KEY string
	MAIL_FROM        string
	APP_NAME         string
	APP_URL          string
	// Domain events
	KAFKA_BROKER   string
	KAFKA_TOPIC    string
	KAFKA_USERNAME string
	KAFKA_PASSWORD string
	// Error reporting
	ROLLBAR_TOKEN string
	// Misc
	CRON_ENABLED    bool
	ALLOWED_ORIGINS string
}

func Get() (*EnvironmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	smtpPort, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		smtpPort = 587
	}

	gatewayTimeout := 15 * time.Second
	if secs, err := strconv.Atoi(os.Getenv("RAZORPAY_TIMEOUT_SECONDS")); err == nil && secs > 0 {
		gatewayTimeout = time.Duration(secs) * time.Second
	}

	envVariables := &EnvironmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getEnvOrDefault("DB_HOST", "localhost"),
		DB_PORT:      getEnvOrDefault("DB_PORT", "5432"),
		DB_SSL_MODE:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		PORT:         port,
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: getEnvOrDefault("JWT_ISSUER", "elms-api"),
		// Redis
		REDIS_URL: getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		// Razorpay
		RAZORPAY_KEY_ID:     os.Getenv("RAZORPAY_KEY_ID"),
		RAZORPAY_KEY_SECRET: os.Getenv("RAZORPAY_KEY_SECRET"),
		RAZORPAY_BASE_URL:   getEnvOrDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		RAZORPAY_TIMEOUT:    gatewayTimeout,
		// Spaces
		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_BUCKET:     os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:     os.Getenv("SPACES_REGION"),
		SPACES_ENDPOINT:   os.Getenv("SPACES_ENDPOINT"),
		SPACES_CDN_URL:    os.Getenv("SPACES_CDN_URL"),
		// Email
		EMAIL_PROVIDER:   getEnvOrDefault("EMAIL_PROVIDER", "log"),
		SMTP_HOST:        getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTP_PORT:        smtpPort,
		SMTP_USERNAME:    os.Getenv("SMTP_USERNAME"),
		SMTP_PASSWORD:    os.Getenv("SMTP_PASSWORD"),
		SENDGRID_API_KEY: os.Getenv("SENDGRID_API_KEY"),
		MAIL_FROM:        getEnvOrDefault("MAIL_FROM", "noreply@elms.local"),
		APP_NAME:         getEnvOrDefault("APP_NAME", "E-LMS"),
		APP_URL:          getEnvOrDefault("APP_URL", "http://localhost:3000"),
		// Kafka
		KAFKA_BROKER:   os.Getenv("KAFKA_BROKER"),
		KAFKA_TOPIC:    getEnvOrDefault("KAFKA_TOPIC", "elms.events"),
		KAFKA_USERNAME: os.Getenv("KAFKA_USERNAME"),
		KAFKA_PASSWORD: os.Getenv("KAFKA_PASSWORD"),
		// Rollbar
		ROLLBAR_TOKEN: os.Getenv("ROLLBAR_TOKEN"),
		// Misc
		CRON_ENABLED:    os.Getenv("CRON_ENABLED") != "false", // Default to enabled
		ALLOWED_ORIGINS: getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
	}

	return envVariables, nil
}

// IsProduction reports whether the service runs with GO_ENV=production
func (e *EnvironmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
