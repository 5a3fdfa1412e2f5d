package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	PostgresConn  string
	AccessSecret  string
	RefreshSecret string
	UploadDir     string
	SecureCookies bool
	Mail          MailConfig
}

type MailConfig struct {
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	From     string
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads .env if present, then the environment. POSTGRES_CONN and the
// two token secrets are required.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:          getEnv("SERVER_ADDRESS", "0.0.0.0:8080"),
		PostgresConn:  os.Getenv("POSTGRES_CONN"),
		AccessSecret:  os.Getenv("JWT_SECRET"),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		SecureCookies: getEnv("SECURE_COOKIES", "true") == "true",
		Mail: MailConfig{
			SMTPHost: os.Getenv("SMTP_HOST"),
			SMTPPort: getEnv("SMTP_PORT", "587"),
			SMTPUser: os.Getenv("SMTP_USER"),
			SMTPPass: os.Getenv("SMTP_PASS"),
			From:     getEnv("MAIL_SENDER_EMAIL", "no-reply@marketplace.local"),
		},
	}

	if cfg.PostgresConn == "" {
		return cfg, errors.New("POSTGRES_CONN env variable is not set")
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return cfg, errors.New("JWT_SECRET and JWT_REFRESH_SECRET env variables are required")
	}
	return cfg, nil
}
