package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Redis   RedisConfig
	DB      DBConfig
	Auth    AuthConfig
	Gateway GatewayConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

type AuthConfig struct {
	JWTSecret string
	// ServiceKey unlocks admin-only operations such as credential reset.
	// Empty disables those endpoints instead of failing startup.
	ServiceKey string
}

type GatewayConfig struct {
	// SecretKey is server-side only and must never reach the browser.
	SecretKey string
	// ClientKey is the public key handed to the checkout page.
	ClientKey string
	BaseURL   string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return Config{
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "salesdesk"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
			ServiceKey: getEnv("ADMIN_SERVICE_KEY", ""),
		},
		Gateway: GatewayConfig{
			SecretKey: getEnv("TOSS_SECRET_KEY", ""),
			ClientKey: getEnv("TOSS_CLIENT_KEY", ""),
			BaseURL:   getEnv("TOSS_API_BASE_URL", "https://api.tosspayments.com"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
