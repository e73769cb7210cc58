package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBPort            string
	AppPort           string
	AppEnv            string
	JWTSecret         string
	MerchantID        string
	GatewayBaseURL    string
	CallbackBaseURL   string
	ReconcileInterval time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:            os.Getenv("DB_HOST"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            os.Getenv("DB_NAME"),
		DBPort:            os.Getenv("DB_PORT"),
		AppPort:           os.Getenv("APP_PORT"),
		AppEnv:            os.Getenv("APP_ENV"),
		JWTSecret:         os.Getenv("SECRET_KEY"),
		MerchantID:        os.Getenv("MERCHANT_ID"),
		GatewayBaseURL:    os.Getenv("GATEWAY_BASE_URL"),
		CallbackBaseURL:   os.Getenv("CALLBACK_BASE_URL"),
		ReconcileInterval: parseDuration(os.Getenv("RECONCILE_INTERVAL"), 10*time.Minute),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if cfg.GatewayBaseURL == "" {
		cfg.GatewayBaseURL = "https://sandbox.zarinpal.com"
	}

	return cfg
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
