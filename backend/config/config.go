package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Debug              bool
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	JWTSecret          string
	ServerPort         string
	AllowedOrigins     string
	DefaultPhoneRegion string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		Debug:              strings.EqualFold(getEnv("DEBUG", "false"), "true"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "basirat"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		AllowedOrigins:     getEnv("ALLOWED_ORIGINS", "*"),
		DefaultPhoneRegion: getEnv("DEFAULT_PHONE_REGION", "UZ"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
