package config

import (
	"os"
	"strings"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort       string
	DatabaseDriver   string
	DatabaseURL      string
	LogLevel         string
	LogFormat        string
	FinnhubAPIKey    string
	EngineConfigPath string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		DatabaseDriver:   getEnv("DATABASE_DRIVER", ""),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", ""),
		LogFormat:        getEnv("LOG_FORMAT", ""),
		FinnhubAPIKey:    getEnv("FINNHUB_API_KEY", ""),
		EngineConfigPath: getEnv("ENGINE_CONFIG_PATH", "config/engine.yaml"),
	}
}

// ApplyTo overrides engine settings with any values set in the environment
func (c *Config) ApplyTo(engine *shared.EngineConfiguration) {
	if c.DatabaseDriver != "" {
		engine.Database.Driver = strings.ToLower(c.DatabaseDriver)
	}
	if c.LogLevel != "" {
		engine.Logging.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		engine.Logging.Format = c.LogFormat
	}
	if c.FinnhubAPIKey != "" {
		engine.Provider.FinnhubAPIKey = c.FinnhubAPIKey
	}
	engine.ValidateAndApplyDefaults()
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
