package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvConfig holds the process settings read from the environment.
type EnvConfig struct {
	LogLevel  string
	LogFormat string
	// Workers is the default CV fold concurrency (AUTOML_WORKERS).
	Workers int
}

// LoadEnv reads an optional .env file and then the environment. Variables
// already set in the environment win over the file. A missing file is not an
// error.
func LoadEnv(files ...string) (*EnvConfig, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, err
		}
	}
	return &EnvConfig{
		LogLevel:  getEnv("AUTOML_LOG_LEVEL", "info"),
		LogFormat: getEnv("AUTOML_LOG_FORMAT", "json"),
		Workers:   getEnvAsInt("AUTOML_WORKERS", 1),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
