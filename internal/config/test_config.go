package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads the database configuration for integration tests from TEST_DB_* variables.
// If any of them is missing, a Config with empty database values is returned
// so tests can fall back to their default DSN.
func LoadTestConfig() (*Config, error) {
	// The .env file is optional, tests usually run from the package directory
	_ = godotenv.Load("./../../.env")
	_ = godotenv.Load()

	cfg := &Config{}
	values := map[string]string{}
	for _, key := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
		v := os.Getenv(key)
		if v == "" {
			return cfg, nil
		}
		values[key] = v
	}

	port, err := strconv.Atoi(values["TEST_DB_PORT"])
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_DB_PORT: %w", err)
	}
	cfg.Database = DatabaseConfig{
		Host:     values["TEST_DB_HOST"],
		Port:     port,
		User:     values["TEST_DB_USER"],
		Password: values["TEST_DB_PASSWORD"],
		DBName:   values["TEST_DB_NAME"],
	}
	return cfg, nil
}
