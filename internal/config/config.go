package config

import (
	"os"
	"strconv"

	"hdmed/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Estimator EstimatorConfig
}

// DatabaseConfig holds database connection settings. URL is optional; the
// CLI and server run without persistence when it is empty.
type DatabaseConfig struct {
	URL     string
	Driver  string
	Enabled bool
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// EstimatorConfig holds the default estimator settings applied when a
// request does not override them.
type EstimatorConfig struct {
	Trim       float64
	FewSplits  bool
	Normalized bool
	Seed       int64
	CVFolds    int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	serverConfig, err := loadServerConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load server configuration")
	}
	config.Server = *serverConfig

	estConfig, err := loadEstimatorConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load estimator configuration")
	}
	config.Estimator = *estConfig

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	return &DatabaseConfig{
		URL:     url,
		Driver:  getEnv("DATABASE_DRIVER", "postgres"),
		Enabled: url != "",
	}, nil
}

func loadServerConfig() (*ServerConfig, error) {
	return &ServerConfig{
		Port:    getEnv("SERVER_PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "release"),
	}, nil
}

func loadEstimatorConfig() (*EstimatorConfig, error) {
	trim, err := getEnvFloat("ESTIMATOR_TRIM", 0.01)
	if err != nil {
		return nil, errors.ConfigInvalid("ESTIMATOR_TRIM must be a float")
	}
	if trim < 0 || trim >= 1 {
		return nil, errors.ConfigInvalid("ESTIMATOR_TRIM must lie in [0,1)")
	}

	seed, err := getEnvInt64("ESTIMATOR_SEED", 12345)
	if err != nil {
		return nil, errors.ConfigInvalid("ESTIMATOR_SEED must be an integer")
	}

	cvFolds, err := getEnvInt("ESTIMATOR_CV_FOLDS", 3)
	if err != nil || cvFolds < 1 {
		return nil, errors.ConfigInvalid("ESTIMATOR_CV_FOLDS must be a positive integer")
	}

	return &EstimatorConfig{
		Trim:       trim,
		FewSplits:  getEnvBool("ESTIMATOR_FEW_SPLITS", false),
		Normalized: getEnvBool("ESTIMATOR_NORMALIZED", false),
		Seed:       seed,
		CVFolds:    cvFolds,
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	if value := os.Getenv(key); value != "" {
		return strconv.Atoi(value)
	}
	return fallback, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	if value := os.Getenv(key); value != "" {
		return strconv.ParseInt(value, 10, 64)
	}
	return fallback, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		return strconv.ParseFloat(value, 64)
	}
	return fallback, nil
}
