package testutil

import (
	"fmt"
	"os"
)

// DatabaseConfig points integration tests at an existing server.
type DatabaseConfig struct {
	URL string
}

// GetDatabaseConfig reads the database location from the environment. DATABASE_URL
// wins over the DATABASE_HOST family. An empty URL means a container is started.
func GetDatabaseConfig() DatabaseConfig {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return DatabaseConfig{URL: u}
	}

	host := os.Getenv("DATABASE_HOST")
	if host == "" {
		return DatabaseConfig{}
	}
	return DatabaseConfig{
		URL: buildDatabaseURL(
			getEnv("DATABASE_USER", "postgres"),
			getEnv("DATABASE_PASSWORD", ""),
			host,
			getEnv("DATABASE_PORT", "5432"),
			getEnv("DATABASE_NAME", "postgres"),
			getEnv("DATABASE_SSLMODE", "prefer"),
		),
	}
}

func buildDatabaseURL(user, password, host, port, dbname, sslmode string) string {
	if password != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			user, password, host, port, dbname, sslmode)
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s",
		user, host, port, dbname, sslmode)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
