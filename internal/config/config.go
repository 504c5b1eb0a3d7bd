package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Port       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	JWTSecret  string

	AppEnv   string // development, test or production
	LogLevel string

	// StoreDriver selects the persistence backend: postgres or memory.
	StoreDriver           string
	AllocationMaxAttempts int
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Load reads .env (when present) and the process environment.
func Load(dotenvFiles ...string) (*Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, errors.Wrapf(err, "load %s", f)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat %s", f)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "defense_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET", "supersecret_change_me")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("ALLOCATION_MAX_ATTEMPTS", 3)
	v.AutomaticEnv()

	cfg := &Config{
		Port:                  v.GetString("PORT"),
		DBHost:                v.GetString("DB_HOST"),
		DBPort:                v.GetString("DB_PORT"),
		DBUser:                v.GetString("DB_USER"),
		DBPassword:            v.GetString("DB_PASSWORD"),
		DBName:                v.GetString("DB_NAME"),
		DBSSLMode:             v.GetString("DB_SSLMODE"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		AppEnv:                strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:              strings.ToLower(v.GetString("LOG_LEVEL")),
		StoreDriver:           strings.ToLower(v.GetString("STORE_DRIVER")),
		AllocationMaxAttempts: v.GetInt("ALLOCATION_MAX_ATTEMPTS"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		return errors.Errorf("STORE_DRIVER must be %s or %s, got %q", DriverPostgres, DriverMemory, c.StoreDriver)
	}
	if c.AllocationMaxAttempts < 1 {
		return errors.Errorf("ALLOCATION_MAX_ATTEMPTS must be positive, got %d", c.AllocationMaxAttempts)
	}
	if c.AppEnv == "production" && c.JWTSecret == "supersecret_change_me" {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
