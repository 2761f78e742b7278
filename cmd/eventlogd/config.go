package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	engineMemory   = "memory"
	enginePostgres = "postgres"

	adapterPGX  = "pgx"
	adapterSQL  = "sql"
	adapterSQLX = "sqlx"
)

var ErrEmptyPostgresDSN = errors.New("postgres engine requires a non-empty dsn")

// Config is the YAML configuration of eventlogd.
type Config struct {
	Engine   string         `yaml:"engine"`
	LogLevel string         `yaml:"logLevel"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig configures the Postgres engine.
type PostgresConfig struct {
	Adapter    string `yaml:"adapter"`
	DSN        string `yaml:"dsn"`
	ReplicaDSN string `yaml:"replicaDsn"`
	TableName  string `yaml:"tableName"`
}

// DefaultConfig returns the configuration used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Engine:   engineMemory,
		LogLevel: "info",
		Postgres: PostgresConfig{
			Adapter: adapterPGX,
		},
	}
}

// LoadConfig reads and validates a YAML config file. An empty path yields the
// default configuration.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path != "" {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", readErr)
		}

		if unmarshalErr := yaml.Unmarshal(raw, &config); unmarshalErr != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
		}
	}

	if validateErr := config.validate(); validateErr != nil {
		return Config{}, validateErr
	}

	return config, nil
}

func (c Config) validate() error {
	switch c.Engine {
	case engineMemory:
		return nil

	case enginePostgres:
		if c.Postgres.DSN == "" {
			return ErrEmptyPostgresDSN
		}

		switch c.Postgres.Adapter {
		case adapterPGX, adapterSQL, adapterSQLX, "":
			return nil
		default:
			return fmt.Errorf("unknown postgres adapter %q: must be one of pgx, sql, sqlx", c.Postgres.Adapter)
		}

	default:
		return fmt.Errorf("unknown engine %q: must be one of memory, postgres", c.Engine)
	}
}
