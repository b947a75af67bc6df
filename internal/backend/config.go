package backend

import (
	"fmt"

	"paydue/internal/config"
)

// StoreType selects the database the repository runs on.
type StoreType string

const (
	SQLiteStore   StoreType = "sqlite"
	PostgresStore StoreType = "postgres"
)

func (t StoreType) String() string {
	return string(t)
}

func (t StoreType) IsValid() bool {
	switch t {
	case SQLiteStore, PostgresStore:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs to stand a backend up.
type Config struct {
	Type StoreType

	SQLiteDBPath string
	PostgresDSN  string

	// AMQP is optional; without it mark-paid relies on the periodic
	// export pass alone.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	storeType := StoreType(appConfig.StoreBackend)
	if !storeType.IsValid() {
		return Config{}, fmt.Errorf("invalid store backend in config: %s", appConfig.StoreBackend)
	}

	return Config{
		Type:         storeType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		PostgresDSN:  appConfig.PostgresDSN,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid store type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteStore:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite store")
		}
	case PostgresStore:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN is required for postgres store")
		}
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}

	return nil
}
