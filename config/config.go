// Package config holds the service configuration, bound from the
// environment.
package config

import (
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string `env:"APP_NAME" env-default:"clover-api"`
	Port                          int    `env:"PORT" env-default:"3004"`
	Version                       string `env:"APP_VERSION" env-default:"dev"`
	LogLevel                      string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool   `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int    `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int    `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	StartupMaxAttempts            int    `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Aggregation timing
	CooldownSeconds          int     `env:"COOLDOWN_SECONDS" env-default:"90"`
	FinalizeAfterBothSeconds int     `env:"FINALIZE_AFTER_BOTH_SECONDS" env-default:"20"`
	CompleteIdleSeconds      int     `env:"COMPLETE_IDLE_SECONDS" env-default:"30"`
	MinConfidence            float64 `env:"MIN_CONFIDENCE" env-default:"0.1"`
	ImmediateConfidence      float64 `env:"IMMEDIATE_CONFIDENCE" env-default:"0.8"`
	SweepIntervalSeconds     int     `env:"SWEEP_INTERVAL_SECONDS" env-default:"30"`

	// Extraction
	PhoneCountryCode string `env:"PHONE_COUNTRY_CODE" env-default:"373"`

	// Store backend: memory, redis, or postgres
	StoreBackend    string `env:"STORE_BACKEND" env-default:"memory"`
	RecordKeyPrefix string `env:"RECORD_KEY_PREFIX" env-default:"clover:record:"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// PostgreSQL
	DatabaseHost                string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                int           `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"clover"`
	DatabaseSSLMode             string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`

	// Kafka Consumer (chat message ingestion)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaInputTopic      string   `env:"KAFKA_INPUT_TOPIC" env-default:"chat-messages"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"clover-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka Producer (customer export events)
	KafkaExportTopic   string `env:"KAFKA_EXPORT_TOPIC" env-default:"customer-exports"`
	KafkaExportEnabled bool   `env:"KAFKA_EXPORT_ENABLED" env-default:"true"`
	KafkaBatchSize     int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout  int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks  int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression   string `env:"KAFKA_COMPRESSION" env-default:"snappy"`
}

// Load reads .env when present and binds the environment to a Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c Config) FinalizeAfterBoth() time.Duration {
	return time.Duration(c.FinalizeAfterBothSeconds) * time.Second
}

func (c Config) CompleteIdle() time.Duration {
	return time.Duration(c.CompleteIdleSeconds) * time.Second
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// RecordTTL is how long an untouched record survives before eviction,
// twice the cooldown so the sweep always sees it first.
func (c Config) RecordTTL() time.Duration {
	return 2 * c.Cooldown()
}
