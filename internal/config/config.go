package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPPort      string `envconfig:"APP_PORT" default:"8080"`
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	Log           LogConfig
	Swagger       SwaggerConfig
	DB            DBConfig
	Mongo         MongoConfig
	Finalizer     FinalizerConfig
	Downstream    DownstreamConfig
	Kafka         KafkaConfig
}

type LogConfig struct {
	File  string `envconfig:"LOG_FILE" default:"webhook.log"`
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type SwaggerConfig struct {
	Enabled bool   `envconfig:"SWAGGER_ENABLED" default:"true"`
	Host    string `envconfig:"SWAGGER_HOST" default:"localhost:8080"`
}

type DBConfig struct {
	Host           string `envconfig:"POSTGRES_HOST"`
	Port           string `envconfig:"POSTGRES_PORT" default:"5432"`
	User           string `envconfig:"POSTGRES_USER"`
	Password       string `envconfig:"POSTGRES_PASSWORD"`
	DBName         string `envconfig:"POSTGRES_DB"`
	SSLMode        string `envconfig:"POSTGRES_SSLMODE"  default:"disable"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`
}

type MongoConfig struct {
	URI        string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	Database   string        `envconfig:"MONGO_DATABASE" default:"webhook"`
	Collection string        `envconfig:"MONGO_COLLECTION" default:"transactions"`
	Timeout    time.Duration `envconfig:"MONGO_TIMEOUT" default:"10s"`
}

type FinalizerConfig struct {
	Delay         time.Duration `envconfig:"FINALIZE_DELAY" default:"30s"`
	Timeout       time.Duration `envconfig:"FINALIZE_TIMEOUT" default:"10s"`
	Workers       int           `envconfig:"SCHEDULER_WORKERS" default:"8"`
	// QueueSize буфер задач, у которых задержка уже истекла
	QueueSize     int           `envconfig:"SCHEDULER_QUEUE_SIZE" default:"1024"`
	IntakeTimeout time.Duration `envconfig:"INTAKE_TIMEOUT" default:"400ms"`
}

type DownstreamConfig struct {
	Latency     time.Duration `envconfig:"DOWNSTREAM_LATENCY" default:"0s"`
	FailureRate float64       `envconfig:"DOWNSTREAM_FAILURE_RATE" default:"0"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"transactions-finalized"`
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
}

func NewConfig() (*Config, error) {
	envFile := "config.env"

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("warning: не удалось загрузить файл %s, используются только системные переменные окружения: %v", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case DriverPostgres:
		if c.DB.Host == "" || c.DB.User == "" || c.DB.DBName == "" {
			errs = append(errs, errors.New("POSTGRES_HOST, POSTGRES_USER и POSTGRES_DB обязательны для драйвера postgres"))
		}
	case DriverMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" || c.Mongo.Collection == "" {
			errs = append(errs, errors.New("MONGO_URI, MONGO_DATABASE и MONGO_COLLECTION обязательны для драйвера mongo"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("неизвестный STORAGE_DRIVER %q", c.StorageDriver))
	}

	if c.Finalizer.Delay < 0 {
		errs = append(errs, errors.New("FINALIZE_DELAY не может быть отрицательным"))
	}
	if c.Finalizer.Timeout < 0 {
		errs = append(errs, errors.New("FINALIZE_TIMEOUT не может быть отрицательным"))
	}
	if c.Downstream.Latency < 0 {
		errs = append(errs, errors.New("DOWNSTREAM_LATENCY не может быть отрицательным"))
	}
	if c.Finalizer.Timeout > 0 && c.Downstream.Latency >= c.Finalizer.Timeout {
		errs = append(errs, errors.New("DOWNSTREAM_LATENCY должен быть меньше FINALIZE_TIMEOUT"))
	}
	if c.Finalizer.Workers <= 0 {
		errs = append(errs, errors.New("SCHEDULER_WORKERS должен быть больше нуля"))
	}
	if c.Finalizer.QueueSize <= 0 {
		errs = append(errs, errors.New("SCHEDULER_QUEUE_SIZE должен быть больше нуля"))
	}
	if c.Finalizer.IntakeTimeout <= 0 {
		errs = append(errs, errors.New("INTAKE_TIMEOUT должен быть больше нуля"))
	}
	if c.Downstream.FailureRate < 0 || c.Downstream.FailureRate > 1 {
		errs = append(errs, errors.New("DOWNSTREAM_FAILURE_RATE должен быть в диапазоне [0, 1]"))
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		errs = append(errs, errors.New("KAFKA_BROKERS и KAFKA_TOPIC обязательны при KAFKA_ENABLED=true"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("неизвестный LOG_LEVEL %q", level)
	}
	return l, nil
}

func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func (d *DBConfig) MigrationURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}
