package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/client"
)

// Драйверы хранилища заказов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Драйверы хранилища корзин.
const (
	CartDriverMemory = "memory"
	CartDriverRedis  = "redis"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	CartDriver    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProductServiceURL  string
	ProfileServiceURL  string
	DeliveryServiceURL string
	HTTPConnectTimeout time.Duration
	HTTPReadTimeout    time.Duration

	KafkaBrokers []string
	RabbitMQURL  string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	LogLevel  string
	LogFormat string
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешней инфраструктуры.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:           ":8080",
		GRPCAddr:           ":50051",
		MetricsAddr:        ":9090",
		StorageDriver:      StorageDriverMemory,
		CartDriver:         CartDriverMemory,
		HTTPConnectTimeout: client.DefaultConnectTimeout,
		HTTPReadTimeout:    client.DefaultReadTimeout,
		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// LoadConfig читает необязательный .env и переопределяет значения переменными окружения.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	var errs []error

	setString(&cfg.HTTPAddr, "OMS_HTTP_ADDR")
	setString(&cfg.GRPCAddr, "OMS_GRPC_ADDR")
	setString(&cfg.MetricsAddr, "OMS_METRICS_ADDR")
	setString(&cfg.StorageDriver, "OMS_STORAGE_DRIVER")
	setString(&cfg.PostgresDSN, "OMS_POSTGRES_DSN")
	setString(&cfg.CartDriver, "OMS_CART_DRIVER")
	setString(&cfg.RedisAddr, "OMS_REDIS_ADDR")
	setString(&cfg.RedisPassword, "OMS_REDIS_PASSWORD")
	setString(&cfg.ProductServiceURL, "OMS_PRODUCT_SERVICE_URL")
	setString(&cfg.ProfileServiceURL, "OMS_PROFILE_SERVICE_URL")
	setString(&cfg.DeliveryServiceURL, "OMS_DELIVERY_SERVICE_URL")
	setString(&cfg.RabbitMQURL, "OMS_RABBITMQ_URL")
	setString(&cfg.LogLevel, "OMS_LOG_LEVEL")
	setString(&cfg.LogFormat, "OMS_LOG_FORMAT")

	errs = append(errs,
		setBool(&cfg.PostgresAutoMigrate, "OMS_POSTGRES_AUTO_MIGRATE"),
		setInt(&cfg.RedisDB, "OMS_REDIS_DB"),
		setInt(&cfg.OutboxBatchSize, "OMS_OUTBOX_BATCH_SIZE"),
		setDuration(&cfg.HTTPConnectTimeout, "OMS_HTTP_CONNECT_TIMEOUT"),
		setDuration(&cfg.HTTPReadTimeout, "OMS_HTTP_READ_TIMEOUT"),
		setDuration(&cfg.OutboxPollInterval, "OMS_OUTBOX_POLL_INTERVAL"),
	)

	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		cfg.KafkaBrokers = splitList(raw)
	}

	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.CartDriver = strings.ToLower(strings.TrimSpace(cfg.CartDriver))

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("OMS_POSTGRES_DSN is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	switch c.CartDriver {
	case CartDriverMemory:
	case CartDriverRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("OMS_REDIS_ADDR is required for redis cart store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported cart driver %q", c.CartDriver))
	}

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("OMS_HTTP_ADDR must not be empty"))
	}
	if c.HTTPConnectTimeout <= 0 || c.HTTPReadTimeout <= 0 {
		errs = append(errs, errors.New("http client timeouts must be positive"))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("OMS_OUTBOX_BATCH_SIZE must be positive"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("OMS_LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

// UsesExternalServices сообщает, настроены ли адреса всех трёх внешних сервисов.
func (c Config) UsesExternalServices() bool {
	return c.ProductServiceURL != "" && c.ProfileServiceURL != "" && c.DeliveryServiceURL != ""
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}

// setDuration принимает как "1s", так и число миллисекунд.
func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
