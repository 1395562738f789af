package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ServiceName    = "dc-replenish"
	ServiceVersion = "0.1.0"
)

const (
	TracesPath    = "/otlp/v1/traces"
	LogsPath      = "/otlp/v1/logs"
	ExportTimeout = 30 * time.Second
	MaxQueueSize  = 2048

	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaBatchSize    = 100
)

const (
	TransportGRPC = "grpc"
	TransportHTTP = "http"

	StoreRedis  = "redis"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	NodeName string
	NodeAddr string
	HubURL   string

	HTTPListen    string
	GRPCListen    string
	PeerTransport string

	StoreDriver string
	RedisAddr   string
	MySQLDSN    string

	PeerTimeout      time.Duration
	PeerMaxAttempts  int
	PeerRetryDelay   time.Duration
	DirectoryTimeout time.Duration
	NotifyTimeout    time.Duration
	IdempotencyTTL   time.Duration

	WorkerCount      int
	QueueSize        int
	ReorderThreshold int
	ReorderQuantity  int

	KafkaBroker    string
	KafkaTopic     string
	OtelEndpoint   string
	OtelAuthHeader string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		NodeName:       os.Getenv("NODE_NAME"),
		NodeAddr:       os.Getenv("NODE_ADDR"),
		HubURL:         os.Getenv("HUB_URL"),
		HTTPListen:     getenv("HTTP_LISTEN", ":8080"),
		GRPCListen:     getenv("GRPC_LISTEN", ":50051"),
		PeerTransport:  getenv("PEER_TRANSPORT", TransportGRPC),
		StoreDriver:    getenv("STORE_DRIVER", StoreRedis),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		MySQLDSN:       getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/dcstock?parseTime=true"),
		KafkaBroker:    os.Getenv("KAFKA_BROKER"),
		KafkaTopic:     getenv("KAFKA_TOPIC", "stock-transfers"),
		OtelEndpoint:   os.Getenv("OTEL_ENDPOINT"),
		OtelAuthHeader: os.Getenv("OTEL_AUTH_HEADER"),
	}

	if cfg.NodeName == "" {
		return nil, fmt.Errorf("NODE_NAME environment variable is required")
	}
	if cfg.NodeAddr == "" {
		return nil, fmt.Errorf("NODE_ADDR environment variable is required")
	}
	if cfg.HubURL == "" {
		return nil, fmt.Errorf("HUB_URL environment variable is required")
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"PEER_TIMEOUT", 3 * time.Second, &cfg.PeerTimeout},
		{"PEER_RETRY_DELAY", 200 * time.Millisecond, &cfg.PeerRetryDelay},
		{"DIRECTORY_TIMEOUT", 5 * time.Second, &cfg.DirectoryTimeout},
		{"NOTIFY_TIMEOUT", 2 * time.Second, &cfg.NotifyTimeout},
		{"IDEMPOTENCY_TTL", 24 * time.Hour, &cfg.IdempotencyTTL},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"PEER_MAX_ATTEMPTS", 2, &cfg.PeerMaxAttempts},
		{"WORKER_COUNT", 4, &cfg.WorkerCount},
		{"QUEUE_SIZE", 100, &cfg.QueueSize},
		{"REORDER_THRESHOLD", 0, &cfg.ReorderThreshold},
		{"REORDER_QUANTITY", 0, &cfg.ReorderQuantity},
	}
	for _, i := range ints {
		if *i.dst, err = getInt(i.key, i.def); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.PeerTransport {
	case TransportGRPC, TransportHTTP:
	default:
		return fmt.Errorf("PEER_TRANSPORT must be %q or %q, got %q", TransportGRPC, TransportHTTP, c.PeerTransport)
	}

	switch c.StoreDriver {
	case StoreRedis, StoreMySQL, StoreMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of redis, mysql, memory, got %q", c.StoreDriver)
	}

	if c.PeerMaxAttempts < 1 {
		return fmt.Errorf("PEER_MAX_ATTEMPTS must be at least 1")
	}
	if c.PeerTimeout <= 0 || c.DirectoryTimeout <= 0 || c.NotifyTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.IdempotencyTTL < time.Second {
		return fmt.Errorf("IDEMPOTENCY_TTL must be at least 1s, got %s", c.IdempotencyTTL)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("QUEUE_SIZE must be at least 1")
	}
	if c.ReorderThreshold < 0 || c.ReorderQuantity < 0 {
		return fmt.Errorf("reorder settings must not be negative")
	}
	if c.ReorderThreshold > 0 && c.ReorderQuantity == 0 {
		return fmt.Errorf("REORDER_QUANTITY is required when REORDER_THRESHOLD is set")
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func getInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}
