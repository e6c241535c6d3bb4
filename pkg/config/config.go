package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/pkg/logger"
	"CryptoNotify/pkg/util"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development"`
	Log         logger.Config `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port" default:"8090"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Path          string        `yaml:"path" default:"/metrics"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"500ms"`
	} `yaml:"metrics"`
	// Endpoints are the external collaborators a client session needs to know about.
	Endpoints struct {
		APIBaseURL           string `yaml:"api_base_url" default:"http://localhost:8000/api"`
		WebSocketURL         string `yaml:"websocket_url" default:"ws://localhost:8000/ws/notifications"`
		MLServiceURL         string `yaml:"ml_service_url" default:"http://localhost:8001"`
		StripePublishableKey string `yaml:"stripe_publishable_key"`
	} `yaml:"endpoints"`
	Notifications struct {
		Profile             string          `yaml:"profile" default:"default"`
		MaxRecords          int             `yaml:"max_records" default:"100"`
		DisplayDuration     time.Duration   `yaml:"display_duration" default:"5s"`
		ReconnectDelay      time.Duration   `yaml:"reconnect_delay" default:"5s"`
		InitialFailureDelay time.Duration   `yaml:"initial_failure_delay" default:"10s"`
		PingInterval        time.Duration   `yaml:"ping_interval" default:"15s"`
		HandshakeTimeout    time.Duration   `yaml:"handshake_timeout" default:"10s"`
		TLSInsecureSkip     bool            `yaml:"tls_insecure_skip"`
		ChannelRPS          float64         `yaml:"channel_rps" default:"20"`
		ChannelBurst        float64         `yaml:"channel_burst" default:"40"`
		Settings            models.Settings `yaml:"settings"`
	} `yaml:"notifications"`
	Desktop struct {
		AppName      string        `yaml:"app_name" default:"CryptoAnalytics"`
		Icon         string        `yaml:"icon"`
		FocusURL     string        `yaml:"focus_url" default:"http://localhost:3000/notifications"`
		DismissAfter time.Duration `yaml:"dismiss_after" default:"5s"`
		// Permission is the answer given when the agent first asks for permission.
		Permission string `yaml:"permission" default:"granted"`
	} `yaml:"desktop"`
	Sound struct {
		BurstPerCue  float64 `yaml:"burst_per_cue" default:"2"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"0.5"`
	} `yaml:"sound"`
	History struct {
		Backend      string        `yaml:"backend" default:"none"`
		Table        string        `yaml:"table" default:"notifications"`
		BatchSize    int           `yaml:"batch_size" default:"50"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"2s"`
	} `yaml:"history"`
	// SNS fans exported history out to an SNS topic (history.backend=sns).
	SNS struct {
		Region          string `yaml:"region" default:"us-east-1"`
		TopicARN        string `yaml:"topic_arn"`
		Endpoint        string `yaml:"endpoint"`
		AccessKeyID     string `yaml:"access_key_id"`
		SecretAccessKey string `yaml:"secret_access_key"`
	} `yaml:"sns"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"notifications.history"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"200ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			Topic      string        `yaml:"topic" default:"notifications.inbound"`
			GroupID    string        `yaml:"group_id" default:"cryptonotify"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
			MaxMessage int           `yaml:"max_message_bytes" default:"65536"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"notify"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		PingAttempts     int           `yaml:"ping_attempts" default:"3"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		Prefix       string        `yaml:"prefix" default:"cryptonotify"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
	} `yaml:"redis"`
	// MemoryCache backs settings when Redis is disabled.
	MemoryCache struct {
		MaxSize         int           `yaml:"max_size" default:"1000"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
	} `yaml:"memory_cache"`
}

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.Notifications.Settings = models.DefaultSettings()
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
// A missing file is not an error: the defaults are a complete local-dev setup.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env files, the YAML config, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	loadDotEnv()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// loadDotEnv loads .env.local and .env if present. Already-set variables win.
func loadDotEnv() []string {
	var loaded []string
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}

func (c *Config) applyEnv() {
	if v := firstEnv("API_BASE_URL", "NEXT_PUBLIC_API_URL"); v != "" {
		c.Endpoints.APIBaseURL = v
	}
	if v := firstEnv("NOTIFICATIONS_WS_URL", "NEXT_PUBLIC_WS_URL"); v != "" {
		c.Endpoints.WebSocketURL = v
	}
	if v := firstEnv("ML_SERVICE_URL", "NEXT_PUBLIC_ML_SERVICE_URL"); v != "" {
		c.Endpoints.MLServiceURL = v
	}
	if v := firstEnv("STRIPE_PUBLISHABLE_KEY", "NEXT_PUBLIC_STRIPE_PUBLISHABLE_KEY"); v != "" {
		c.Endpoints.StripePublishableKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	c.Server.Port = util.ParseIntDefault(os.Getenv("SERVER_PORT"), c.Server.Port)
	c.Kafka.Consumer.Enabled = util.ParseBoolDefault(os.Getenv("KAFKA_CONSUMER_ENABLED"), c.Kafka.Consumer.Enabled)
	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		c.History.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SNS_TOPIC_ARN"); v != "" {
		c.SNS.TopicARN = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.SNS.Region = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Enabled = true
		c.Redis.Host = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Endpoints.WebSocketURL == "" {
		return fmt.Errorf("endpoints.websocket_url is required")
	}
	if !strings.HasPrefix(c.Endpoints.WebSocketURL, "ws://") && !strings.HasPrefix(c.Endpoints.WebSocketURL, "wss://") {
		return fmt.Errorf("endpoints.websocket_url must use ws:// or wss://, got '%s'", c.Endpoints.WebSocketURL)
	}
	if c.Notifications.MaxRecords <= 0 {
		return fmt.Errorf("notifications.max_records must be positive")
	}
	if c.Notifications.ReconnectDelay <= 0 || c.Notifications.InitialFailureDelay <= 0 {
		return fmt.Errorf("notifications reconnect delays must be positive")
	}
	switch c.History.Backend {
	case "none", "":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers are required for history.backend=kafka")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for history.backend=clickhouse")
		}
	case "sns":
		if c.SNS.TopicARN == "" || c.SNS.Region == "" {
			return fmt.Errorf("sns.topic_arn and sns.region are required for history.backend=sns")
		}
	default:
		return fmt.Errorf("history.backend must be 'none', 'kafka', 'clickhouse' or 'sns', got '%s'", c.History.Backend)
	}
	if c.Kafka.Consumer.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers are required when kafka.consumer.enabled")
	}
	switch c.Desktop.Permission {
	case "granted", "denied", "default":
	default:
		return fmt.Errorf("desktop.permission must be 'granted', 'denied' or 'default', got '%s'", c.Desktop.Permission)
	}
	return nil
}
