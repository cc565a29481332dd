package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Logging     struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		ErrorTopic string `yaml:"error_topic"` // aggregated error logs, kafka backends only
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Scanner struct {
		Interval          time.Duration      `yaml:"interval"`
		CycleBudget       time.Duration      `yaml:"cycle_budget"`
		IngestBudget      time.Duration      `yaml:"ingest_budget"`
		Workers           int                `yaml:"workers"`
		CacheCapacity     int                `yaml:"cache_capacity"`
		PriceWindow       int                `yaml:"price_window"`
		VolumeWindow      int                `yaml:"volume_window"`
		CatalystRetention time.Duration      `yaml:"catalyst_retention"`
		Weights           map[string]float64 `yaml:"weights"`
		Pillars           struct {
			MinPrice      float64       `yaml:"min_price"`
			MaxPrice      float64       `yaml:"max_price"`
			LookbackTicks int           `yaml:"lookback_ticks"`
			MaxROCPct     float64       `yaml:"max_roc_pct"`
			RVolTarget    float64       `yaml:"rvol_target"`
			FreshAge      time.Duration `yaml:"fresh_age"`
			RecentAge     time.Duration `yaml:"recent_age"`
			SmallFloatMax float64       `yaml:"small_float_max"`
			MidFloatMax   float64       `yaml:"mid_float_max"`
		} `yaml:"pillars"`
	} `yaml:"scanner"`
	Feed struct {
		Type           string        `yaml:"type"` // websocket, kafka, replay
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		Topic          string        `yaml:"topic"` // kafka feed source topic
		ReplayFile     string        `yaml:"replay_file"`
		ReplayBatch    int           `yaml:"replay_batch"`
		BufferSize     int           `yaml:"buffer_size"`
		MaxSymbolRPS   int           `yaml:"max_symbol_rps"` // 0 disables intake throttling
	} `yaml:"feed"`
	Universe struct {
		Symbols    []string `yaml:"symbols"`
		ResyncSpec string   `yaml:"resync_spec"` // cron, empty disables
	} `yaml:"universe"`
	Baseline struct {
		Window        string        `yaml:"window"` // 7d, 30d, 90d
		Table         string        `yaml:"table"`
		WarmSpec      string        `yaml:"warm_spec"` // cron, empty disables
		SessionLength time.Duration `yaml:"session_length"`
		CacheTTL      time.Duration `yaml:"cache_ttl"`
	} `yaml:"baseline"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled   bool   `yaml:"enabled"`
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		NewsQueue string `yaml:"news_queue"` // queue name for catalyst news events
	} `yaml:"redis"`
	Fundamentals struct {
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		Timeout     time.Duration `yaml:"timeout"`
		RefreshSpec string        `yaml:"refresh_spec"` // cron, empty disables
	} `yaml:"fundamentals"`
	Backend struct {
		Type  string `yaml:"type"`  // kafka, clickhouse, both, log
		Topic string `yaml:"topic"` // results topic for kafka backends
		Table string `yaml:"table"` // results table for clickhouse backends
	} `yaml:"backend"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("FEED_TYPE"); v != "" {
		c.Feed.Type = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Universe.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FEED_TOPIC"); v != "" {
		c.Feed.Topic = v
	}
	if v := os.Getenv("RESULTS_TOPIC"); v != "" {
		c.Backend.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("FUNDAMENTALS_API_KEY"); v != "" {
		c.Fundamentals.APIKey = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case "kafka", "clickhouse", "both", "log":
	case "":
		return fmt.Errorf("backend.type is required")
	default:
		return fmt.Errorf("backend.type must be 'kafka', 'clickhouse', 'both' or 'log', got '%s'", c.Backend.Type)
	}
	if (c.Backend.Type == "kafka" || c.Backend.Type == "both") && c.Backend.Topic == "" {
		return fmt.Errorf("backend.topic is required for backend.type '%s'", c.Backend.Type)
	}
	switch c.Feed.Type {
	case "websocket":
		if c.Feed.WebSocketURL == "" {
			return fmt.Errorf("feed.websocket_url is required for the websocket feed")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers are required for the kafka feed")
		}
		if c.Feed.Topic == "" {
			return fmt.Errorf("feed.topic is required for the kafka feed")
		}
	case "replay":
		if c.Feed.ReplayFile == "" {
			return fmt.Errorf("feed.replay_file is required for the replay feed")
		}
	case "":
		return fmt.Errorf("feed.type is required")
	default:
		return fmt.Errorf("feed.type must be 'websocket', 'kafka' or 'replay', got '%s'", c.Feed.Type)
	}
	if (c.Backend.Type == "kafka" || c.Backend.Type == "both") && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers are required for backend.type '%s'", c.Backend.Type)
	}
	if len(c.Universe.Symbols) == 0 {
		return fmt.Errorf("universe.symbols cannot be empty")
	}
	switch c.Baseline.Window {
	case "", "7d", "30d", "90d":
	default:
		return fmt.Errorf("baseline.window must be '7d', '30d' or '90d', got '%s'", c.Baseline.Window)
	}
	for name, w := range c.Scanner.Weights {
		if w < 0 {
			return fmt.Errorf("scanner.weights.%s must not be negative", name)
		}
	}
	return nil
}
