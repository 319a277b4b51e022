package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development"`
	Log         logger.Config `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Calendar struct {
		File     string        `yaml:"file" default:"data/events.xlsx"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"5m"`
	} `yaml:"calendar"`
	Source struct {
		Type       string  `yaml:"type" default:"clickhouse"` // clickhouse | postgres
		MaxLineQty float64 `yaml:"max_line_qty" default:"50"`
	} `yaml:"source"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled" default:"true"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"sales"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"60s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"120s"`
		SalesTable       string        `yaml:"sales_table" default:"sales_lines"`
		RunsTable        string        `yaml:"runs_table" default:"forecast_runs"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN          string `yaml:"dsn"`
		Host         string `yaml:"host" default:"localhost"`
		Port         int    `yaml:"port" default:"5432"`
		User         string `yaml:"user" default:"postgres"`
		Password     string `yaml:"password"`
		Database     string `yaml:"database" default:"sales"`
		SSLMode      string `yaml:"ssl_mode" default:"disable"`
		SalesTable   string `yaml:"sales_table" default:"sales_lines"`
		BranchTable  string `yaml:"branch_table" default:"branches"`
		MaxOpenConns int    `yaml:"max_open_conns" default:"8"`
	} `yaml:"postgres"`
	Engine struct {
		Type            string        `yaml:"type" default:"http"` // http | additive
		ServiceURL      string        `yaml:"service_url" default:"http://localhost:8000"`
		Timeout         time.Duration `yaml:"timeout" default:"2m"`
		RetryMaxElapsed time.Duration `yaml:"retry_max_elapsed" default:"30s"`
		IntervalWidth   float64       `yaml:"interval_width" default:"0.8"`
		Serialize       bool          `yaml:"serialize"`
	} `yaml:"engine"`
	Batch struct {
		Dataset     string        `yaml:"dataset" default:"default"`
		OutputDir   string        `yaml:"output_dir" default:"output"`
		Start       string        `yaml:"start" default:"2022-01-01"`
		End         string        `yaml:"end" default:"2025-07-31"`
		Cutoff      string        `yaml:"cutoff" default:"2025-01-01"`
		HorizonDays int           `yaml:"horizon_days" default:"212"`
		ItemTimeout time.Duration `yaml:"item_timeout" default:"5m"`
		Workers     int           `yaml:"workers" default:"1"`
		LockTTL     time.Duration `yaml:"lock_ttl" default:"2h"`
	} `yaml:"batch"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		SeriesTTL     time.Duration `yaml:"series_ttl" default:"30m"`
		CategoriesTTL time.Duration `yaml:"categories_ttl" default:"1h"`
	} `yaml:"cache"`
	Queue struct {
		Name         string        `yaml:"name" default:"salescast"`
		Workers      int           `yaml:"workers" default:"1"`
		RetryLimit   int           `yaml:"retry_limit"`
		PollInterval time.Duration `yaml:"poll_interval" default:"1s"`
	} `yaml:"queue"`
	RateLimit struct {
		BatchCapacity   float64 `yaml:"batch_capacity" default:"3"`
		BatchRefillRate float64 `yaml:"batch_refill_per_sec" default:"0.01"`
	} `yaml:"rate_limit"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		ResultsTopic  string   `yaml:"results_topic" default:"forecast.results"`
		RequestsTopic string   `yaml:"requests_topic" default:"sales.refreshed"`
		LogTopic      string   `yaml:"log_topic" default:"salescast.logs"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1"`
		Compression   string   `yaml:"compression" default:"snappy"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"salescast"`
			Workers    int           `yaml:"workers" default:"1"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"500ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"10s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"sales.refreshed.dlq"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file. Missing keys take struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, then applies SALESCAST_* overrides.
func LoadWithEnv(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("SALESCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("SALESCAST_SOURCE"); v != "" {
		c.Source.Type = v
	}
	if v := getenv("SALESCAST_DATASET"); v != "" {
		c.Batch.Dataset = v
	}
	if v := getenv("SALESCAST_OUTPUT_DIR"); v != "" {
		c.Batch.OutputDir = v
	}
	if v := getenv("SALESCAST_CALENDAR_FILE"); v != "" {
		c.Calendar.File = v
	}
	if v := getenv("SALESCAST_ENGINE_URL"); v != "" {
		c.Engine.ServiceURL = v
	}
	if v := getenv("SALESCAST_ENGINE"); v != "" {
		c.Engine.Type = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("SALESCAST_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Batch.Workers = n
		}
	}
}

// Validate checks if the configuration is valid. A failure here is fatal for
// the whole run: no batch item can proceed without a source or calendar.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return errors.New("environment is required")
	}
	if c.Calendar.File == "" {
		return errors.New("calendar.file is required")
	}
	switch c.Source.Type {
	case "clickhouse":
		if c.ClickHouse.Host == "" || c.ClickHouse.Database == "" {
			return errors.New("clickhouse.host and clickhouse.database are required for source.type=clickhouse")
		}
	case "postgres":
		if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.User == "") {
			return errors.New("postgres.dsn or postgres.host+user are required for source.type=postgres")
		}
	default:
		return fmt.Errorf("source.type must be 'clickhouse' or 'postgres', got '%s'", c.Source.Type)
	}
	switch c.Engine.Type {
	case "http":
		if c.Engine.ServiceURL == "" {
			return errors.New("engine.service_url is required for engine.type=http")
		}
	case "additive":
	default:
		return fmt.Errorf("engine.type must be 'http' or 'additive', got '%s'", c.Engine.Type)
	}
	if c.Engine.IntervalWidth <= 0 || c.Engine.IntervalWidth >= 1 {
		return fmt.Errorf("engine.interval_width must be in (0,1), got %v", c.Engine.IntervalWidth)
	}
	if c.Batch.HorizonDays < 1 || c.Batch.HorizonDays > 365 {
		return fmt.Errorf("batch.horizon_days must be within 1..365, got %d", c.Batch.HorizonDays)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be >= 1, got %d", c.Batch.Workers)
	}
	if c.Batch.OutputDir == "" {
		return errors.New("batch.output_dir is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// PostgresDSN returns the configured DSN or builds a lib/pq key/value DSN.
func (c *Config) PostgresDSN() string {
	if c.Postgres.DSN != "" {
		return c.Postgres.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password,
		c.Postgres.Database, c.Postgres.SSLMode)
}
