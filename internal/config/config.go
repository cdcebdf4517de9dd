package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Ingest    IngestConfig    `yaml:"ingest" envconfig:"INGEST"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig overrides the base directory used for data, exports and logs.
// An empty BaseDir means the executable directory.
type PathsConfig struct {
	BaseDir string `yaml:"base_dir" envconfig:"BASE_DIR"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// IngestConfig controls how uploaded line-lists are read
type IngestConfig struct {
	HeaderRow      int      `yaml:"header_row" envconfig:"HEADER_ROW"`
	CSVHeaderRow   int      `yaml:"csv_header_row" envconfig:"CSV_HEADER_ROW"`
	Sheet          string   `yaml:"sheet" envconfig:"SHEET"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
	Extensions     []string `yaml:"extensions" envconfig:"EXTENSIONS"`
}

// StoreConfig bounds the in-memory dataset store
type StoreConfig struct {
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL"`
	MaxDatasets   int           `yaml:"max_datasets" envconfig:"MAX_DATASETS"`
	SweepSchedule string        `yaml:"sweep_schedule" envconfig:"SWEEP_SCHEDULE"`
}

// ReportConfig holds summary report and dashboard sizing
type ReportConfig struct {
	Program          string `yaml:"program" envconfig:"PROGRAM"`
	TopDistricts     int    `yaml:"top_districts" envconfig:"TOP_DISTRICTS"`
	TopComplications int    `yaml:"top_complications" envconfig:"TOP_COMPLICATIONS"`
	CrossTabDistrict int    `yaml:"crosstab_districts" envconfig:"CROSSTAB_DISTRICTS"`
}

// ExportConfig controls CSV export
type ExportConfig struct {
	BOM         bool `yaml:"bom" envconfig:"BOM"`
	ChartWidth  int  `yaml:"chart_width" envconfig:"CHART_WIDTH"`
	ChartHeight int  `yaml:"chart_height" envconfig:"CHART_HEIGHT"`
}

// TelemetryConfig controls OpenTelemetry setup
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName   string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricsPath   string `yaml:"metrics_path" envconfig:"METRICS_PATH"`
}

// Load builds the configuration from defaults, the optional YAML file and
// SURV_* environment variables, in increasing order of precedence
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration and normalizes logging settings
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Ingest.HeaderRow < 1 || c.Ingest.CSVHeaderRow < 1 {
		return fmt.Errorf("header rows are 1-based, got %d and %d", c.Ingest.HeaderRow, c.Ingest.CSVHeaderRow)
	}

	if c.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	if c.Store.MaxDatasets <= 0 {
		return fmt.Errorf("store capacity must be positive")
	}

	if c.Store.TTL < 0 {
		return fmt.Errorf("store ttl must not be negative")
	}

	// An empty schedule disables the sweep; Get still refuses expired snapshots
	if spec := c.Store.SweepSchedule; spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
		}
	}

	if c.Report.TopDistricts < 1 || c.Report.TopComplications < 1 || c.Report.CrossTabDistrict < 1 {
		return fmt.Errorf("report sizes must be at least 1")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text":
		c.Logging.Format = "text"
	default:
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join("logs", LogFileName)
	}

	return nil
}

// ResolvePaths returns the directory layout rooted at Paths.BaseDir, or at
// the executable directory when no base is configured
func (c *Config) ResolvePaths() (*Paths, error) {
	if c.Paths.BaseDir != "" {
		base, err := filepath.Abs(c.Paths.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve base dir: %w", err)
		}
		return NewPaths(base), nil
	}
	return GetPaths()
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: filepath.Join("logs", LogFileName),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Ingest: IngestConfig{
			HeaderRow:      DefaultWorkbookHeaderRow,
			CSVHeaderRow:   DefaultCSVHeaderRow,
			MaxUploadBytes: DefaultMaxUploadBytes,
			Extensions:     []string{".xlsx", ".xlsm", ".csv"},
		},
		Store: StoreConfig{
			TTL:           time.Hour,
			MaxDatasets:   20,
			SweepSchedule: "@every 1m",
		},
		Report: ReportConfig{
			Program:          DefaultProgram,
			TopDistricts:     5,
			TopComplications: 10,
			CrossTabDistrict: 10,
		},
		Export: ExportConfig{
			BOM:         true,
			ChartWidth:  800,
			ChartHeight: 450,
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			ServiceName:   AppName,
			TraceExporter: "none",
			MetricsPath:   "/metrics",
		},
	}
}
