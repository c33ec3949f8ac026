package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Input      InputConfig      `yaml:"input" mapstructure:"input"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// NotionConfig holds Notion API credentials and the runs database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	RunsDB string `yaml:"runs_db" mapstructure:"runs_db"`
}

// InputConfig configures XLSX row reading.
type InputConfig struct {
	SheetIndex int    `yaml:"sheet_index" mapstructure:"sheet_index"`
	SheetName  string `yaml:"sheet_name" mapstructure:"sheet_name"`
	SkipRows   int    `yaml:"skip_rows" mapstructure:"skip_rows"`
}

// ExtractConfig configures the extraction worker and its invocation.
type ExtractConfig struct {
	TimeoutSecs    int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	WorkerCmd      []string `yaml:"worker_cmd" mapstructure:"worker_cmd"`
	UserAgent      string   `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestsPerSec float64  `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	RulesPath      string   `yaml:"rules_path" mapstructure:"rules_path"`
	DebugDir       string   `yaml:"debug_dir" mapstructure:"debug_dir"`
	PdfToTextPath  string   `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// PipelineConfig configures the orchestration loop.
type PipelineConfig struct {
	DelayMS int `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// MonitoringConfig configures post-run alerting. An empty webhook URL
// disables delivery.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
}

// ServerConfig configures the ops API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EARNINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "earnings.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("input.sheet_index", 0)
	v.SetDefault("input.skip_rows", 0)
	v.SetDefault("pipeline.delay_ms", 2000)
	v.SetDefault("extract.timeout_secs", 90)
	v.SetDefault("extract.worker_cmd", []string{})
	v.SetDefault("extract.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36 Edg/144.0.0.0")
	v.SetDefault("extract.max_body_bytes", 4*1024*1024)
	v.SetDefault("extract.requests_per_sec", 1.0)
	v.SetDefault("extract.rules_path", "")
	v.SetDefault("extract.debug_dir", "")
	v.SetDefault("extract.pdftotext_path", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode.
// Modes: "run" (pipeline execution), "serve" (ops API), "notion" (export).
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run":
		if c.Pipeline.DelayMS < 0 {
			problems = append(problems, "pipeline.delay_ms must be >= 0")
		}
		if c.Extract.TimeoutSecs < 0 {
			problems = append(problems, "extract.timeout_secs must be >= 0")
		}
		if c.Extract.MaxBodyBytes <= 0 {
			problems = append(problems, "extract.max_body_bytes must be > 0")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "notion":
		if c.Notion.Token == "" {
			problems = append(problems, "notion.token is required")
		}
		if c.Notion.RunsDB == "" {
			problems = append(problems, "notion.runs_db is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
