package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig    `yaml:"store" mapstructure:"store"`
	Schema       string         `yaml:"schema" mapstructure:"schema"`
	Sources      []SourceConfig `yaml:"sources" mapstructure:"sources"`
	Deliberation []string       `yaml:"deliberation" mapstructure:"deliberation"`
	Export       ExportConfig   `yaml:"export" mapstructure:"export"`
	Pipeline     PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Input        InputConfig    `yaml:"input" mapstructure:"input"`
	Log          LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run archive.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SourceConfig names one survey source and its category file pairs.
type SourceConfig struct {
	Name  string       `yaml:"name" mapstructure:"name"`
	Pairs []PairConfig `yaml:"pairs" mapstructure:"pairs"`
}

// PairConfig is a survey file and the validation reference it is matched
// against.
type PairConfig struct {
	Category   string `yaml:"category" mapstructure:"category"`
	Survey     string `yaml:"survey" mapstructure:"survey"`
	Validation string `yaml:"validation" mapstructure:"validation"`
}

// ExportConfig configures where reconciled tables and the report go.
type ExportConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	Global      string `yaml:"global" mapstructure:"global"`
	Deliberated string `yaml:"deliberated" mapstructure:"deliberated"`
	Report      string `yaml:"report" mapstructure:"report"`
	CSV         bool   `yaml:"csv" mapstructure:"csv"`
}

// PipelineConfig configures reconciliation behavior.
type PipelineConfig struct {
	StrictAttributes  bool `yaml:"strict_attributes" mapstructure:"strict_attributes"`
	MaxWarningSamples int  `yaml:"max_warning_samples" mapstructure:"max_warning_samples"`
}

// InputConfig configures the file parsers.
type InputConfig struct {
	SkipRows     int    `yaml:"skip_rows" mapstructure:"skip_rows"`
	SheetName    string `yaml:"sheet_name" mapstructure:"sheet_name"`
	CSVDelimiter string `yaml:"csv_delimiter" mapstructure:"csv_delimiter"`
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
	v.SetEnvPrefix("PARCEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "parcel-runs.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("export.dir", "out")
	v.SetDefault("export.global", "parcels_global.xlsx")
	v.SetDefault("export.deliberated", "parcels_deliberated.xlsx")
	v.SetDefault("export.report", "report")
	v.SetDefault("export.csv", false)
	v.SetDefault("pipeline.strict_attributes", false)
	v.SetDefault("pipeline.max_warning_samples", 10)
	v.SetDefault("input.skip_rows", 0)

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

// Validate checks the settings a command mode depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate(mode string) error {
	var errs error

	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		errs = multierr.Append(errs, eris.Errorf("config: store.driver %q must be sqlite, postgres or none", c.Store.Driver))
	}
	if c.Store.Driver != "none" && c.Store.DatabaseURL == "" {
		errs = multierr.Append(errs, eris.New("config: store.database_url is required"))
	}

	switch mode {
	case "reconcile":
		if len(c.Sources) == 0 {
			errs = multierr.Append(errs, eris.New("config: at least one source is required"))
		}
		seen := make(map[string]bool, len(c.Sources))
		for i, s := range c.Sources {
			if s.Name == "" {
				errs = multierr.Append(errs, eris.Errorf("config: sources[%d].name is required", i))
			} else if seen[s.Name] {
				errs = multierr.Append(errs, eris.Errorf("config: source %q is listed twice", s.Name))
			}
			seen[s.Name] = true
			if len(s.Pairs) == 0 {
				errs = multierr.Append(errs, eris.Errorf("config: source %q has no pairs", s.Name))
			}
			for j, p := range s.Pairs {
				if p.Category != "individual" && p.Category != "collective" {
					errs = multierr.Append(errs, eris.Errorf("config: sources[%d].pairs[%d].category %q must be individual or collective", i, j, p.Category))
				}
				if p.Survey == "" || p.Validation == "" {
					errs = multierr.Append(errs, eris.Errorf("config: sources[%d].pairs[%d] needs survey and validation paths", i, j))
				}
			}
		}
		if c.Export.Dir == "" {
			errs = multierr.Append(errs, eris.New("config: export.dir is required"))
		}
		if c.Pipeline.MaxWarningSamples < 0 {
			errs = multierr.Append(errs, eris.New("config: pipeline.max_warning_samples must be >= 0"))
		}
		if len([]rune(c.Input.CSVDelimiter)) > 1 {
			errs = multierr.Append(errs, eris.New("config: input.csv_delimiter must be a single character"))
		}
	case "runs":
		if c.Store.Driver == "none" {
			errs = multierr.Append(errs, eris.New("config: runs need an archive, store.driver is none"))
		}
	case "summary":
	default:
		errs = multierr.Append(errs, eris.Errorf("config: unknown mode %q", mode))
	}

	return errs
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
