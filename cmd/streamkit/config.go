package main

import (
	"github.com/spf13/pflag"

	"github.com/kbukum/streamkit/config"
	"github.com/kbukum/streamkit/observe"
	"github.com/kbukum/streamkit/validation"
)

const serviceName = "streamkit"

// PipelineConfig selects the stages of the line pipeline.
type PipelineConfig struct {
	Input     string `yaml:"input" mapstructure:"input"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=1"`
	Match     string `yaml:"match" mapstructure:"match" validate:"omitempty,regexp"`
	Invert    bool   `yaml:"invert" mapstructure:"invert"`
	Upper     bool   `yaml:"upper" mapstructure:"upper"`
	KeepBlank bool   `yaml:"keep_blank" mapstructure:"keep_blank"`

	// MaxLineSize is the longest accepted input line in bytes.
	MaxLineSize int `yaml:"max_line_size" mapstructure:"max_line_size" validate:"gte=1"`
}

// AppConfig is the full configuration of the streamkit command.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Pipeline             PipelineConfig          `yaml:"pipeline" mapstructure:"pipeline"`
	Telemetry            observe.TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills unset values.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	// Quiet by default; development turns on debug logging for every line.
	if c.Environment == "" {
		c.Environment = "production"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks the base fields and the validate tags of every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return validation.Validate(c)
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"pipeline.input":         "input",
	"pipeline.batch_size":    "batch-size",
	"pipeline.match":         "match",
	"pipeline.invert":        "invert",
	"pipeline.upper":         "upper",
	"pipeline.keep_blank":    "keep-blank",
	"pipeline.max_line_size": "max-line",
	"logging.level":          "log-level",
	"telemetry.enabled":      "telemetry",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	fs.StringP("config", "c", "", "path to config.yml")
	fs.StringP("input", "i", "", "read lines from this file instead of stdin")
	fs.IntP("batch-size", "b", 100, "lines per emitted group")
	fs.StringP("match", "m", "", "keep only lines matching this regular expression")
	fs.Bool("invert", false, "drop lines matching --match instead of keeping them")
	fs.Bool("upper", false, "upper-case every line")
	fs.Bool("keep-blank", false, "keep blank lines")
	fs.Int("max-line", 16<<20, "longest accepted input line in bytes")
	fs.String("log-level", "", "log level (trace, debug, info, warn, error)")
	fs.Bool("telemetry", false, "export traces and metrics over OTLP/HTTP")
	fs.Bool("version", false, "print version and exit")
	return fs
}

func loadConfig(fs *pflag.FlagSet) (*AppConfig, error) {
	var cfg AppConfig
	opts := []config.LoaderOption{config.WithFlags(fs, flagKeys)}
	if path, _ := fs.GetString("config"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
