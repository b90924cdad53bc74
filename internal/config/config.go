package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/torosent/tide/internal/threshold"
)

// Defaults mirror the command-line defaults.
const (
	DefaultConcurrency = 5
	DefaultDuration    = 10 * time.Second
	DefaultTimeout     = 10 * time.Second
	DefaultRetries     = 2
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
	DefaultOutput      = "table"

	// DefaultConfigFile is read when neither --config nor TIDE_CONFIG is set.
	DefaultConfigFile = "config.toml"
	// ConfigEnvVar names the environment variable holding a config file path.
	ConfigEnvVar = "TIDE_CONFIG"

	// HighConcurrency is the per-tick request count above which Warnings reports.
	HighConcurrency = 500
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Config is the run configuration. It is not modified once the run starts.
type Config struct {
	TargetURL   string        `mapstructure:"url"`
	Concurrency int           `mapstructure:"concurrency"`
	Duration    time.Duration `mapstructure:"duration"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`

	LogLevel   string        `mapstructure:"log_level"`
	LogFormat  string        `mapstructure:"log_format"`
	LogFile    string        `mapstructure:"log_file"`
	Output     string        `mapstructure:"output"`
	Thresholds []string      `mapstructure:"thresholds"`
	Tracing    TracingConfig `mapstructure:"tracing"`

	ConfigFile     string `mapstructure:"-"` // file the run fields came from, if any
	FallbackReason string `mapstructure:"-"` // why the config file was not used
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"` // nil follows Enabled
}

// Enabled reports whether an OTLP endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether trace headers go on outgoing requests.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// Default returns a Config populated with command-line defaults.
func Default() Config {
	return Config{
		Concurrency: DefaultConcurrency,
		Duration:    DefaultDuration,
		Timeout:     DefaultTimeout,
		Retries:     DefaultRetries,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		Output:      DefaultOutput,
		Tracing:     TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Warnings returns advisories about a configuration that is valid but risky.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Concurrency > HighConcurrency {
		warnings = append(warnings, fmt.Sprintf("high concurrency configured (%d requests per tick); ensure you have authorization to test the target system", c.Concurrency))
	}
	return warnings
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "url is required (use --help for usage information)")
	} else if err := validateTargetURL(c.TargetURL); err != nil {
		issues = append(issues, err.Error())
	}

	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Duration <= 0 {
		issues = append(issues, "duration must be > 0")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		issues = append(issues, fmt.Sprintf("log format %q is not one of console, json", c.LogFormat))
	}
	switch strings.ToLower(c.Output) {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output %q is not one of table, json, yaml", c.Output))
	}

	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

func validateTargetURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("url %q is invalid: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q must include a host", raw)
	}
	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q is not one of grpc, http", t.Protocol))
	}
	return issues
}
