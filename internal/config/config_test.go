package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/tide/internal/config"
)

func noConfigFile(t *testing.T) {
	t.Helper()
	t.Setenv(config.ConfigEnvVar, filepath.Join(t.TempDir(), "absent.toml"))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestParseFlagsDefaults(t *testing.T) {
	noConfigFile(t)

	cfg, err := config.NewLoader().Load([]string{"--url", "https://example.com"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5", cfg.Concurrency)
	}
	if cfg.Duration != 10*time.Second {
		t.Errorf("Duration = %s, want 10s", cfg.Duration)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %s, want 10s", cfg.Timeout)
	}
	if cfg.Retries != 2 {
		t.Errorf("Retries = %d, want 2", cfg.Retries)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" || cfg.Output != "table" {
		t.Errorf("ambient defaults = %q/%q/%q, want info/console/table", cfg.LogLevel, cfg.LogFormat, cfg.Output)
	}
	if cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("Tracing.SampleRate = %g, want 1", cfg.Tracing.SampleRate)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile = %q, want empty", cfg.ConfigFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestNoArgumentsRequestsHelp(t *testing.T) {
	noConfigFile(t)

	_, err := config.NewLoader().Load(nil)
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load() error = %v, want ErrHelpRequested", err)
	}
}

func TestHelpFlag(t *testing.T) {
	noConfigFile(t)

	_, err := config.NewLoader().Load([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load() error = %v, want ErrHelpRequested", err)
	}
}

func TestUnknownFlag(t *testing.T) {
	noConfigFile(t)

	if _, err := config.NewLoader().Load([]string{"--method", "POST"}); err == nil {
		t.Fatal("Load() expected error for unknown flag")
	}
}

func TestConfigFileWinsForRunFields(t *testing.T) {
	path := writeFile(t, "config.toml", `
url = "https://file.example.com"
concurrency = 8
duration = 20
timeout = 3
retries = 0
log_level = "warn"
output = "yaml"
`)
	t.Setenv(config.ConfigEnvVar, path)

	cfg, err := config.NewLoader().Load([]string{
		"--url", "https://flag.example.com",
		"-n", "2",
		"--output", "json",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "https://file.example.com" {
		t.Errorf("TargetURL = %q, want the file value", cfg.TargetURL)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.Duration != 20*time.Second {
		t.Errorf("Duration = %s, want 20s", cfg.Duration)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("Timeout = %s, want 3s", cfg.Timeout)
	}
	if cfg.Retries != 0 {
		t.Errorf("Retries = %d, want 0", cfg.Retries)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn from file", cfg.LogLevel)
	}
	if cfg.Output != "json" {
		t.Errorf("Output = %q, want json from explicit flag", cfg.Output)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
	if cfg.FallbackReason != "" {
		t.Errorf("FallbackReason = %q, want empty", cfg.FallbackReason)
	}
}

func TestConfigFilePartialKeepsFlags(t *testing.T) {
	path := writeFile(t, "partial.toml", `url = "https://file.example.com"`)

	cfg, err := config.NewLoader().Load([]string{"--config", path, "--retries", "4"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Retries != 4 {
		t.Errorf("Retries = %d, want 4 from flag", cfg.Retries)
	}
	if cfg.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want default 5", cfg.Concurrency)
	}
}

func TestConfigFileTracingTable(t *testing.T) {
	path := writeFile(t, "tracing.toml", `
url = "https://example.com"

[tracing]
endpoint = "otel:4318"
protocol = "http"
insecure = true
sample_rate = 0.1
`)

	cfg, err := config.NewLoader().Load([]string{"--config", path, "--tracing-sample-rate", "0.5"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tracing.Endpoint != "otel:4318" || cfg.Tracing.Protocol != "http" || !cfg.Tracing.Insecure {
		t.Errorf("Tracing = %+v, want file values", cfg.Tracing)
	}
	if cfg.Tracing.SampleRate != 0.5 {
		t.Errorf("Tracing.SampleRate = %g, want 0.5 from flag", cfg.Tracing.SampleRate)
	}
	if !cfg.Tracing.ShouldPropagate() {
		t.Error("ShouldPropagate() = false, want true when an endpoint is set")
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
url: https://yaml.example.com
concurrency: 3
duration: 1m
thresholds:
  - "request_failed:rate < 0.05"
  - "request_duration:p99 < 800"
`)

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Duration != time.Minute {
		t.Errorf("Duration = %s, want 1m", cfg.Duration)
	}
	if len(cfg.Thresholds) != 2 {
		t.Errorf("Thresholds = %v, want 2 entries", cfg.Thresholds)
	}
}

func TestMissingDefaultFileFallsBack(t *testing.T) {
	noConfigFile(t)

	cfg, err := config.NewLoader().Load([]string{"--url", "https://example.com"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !strings.Contains(cfg.FallbackReason, "not found") {
		t.Errorf("FallbackReason = %q, want a not found message", cfg.FallbackReason)
	}
}

func TestMalformedEnvFileFallsBack(t *testing.T) {
	path := writeFile(t, "broken.toml", "url = \n[[[")
	t.Setenv(config.ConfigEnvVar, path)

	cfg, err := config.NewLoader().Load([]string{"--url", "https://flag.example.com"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetURL != "https://flag.example.com" {
		t.Errorf("TargetURL = %q, want the flag value", cfg.TargetURL)
	}
	if cfg.FallbackReason == "" {
		t.Error("FallbackReason should be set for an unparseable file")
	}
}

func TestBadValueInDefaultFileFallsBack(t *testing.T) {
	t.Setenv(config.ConfigEnvVar, "")
	dir := t.TempDir()
	t.Chdir(dir)
	content := "url = \"http://file.example\"\nconcurrency = \"lots\"\nretries = 7\n"
	if err := os.WriteFile(filepath.Join(dir, config.DefaultConfigFile), []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--url", "http://cli.example", "-n", "3"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetURL != "http://cli.example" {
		t.Errorf("TargetURL = %q, want the flag value", cfg.TargetURL)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
	}
	if cfg.Retries != config.DefaultRetries {
		t.Errorf("Retries = %d, want %d (file values must not be half-applied)", cfg.Retries, config.DefaultRetries)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile = %q, want empty", cfg.ConfigFile)
	}
	if !strings.Contains(cfg.FallbackReason, "concurrency") {
		t.Errorf("FallbackReason = %q, want it to name the bad key", cfg.FallbackReason)
	}
}

func TestBadValueInEnvFileFallsBack(t *testing.T) {
	path := writeFile(t, "typed.toml", "url = \"http://file.example\"\ntimeout = \"soon\"\n")
	t.Setenv(config.ConfigEnvVar, path)

	cfg, err := config.NewLoader().Load([]string{"--url", "http://cli.example"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetURL != "http://cli.example" {
		t.Errorf("TargetURL = %q, want the flag value", cfg.TargetURL)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, config.DefaultTimeout)
	}
	if cfg.FallbackReason == "" {
		t.Error("FallbackReason should be set for a file with a bad value")
	}
}

func TestBadValueInExplicitConfigIsError(t *testing.T) {
	path := writeFile(t, "typed.toml", "url = \"http://file.example\"\nconcurrency = \"lots\"\n")

	_, err := config.NewLoader().Load([]string{"--config", path})
	if err == nil || !strings.Contains(err.Error(), "concurrency") {
		t.Fatalf("Load() error = %v, want a concurrency conversion error", err)
	}
}

func TestExplicitConfigMissingIsError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	if _, err := config.NewLoader().Load([]string{"--config", missing}); err == nil {
		t.Fatal("Load() expected error for a missing --config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.TargetURL = "https://example.com/health"
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*config.Config)
		wantIssue string
	}{
		{"missing url", func(c *config.Config) { c.TargetURL = "" }, "url is required"},
		{"relative url", func(c *config.Config) { c.TargetURL = "/health" }, "must use http or https"},
		{"ftp url", func(c *config.Config) { c.TargetURL = "ftp://example.com" }, "must use http or https"},
		{"no host", func(c *config.Config) { c.TargetURL = "http://" }, "must include a host"},
		{"zero concurrency", func(c *config.Config) { c.Concurrency = 0 }, "concurrency must be >= 1"},
		{"zero duration", func(c *config.Config) { c.Duration = 0 }, "duration must be > 0"},
		{"zero timeout", func(c *config.Config) { c.Timeout = 0 }, "timeout must be > 0"},
		{"negative retries", func(c *config.Config) { c.Retries = -1 }, "retries must be >= 0"},
		{"log level", func(c *config.Config) { c.LogLevel = "trace" }, "log level"},
		{"log format", func(c *config.Config) { c.LogFormat = "xml" }, "log format"},
		{"output", func(c *config.Config) { c.Output = "html" }, "output"},
		{"threshold", func(c *config.Config) { c.Thresholds = []string{"latency fast"} }, "threshold"},
		{"sample rate", func(c *config.Config) { c.Tracing.SampleRate = 2 }, "sample_rate"},
		{"tracing protocol", func(c *config.Config) { c.Tracing.Protocol = "thrift" }, "tracing protocol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var verr config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, issue := range verr.Issues() {
				if strings.Contains(issue, tt.wantIssue) {
					found = true
				}
			}
			if !found {
				t.Errorf("issues %v do not mention %q", verr.Issues(), tt.wantIssue)
			}
		})
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on a valid config error = %v", err)
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		wantWarning bool
	}{
		{"default", config.DefaultConcurrency, false},
		{"at limit", config.HighConcurrency, false},
		{"above limit", config.HighConcurrency + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.TargetURL = "https://example.com"
			cfg.Concurrency = tt.concurrency

			warnings := cfg.Warnings()
			if got := len(warnings) > 0; got != tt.wantWarning {
				t.Fatalf("Warnings() = %v, want warning %v", warnings, tt.wantWarning)
			}
			if tt.wantWarning && !strings.Contains(warnings[0], "authorization") {
				t.Errorf("warning = %q, want an authorization reminder", warnings[0])
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() error = %v, high concurrency is not invalid", err)
			}
		})
	}
}

func TestValidationErrorCollectsAllIssues(t *testing.T) {
	cfg := config.Default()
	cfg.Concurrency = 0
	cfg.Retries = -2

	err := cfg.Validate()
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}
	if len(verr.Issues()) != 3 {
		t.Errorf("Issues() = %v, want 3", verr.Issues())
	}
	if !strings.HasPrefix(err.Error(), "validation failed: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestTracingShouldPropagate(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var tc config.TracingConfig
	if tc.Enabled() || tc.ShouldPropagate() {
		t.Error("empty tracing config should be disabled")
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	if !tc.Enabled() || !tc.ShouldPropagate() {
		t.Error("env endpoint should enable tracing and propagation")
	}

	off := false
	tc.Propagate = &off
	if tc.ShouldPropagate() {
		t.Error("explicit propagate=false should win")
	}
}
