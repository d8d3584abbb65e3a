package config

import "testing"

func TestDefaultObservabilityConfig(t *testing.T) {
	cfg := DefaultObservabilityConfig()

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level got %s, want info", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics got %+v, want enabled on /metrics", cfg.Metrics)
	}
	if cfg.Tracing.Enabled {
		t.Error("Tracing should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default observability config should validate: %v", err)
	}
}

func TestLoggingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  LoggingConfig
		wantErr bool
	}{
		{name: "Valid json", config: LoggingConfig{Level: "debug", Format: "json", Output: "stdout"}},
		{name: "Valid console upper-case", config: LoggingConfig{Level: "WARN", Format: "Console", Output: "stderr"}},
		{name: "Invalid level", config: LoggingConfig{Level: "trace", Format: "json", Output: "stdout"}, wantErr: true},
		{name: "Invalid format", config: LoggingConfig{Level: "info", Format: "xml", Output: "stdout"}, wantErr: true},
		{name: "Empty output", config: LoggingConfig{Level: "info", Format: "json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("LoggingConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetricsConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  MetricsConfig
		wantErr bool
	}{
		{name: "Disabled ignores path", config: MetricsConfig{Enabled: false}},
		{name: "Enabled with path", config: MetricsConfig{Enabled: true, Path: "/metrics"}},
		{name: "Enabled without path", config: MetricsConfig{Enabled: true}, wantErr: true},
		{name: "Relative path", config: MetricsConfig{Enabled: true, Path: "metrics"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("MetricsConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTracingConfig_Validate(t *testing.T) {
	if err := (&TracingConfig{Enabled: true}).Validate(); err == nil {
		t.Error("expected error when tracing is enabled without service name")
	}
	if err := (&TracingConfig{Enabled: false}).Validate(); err != nil {
		t.Errorf("disabled tracing should validate, got %v", err)
	}
}

func TestIsValidLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
		if !IsValidLogLevel(level) {
			t.Errorf("IsValidLogLevel(%q) = false, want true", level)
		}
	}
	for _, level := range []string{"", "fatal", "verbose"} {
		if IsValidLogLevel(level) {
			t.Errorf("IsValidLogLevel(%q) = true, want false", level)
		}
	}
}
