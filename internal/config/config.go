// Package config implements the layered configuration loader named in §9:
// built-in defaults, then an optional YAML file, then environment
// variables (which win). Grounded on the teacher's internal/config/config.go
// three-stage LoadConfig/applyDefaults/applyEnvironmentOverrides/ValidateConfig
// shape, narrowed to this domain's analyzer table and tunables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/resolveai/log-distributor/internal/registry"
)

// Config is the fully-resolved, validated configuration the App builds its
// components from.
type Config struct {
	Analyzers []registry.Descriptor `yaml:"analyzers"`

	MaxConsecutiveFailures int64         `yaml:"max_consecutive_failures"`
	OfflineTimeout         time.Duration `yaml:"offline_timeout"`
	DeficitThreshold       float64       `yaml:"deficit_threshold"`

	QueueCapacity int           `yaml:"queue_capacity"`
	WorkerMin     int           `yaml:"worker_min"`
	WorkerMax     int           `yaml:"worker_max"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	IngestPort      int           `yaml:"ingest_port"`
	MetricsPort     int           `yaml:"metrics_port"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	DLQCapacity     int           `yaml:"dlq_capacity"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// fileConfig mirrors the subset of Config expressible in YAML with
// human-friendly duration strings, mirroring the teacher's pattern of
// string-typed durations in its YAML-facing structs.
type fileConfig struct {
	Analyzers []struct {
		ID       string  `yaml:"id"`
		Endpoint string  `yaml:"endpoint"`
		Weight   float64 `yaml:"weight"`
	} `yaml:"analyzers"`

	MaxConsecutiveFailures int64   `yaml:"max_consecutive_failures"`
	OfflineTimeout         string  `yaml:"offline_timeout"`
	DeficitThreshold       float64 `yaml:"deficit_threshold"`

	QueueCapacity  int    `yaml:"queue_capacity"`
	WorkerMin      int    `yaml:"worker_min"`
	WorkerMax      int    `yaml:"worker_max"`
	RequestTimeout string `yaml:"request_timeout"`
	SweepInterval  string `yaml:"sweep_interval"`

	IngestPort      int    `yaml:"ingest_port"`
	MetricsPort     int    `yaml:"metrics_port"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	DLQCapacity     int    `yaml:"dlq_capacity"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LoadConfig applies defaults, then an optional YAML file (a missing or
// unreadable path is a warning, not a fatal error, matching the teacher),
// then environment overrides (which always win; a malformed ANALYZERS_CONFIG
// is an error), then validates the result.
func LoadConfig(configFile string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if configFile != "" {
		if err := loadFile(configFile, cfg); err != nil {
			fmt.Printf("Warning: failed to load config file %s: %v\n", configFile, err)
		} else {
			fmt.Printf("Loaded configuration from file: %s\n", configFile)
		}
	}

	if err := applyEnvironmentOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	cfg.Analyzers = defaultAnalyzers()
	cfg.MaxConsecutiveFailures = 3
	cfg.OfflineTimeout = 30 * time.Second
	cfg.DeficitThreshold = 1000
	cfg.QueueCapacity = 10000
	cfg.WorkerMin = 20
	cfg.WorkerMax = 50
	cfg.RequestTimeout = 30 * time.Second
	cfg.SweepInterval = 5 * time.Second
	cfg.IngestPort = 8080
	cfg.MetricsPort = 9090
	cfg.LogLevel = "info"
	cfg.LogFormat = "json"
	cfg.DLQCapacity = 256
	cfg.ShutdownTimeout = 30 * time.Second
}

// defaultAnalyzers mirrors the Java original's initDefaultAnalyzers: four
// analyzers with weights 0.1, 0.2, 0.3, 0.4 at ports 8081-8084.
func defaultAnalyzers() []registry.Descriptor {
	weights := []float64{0.1, 0.2, 0.3, 0.4}
	out := make([]registry.Descriptor, 0, len(weights))
	for i, w := range weights {
		out = append(out, registry.Descriptor{
			ID:       fmt.Sprintf("analyzer-%d", i+1),
			Endpoint: fmt.Sprintf("http://localhost:%d/api/v1/analyze", 8081+i),
			Weight:   w,
		})
	}
	return out
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if len(fc.Analyzers) > 0 {
		cfg.Analyzers = make([]registry.Descriptor, 0, len(fc.Analyzers))
		for _, a := range fc.Analyzers {
			cfg.Analyzers = append(cfg.Analyzers, registry.Descriptor{ID: a.ID, Endpoint: a.Endpoint, Weight: a.Weight})
		}
	}
	if fc.MaxConsecutiveFailures > 0 {
		cfg.MaxConsecutiveFailures = fc.MaxConsecutiveFailures
	}
	if d, err := time.ParseDuration(fc.OfflineTimeout); err == nil && fc.OfflineTimeout != "" {
		cfg.OfflineTimeout = d
	}
	if fc.DeficitThreshold > 0 {
		cfg.DeficitThreshold = fc.DeficitThreshold
	}
	if fc.QueueCapacity > 0 {
		cfg.QueueCapacity = fc.QueueCapacity
	}
	if fc.WorkerMin > 0 {
		cfg.WorkerMin = fc.WorkerMin
	}
	if fc.WorkerMax > 0 {
		cfg.WorkerMax = fc.WorkerMax
	}
	if d, err := time.ParseDuration(fc.RequestTimeout); err == nil && fc.RequestTimeout != "" {
		cfg.RequestTimeout = d
	}
	if d, err := time.ParseDuration(fc.SweepInterval); err == nil && fc.SweepInterval != "" {
		cfg.SweepInterval = d
	}
	if fc.IngestPort > 0 {
		cfg.IngestPort = fc.IngestPort
	}
	if fc.MetricsPort > 0 {
		cfg.MetricsPort = fc.MetricsPort
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	if fc.DLQCapacity > 0 {
		cfg.DLQCapacity = fc.DLQCapacity
	}
	if d, err := time.ParseDuration(fc.ShutdownTimeout); err == nil && fc.ShutdownTimeout != "" {
		cfg.ShutdownTimeout = d
	}
	return nil
}

func applyEnvironmentOverrides(cfg *Config) error {
	if raw := os.Getenv("ANALYZERS_CONFIG"); raw != "" {
		descriptors, err := ParseAnalyzersConfig(raw)
		if err != nil {
			return fmt.Errorf("ANALYZERS_CONFIG: %w", err)
		}
		cfg.Analyzers = descriptors
	}

	getEnvInt64(&cfg.MaxConsecutiveFailures, "MAX_CONSECUTIVE_FAILURES")
	getEnvDuration(&cfg.OfflineTimeout, "OFFLINE_TIMEOUT")
	getEnvFloat(&cfg.DeficitThreshold, "DEFICIT_THRESHOLD")
	getEnvInt(&cfg.QueueCapacity, "QUEUE_CAPACITY")
	getEnvInt(&cfg.WorkerMin, "WORKER_MIN")
	getEnvInt(&cfg.WorkerMax, "WORKER_MAX")
	getEnvDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	getEnvDuration(&cfg.SweepInterval, "SWEEP_INTERVAL")
	getEnvInt(&cfg.IngestPort, "INGEST_PORT")
	getEnvInt(&cfg.MetricsPort, "METRICS_PORT")
	getEnvString(&cfg.LogLevel, "LOG_LEVEL")
	getEnvString(&cfg.LogFormat, "LOG_FORMAT")
	getEnvInt(&cfg.DLQCapacity, "DLQ_CAPACITY")
	getEnvDuration(&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
	return nil
}

// ParseAnalyzersConfig parses the ANALYZERS_CONFIG wire format:
// "id1:endpoint1:weight1,id2:endpoint2:weight2,...". Each record's LAST
// colon separates the weight, since endpoints themselves contain colons
// (scheme and port) — a direct translation of the Java original's
// parseAnalyzersConfig, which splits on lastIndexOf(":").
func ParseAnalyzersConfig(raw string) ([]registry.Descriptor, error) {
	records := strings.Split(raw, ",")
	out := make([]registry.Descriptor, 0, len(records))
	for _, record := range records {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		lastColon := strings.LastIndex(record, ":")
		if lastColon < 0 {
			return nil, fmt.Errorf("malformed analyzer record %q: missing weight", record)
		}
		idAndEndpoint := record[:lastColon]
		weightStr := record[lastColon+1:]

		firstColon := strings.Index(idAndEndpoint, ":")
		if firstColon < 0 {
			return nil, fmt.Errorf("malformed analyzer record %q: missing endpoint", record)
		}
		id := idAndEndpoint[:firstColon]
		endpoint := idAndEndpoint[firstColon+1:]

		weight, err := strconv.ParseFloat(weightStr, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed analyzer record %q: invalid weight: %w", record, err)
		}
		if id == "" || endpoint == "" {
			return nil, fmt.Errorf("malformed analyzer record %q: empty id or endpoint", record)
		}

		out = append(out, registry.Descriptor{ID: id, Endpoint: endpoint, Weight: weight})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ANALYZERS_CONFIG parsed to zero analyzers")
	}
	return out, nil
}

// Validate enforces the configuration-error taxonomy entry of §7: fatal at
// startup, process refuses to start.
func Validate(cfg *Config) error {
	if len(cfg.Analyzers) == 0 {
		return fmt.Errorf("at least one analyzer must be configured")
	}
	seen := make(map[string]struct{}, len(cfg.Analyzers))
	for _, a := range cfg.Analyzers {
		if a.ID == "" {
			return fmt.Errorf("analyzer with empty id")
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("duplicate analyzer id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
		if a.Endpoint == "" {
			return fmt.Errorf("analyzer %q has empty endpoint", a.ID)
		}
		if a.Weight <= 0 || a.Weight > 1 {
			return fmt.Errorf("analyzer %q weight %v out of range (0, 1]", a.ID, a.Weight)
		}
	}
	if cfg.IngestPort <= 0 || cfg.IngestPort > 65535 {
		return fmt.Errorf("invalid ingest_port %d", cfg.IngestPort)
	}
	if cfg.MetricsPort <= 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics_port %d", cfg.MetricsPort)
	}
	if cfg.WorkerMax < cfg.WorkerMin {
		return fmt.Errorf("worker_max (%d) must be >= worker_min (%d)", cfg.WorkerMax, cfg.WorkerMin)
	}
	return nil
}

func getEnvString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func getEnvInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func getEnvInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func getEnvFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func getEnvDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(secs) * time.Second
		}
	}
}
