package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_AppliesBuiltInDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Len(t, cfg.Analyzers, 4)
	assert.Equal(t, 8080, cfg.IngestPort)
	assert.Equal(t, 9090, cfg.MetricsPort)
}

func TestLoadConfig_EnvironmentOverridesWinOverDefaults(t *testing.T) {
	t.Setenv("INGEST_PORT", "9999")
	t.Setenv("MAX_CONSECUTIVE_FAILURES", "7")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.IngestPort)
	assert.Equal(t, int64(7), cfg.MaxConsecutiveFailures)
}

func TestLoadConfig_MalformedFileIsNonFatal(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = tmp.WriteString("not: [valid yaml")
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	cfg, err := LoadConfig(tmp.Name())
	require.NoError(t, err)
	assert.Len(t, cfg.Analyzers, 4)
}

func TestParseAnalyzersConfig_SplitsOnLastColonForWeight(t *testing.T) {
	descriptors, err := ParseAnalyzersConfig("a1:http://host:8081/analyze:0.25,a2:http://host:8082/analyze:0.75")
	require.NoError(t, err)
	require.Len(t, descriptors, 2)
	assert.Equal(t, "a1", descriptors[0].ID)
	assert.Equal(t, "http://host:8081/analyze", descriptors[0].Endpoint)
	assert.Equal(t, 0.25, descriptors[0].Weight)
	assert.Equal(t, "a2", descriptors[1].ID)
	assert.Equal(t, 0.75, descriptors[1].Weight)
}

func TestParseAnalyzersConfig_MissingWeightIsError(t *testing.T) {
	_, err := ParseAnalyzersConfig("a1-no-colon")
	assert.Error(t, err)
}

func TestValidate_RejectsEmptyAnalyzers(t *testing.T) {
	cfg := &Config{IngestPort: 1, MetricsPort: 2, WorkerMax: 1}
	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_RejectsDuplicateIDs(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Analyzers[1].ID = cfg.Analyzers[0].ID
	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_RejectsWeightOutOfRange(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Analyzers[0].Weight = 0
	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_RejectsWorkerMaxBelowWorkerMin(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.WorkerMin = 50
	cfg.WorkerMax = 10
	err := Validate(cfg)
	assert.Error(t, err)
}
