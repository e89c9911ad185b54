package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerHost, cfg.Server.Host)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultMaxRangeSize, cfg.Engine.MaxRangeSize)
	assert.Equal(t, DefaultHighConfidence, cfg.Engine.Thresholds.High)
	assert.Equal(t, []string{"stdout"}, cfg.Log.OutputPaths)
	assert.NoError(t, cfg.Validate())
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Engine.MaxRangeSize = 10
	cfg.Engine.Thresholds.High = 0.7
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Engine.MaxRangeSize)
	assert.Equal(t, 0.7, cfg.Engine.Thresholds.High)
	assert.Equal(t, 0.0, cfg.Engine.Thresholds.PatternMatch)
}

func TestApplyDefaults_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestDefaultValues_CoverEngineKeys(t *testing.T) {
	d := defaultValues()
	for _, k := range []string{
		"engine.max_range_size", "engine.pattern_order", "engine.pattern_cache_ttl",
		"engine.thresholds.pattern_match", "engine.thresholds.high", "export.bucket",
	} {
		_, ok := d[k]
		assert.True(t, ok, k)
	}
}

//Personal.AI order the ending
