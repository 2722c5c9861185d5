package config

import (
	"testing"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int      `env:"TEST_CFG_PORT" envDefault:"8080"`
	LogLevel string   `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Origins  []string `env:"TEST_CFG_ORIGINS" envDefault:"*" envSeparator:","`
	Debug    bool     `env:"TEST_CFG_DEBUG" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.Origins)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_LOG_LEVEL", "debug")
	t.Setenv("TEST_CFG_ORIGINS", "https://siapee.example,https://admin.siapee.example")
	t.Setenv("TEST_CFG_DEBUG", "true")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://siapee.example", "https://admin.siapee.example"}, cfg.Origins)
	assert.True(t, cfg.Debug)
}

func TestLoadWithOptions_Environment(t *testing.T) {
	var cfg testConfig
	err := LoadWithOptions(&cfg, env.Options{Environment: map[string]string{"TEST_CFG_PORT": "7000"}})

	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
}

type requiredConfig struct {
	Secret string `env:"TEST_CFG_SECRET,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, IsDevelopment("development"))
	assert.True(t, IsDevelopment("LOCAL"))
	assert.False(t, IsDevelopment("production"))
	assert.False(t, IsDevelopment("staging"))
}
