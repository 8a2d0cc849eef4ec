package main

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Defaults(t *testing.T) {
	for _, key := range []string{
		"STRETCHSIM_LISTEN_ADDR", "STRETCHSIM_SCENARIO", "STRETCHSIM_TICK_INTERVAL",
		"STRETCHSIM_SEED", "STRETCHSIM_RUN_ID", "STRETCHSIM_LOG_LEVEL",
		"STRETCHSIM_LOG_FORMAT", "STRETCHSIM_CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	config, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", config.ListenAddr)
	assert.Empty(t, config.ScenarioPath)
	assert.Zero(t, config.TickInterval)
	assert.Zero(t, config.Seed)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "console", config.LogFormat)
}

func TestParseFlags_EnvAndFlags(t *testing.T) {
	t.Setenv("STRETCHSIM_TICK_INTERVAL", "250ms")
	t.Setenv("STRETCHSIM_SEED", "42")
	t.Setenv("STRETCHSIM_LOG_FORMAT", "json")

	config, err := parseFlags([]string{"-listen", "127.0.0.1:9000", "-seed", "7"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", config.ListenAddr)
	assert.Equal(t, 250*time.Millisecond, config.TickInterval)
	assert.EqualValues(t, 7, config.Seed, "flags override the environment")
	assert.Equal(t, "json", config.LogFormat)
}

func TestParseFlags_Invalid(t *testing.T) {
	_, err := parseFlags([]string{"-tick-interval", "soon"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-seed", "abc"})
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{LogLevel: "info", LogFormat: "console"}
	}

	config := valid()
	require.NoError(t, validateConfig(config))
	_, err := uuid.Parse(config.RunID)
	assert.NoError(t, err, "run ID is generated")

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative interval", func(c *Config) { c.TickInterval = -time.Second }},
		{"interval too short", func(c *Config) { c.TickInterval = time.Millisecond }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad run ID", func(c *Config) { c.RunID = "not-a-uuid" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(c)
			assert.Error(t, validateConfig(c))
		})
	}
}

func TestLoadScenario_SeedOverride(t *testing.T) {
	sc, err := loadScenario(&Config{Seed: 99})
	require.NoError(t, err)
	assert.EqualValues(t, 99, sc.Seed)

	_, err = loadScenario(&Config{ScenarioPath: "/nonexistent/scenario.yaml"})
	assert.Error(t, err)
}

func TestParseCORSOrigins(t *testing.T) {
	assert.Nil(t, parseCORSOrigins(""))
	assert.Equal(t, []string{"*"}, parseCORSOrigins("*"))
	assert.Equal(t,
		[]string{"http://a.example", "http://b.example"},
		parseCORSOrigins(" http://a.example, ,http://b.example "))
}
