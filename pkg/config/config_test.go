package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := NewConfig("run")
	cfg.Source.Type = "csv"
	cfg.Check.KeyField = "subject"
	cfg.Check.ValueFields = []string{"sex"}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no name", func(c *Config) { c.Name = "" }, "name is required"},
		{"no source", func(c *Config) { c.Source.Type = "" }, "source.type"},
		{"value without key", func(c *Config) { c.Check.KeyField = "" }, "key_field"},
		{"key as value", func(c *Config) { c.Check.ValueFields = []string{"subject"} }, "must not contain"},
		{"bad policy", func(c *Config) { c.Check.MissingPolicy = "drop" }, "missing_policy"},
		{"bad format", func(c *Config) { c.Output.Format = "orc"; c.Output.Path = "x" }, "output.format"},
		{"format without path", func(c *Config) { c.Output.Format = "arrow" }, "output.path"},
		{"s3 without bucket", func(c *Config) { c.Sink.Type = "s3" }, "sink.bucket"},
		{"sample rate", func(c *Config) { c.Observability.TracingSampleRate = 2 }, "sample_rate"},
		{"negative retries", func(c *Config) { c.Reliability.RetryAttempts = -1 }, "retry_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettings(t *testing.T) {
	s := Settings{
		"path":     "a.csv",
		"port":     5432,
		"limit":    "10",
		"ratio":    float64(3),
		"gzip":     "true",
		"timeout":  "5s",
		"brokers":  []interface{}{"a:9092", "b:9092"},
		"columns":  "x, y",
		"headers":  map[string]interface{}{"X-Token": "t", "X-N": 1},
		"explicit": nil,
	}

	assert.Equal(t, "a.csv", s.String("path", ""))
	assert.Equal(t, "5432", s.String("port", ""))
	assert.Equal(t, "dflt", s.String("explicit", "dflt"))
	assert.Equal(t, 5432, s.Int("port", 0))
	assert.Equal(t, 10, s.Int("limit", 0))
	assert.Equal(t, 3, s.Int("ratio", 0))
	assert.Equal(t, 7, s.Int("missing", 7))
	assert.True(t, s.Bool("gzip", false))
	assert.Equal(t, 5*time.Second, s.Duration("timeout", 0))
	assert.Equal(t, 3*time.Second, s.Duration("ratio", 0))
	assert.Equal(t, []string{"a:9092", "b:9092"}, s.Strings("brokers"))
	assert.Equal(t, []string{"x", "y"}, s.Strings("columns"))
	assert.Equal(t, map[string]string{"X-Token": "t", "X-N": "1"}, s.StringMap("headers"))

	_, err := s.Require("query")
	assert.Error(t, err)
	v, err := s.Require("path")
	require.NoError(t, err)
	assert.Equal(t, "a.csv", v)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("CONCORD_TEST_HOST", "db.internal")

	got := substituteEnvVars("host: ${CONCORD_TEST_HOST}\nport: ${CONCORD_TEST_PORT:-5432}\nuser: ${CONCORD_TEST_USER}")
	assert.Equal(t, "host: db.internal\nport: 5432\nuser: ", got)

	assert.Equal(t, "unterminated ${X", substituteEnvVars("unterminated ${X"))
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := validConfig()
	cfg.Source.Settings["path"] = "subjects.csv"
	cfg.Check.Partitions = 4
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "run", loaded.Name)
	assert.Equal(t, 4, loaded.Check.Partitions)
	assert.Equal(t, "subjects.csv", loaded.Source.Settings.String("path", ""))
	assert.Equal(t, cfg.Reliability.RetryDelay, loaded.Reliability.RetryDelay)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetPartitions(t *testing.T) {
	c := CheckConfig{Partitions: 3}
	assert.Equal(t, 3, c.GetPartitions())
	c.Partitions = 0
	assert.GreaterOrEqual(t, c.GetPartitions(), 1)
}
