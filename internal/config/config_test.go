package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *RunConfig {
	cfg := &RunConfig{SearchName: "Israel"}
	cfg.ApplyDefaults()
	return cfg
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`search_name: Rehovot
start_url: https://example.com/country/
out_dir: out
timeout: 5s
depth: 2
describe: true
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Rehovot", cfg.SearchName)
	assert.Equal(t, "https://example.com/country/", cfg.StartURL)
	assert.Equal(t, "out", cfg.OutDir)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Depth)
	assert.True(t, cfg.Describe)
	assert.False(t, cfg.Preview)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("depth: [1, 2"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: parse")
}

func TestApplyDefaults(t *testing.T) {
	cfg := &RunConfig{SearchName: "x", OutDir: "custom"}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultStartURL, cfg.StartURL)
	assert.Equal(t, "custom", cfg.OutDir)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMaxPages, cfg.MaxPages)
	assert.Equal(t, int64(DefaultMaxBodySize), cfg.MaxBodySize)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, 0, cfg.Depth)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
		want   error
	}{
		{name: "valid", mutate: func(*RunConfig) {}, want: nil},
		{name: "empty name", mutate: func(c *RunConfig) { c.SearchName = "" }, want: ErrNoSearchName},
		{name: "blank name", mutate: func(c *RunConfig) { c.SearchName = " \t " }, want: ErrNoSearchName},
		{name: "relative url", mutate: func(c *RunConfig) { c.StartURL = "/country/" }, want: ErrInvalidStartURL},
		{name: "ftp url", mutate: func(c *RunConfig) { c.StartURL = "ftp://example.com/" }, want: ErrInvalidStartURL},
		{name: "zero timeout", mutate: func(c *RunConfig) { c.Timeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative depth", mutate: func(c *RunConfig) { c.Depth = -1 }, want: ErrInvalidDepth},
		{name: "negative pages", mutate: func(c *RunConfig) { c.MaxPages = -5 }, want: ErrInvalidMaxPages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "rehovot", (&RunConfig{SearchName: "Rehovot"}).Slug())
	assert.Equal(t, "american-samoa", (&RunConfig{SearchName: "American Samoa"}).Slug())
	assert.Equal(t, DefaultName, (&RunConfig{SearchName: "???"}).Slug())
}
