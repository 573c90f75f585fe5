package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "esg.db", cfg.Database.Path)
	assert.Equal(t, "packages", cfg.Assembler.OutputDir)
	assert.Equal(t, "3.3", cfg.Assembler.DTDVersion)
	assert.Equal(t, "index-md5.txt", cfg.Assembler.ChecksumsFile)
	assert.Equal(t, "structural", cfg.Validator.Name)
	assert.Equal(t, 3, cfg.Tracker.MaxRetry)
	assert.Equal(t, 5*time.Second, cfg.Tracker.SweepInterval())
	assert.Equal(t, time.Minute, cfg.Tracker.InitialDelay())
	assert.Equal(t, 5*time.Minute, cfg.Tracker.PollInterval())
	assert.Equal(t, 2*time.Minute, cfg.Tracker.InterStageDelay())
	assert.Equal(t, 15*time.Minute, cfg.Tracker.EscalationDelay())
}

func TestLoadFromFile(t *testing.T) {
	content := `
[database]
path = "/var/lib/esg/registry.db"

[assembler]
output_dir = "/var/lib/esg/packages"
applicant = "Veratrix Pharma"

[tracker]
max_retry = 5
poll_interval_seconds = 60
`
	path := filepath.Join(t.TempDir(), "esg.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/esg/registry.db", cfg.Database.Path)
	assert.Equal(t, "/var/lib/esg/packages", cfg.Assembler.OutputDir)
	assert.Equal(t, "Veratrix Pharma", cfg.Assembler.Applicant)
	assert.Equal(t, 5, cfg.Tracker.MaxRetry)
	assert.Equal(t, time.Minute, cfg.Tracker.PollInterval())

	// Unset keys keep their defaults
	assert.Equal(t, "structural", cfg.Validator.Name)
	assert.Equal(t, "3.3", cfg.Assembler.DTDVersion)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
