// Package config loads the layered ESG pipeline configuration.
package config

import "time"

// Config represents the core ESG pipeline configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Assembler AssemblerConfig `mapstructure:"assembler"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
}

// DatabaseConfig configures the SQLite submission registry
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AssemblerConfig configures package assembly
type AssemblerConfig struct {
	OutputDir     string `mapstructure:"output_dir"`     // Where staged packages and archives are written
	Applicant     string `mapstructure:"applicant"`      // Applicant/sponsor identity embedded in the backbone
	DTDVersion    string `mapstructure:"dtd_version"`    // Backbone DTD version advertised in the manifest
	ChecksumsFile string `mapstructure:"checksums_file"` // Name of the checksum side-file (default: index-md5.txt)
}

// ValidatorConfig selects the package validator
type ValidatorConfig struct {
	Name string `mapstructure:"name"` // Registered validator name (default: "structural")
}

// TrackerConfig configures acknowledgment polling.
// All timings are explicit so tests can run with accelerated timers.
type TrackerConfig struct {
	SweepIntervalSeconds   int `mapstructure:"sweep_interval_seconds"`    // How often the sweeper checks for due polls (default: 5)
	InitialDelaySeconds    int `mapstructure:"initial_delay_seconds"`     // Wait after submit before the first ack1 poll (default: 60)
	PollIntervalSeconds    int `mapstructure:"poll_interval_seconds"`     // Same-stage retry interval (default: 300)
	InterStageDelaySeconds int `mapstructure:"inter_stage_delay_seconds"` // Delay before polling the next stage after success (default: 120)
	EscalationDelaySeconds int `mapstructure:"escalation_delay_seconds"`  // Delay before the next stage after a stage times out (default: 900)
	MaxRetry               int `mapstructure:"max_retry"`                 // Not-found polls per stage before escalation (default: 3)
}

// SweepInterval returns the sweeper interval as a duration
func (t TrackerConfig) SweepInterval() time.Duration {
	return time.Duration(t.SweepIntervalSeconds) * time.Second
}

// InitialDelay returns the post-submit delay as a duration
func (t TrackerConfig) InitialDelay() time.Duration {
	return time.Duration(t.InitialDelaySeconds) * time.Second
}

// PollInterval returns the same-stage retry interval as a duration
func (t TrackerConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSeconds) * time.Second
}

// InterStageDelay returns the stage-advance delay as a duration
func (t TrackerConfig) InterStageDelay() time.Duration {
	return time.Duration(t.InterStageDelaySeconds) * time.Second
}

// EscalationDelay returns the timeout-escalation delay as a duration
func (t TrackerConfig) EscalationDelay() time.Duration {
	return time.Duration(t.EscalationDelaySeconds) * time.Second
}
