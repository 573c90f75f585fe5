package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "esg.db")

	// Assembler defaults
	v.SetDefault("assembler.output_dir", "packages")
	v.SetDefault("assembler.applicant", "")
	v.SetDefault("assembler.dtd_version", "3.3")
	v.SetDefault("assembler.checksums_file", "index-md5.txt")

	// Validator defaults
	v.SetDefault("validator.name", "structural")

	// Tracker defaults mirror gateway behavior: ack1 arrives within
	// minutes, ack2/ack3 can lag by hours, so retries are spaced widely.
	v.SetDefault("tracker.sweep_interval_seconds", 5)
	v.SetDefault("tracker.initial_delay_seconds", 60)
	v.SetDefault("tracker.poll_interval_seconds", 300)
	v.SetDefault("tracker.inter_stage_delay_seconds", 120)
	v.SetDefault("tracker.escalation_delay_seconds", 900)
	v.SetDefault("tracker.max_retry", 3)
}
