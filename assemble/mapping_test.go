package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleDirForSection(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"1.1", "m1/us"},
		{"2.2", "m2/22-intro"},
		{"2.5", "m2/25-clin-over"},
		{"2.7.1", "m2/27-clin-sum"},
		{"2.9", "m2"}, // No sub-prefix; falls back to the module prefix
		{"3.2.S.1", "m3/32-body-data/32s-drug-sub"},
		{"3.2.P.5.4", "m3/32-body-data/32p-drug-prod"},
		{"3.2.A", "m3/32-body-data"},
		{"4.2.1", "m4/42-stud-rep"},
		{"5.2", "m5/53-clin-stud-rep"},
		{"5.3.5.1", "m5/53-clin-stud-rep/535-rep-effic-safety-stud"},
		{"9.9", "m1/us"}, // Unknown codes land in the administrative module
		{"", "m1/us"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, ModuleDirForSection(tt.code))
		})
	}
}

func TestModuleDirLongestPrefixWins(t *testing.T) {
	// "3.2.P" is more specific than "3", so the drug product directory
	// wins even though both prefixes match.
	assert.Equal(t, "m3/32-body-data/32p-drug-prod", ModuleDirForSection("3.2.P.1"))
	assert.Equal(t, "m3/32-body-data", ModuleDirForSection("3.1"))
}

func TestSectionFileName(t *testing.T) {
	assert.Equal(t, "2-7-1.pdf", sectionFileName("2.7.1"))
	assert.Equal(t, "1.pdf", sectionFileName("1"))
	assert.Equal(t, "3-2-P-5-4.pdf", sectionFileName("3.2.P.5.4"))
}
