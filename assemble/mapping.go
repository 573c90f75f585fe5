package assemble

import (
	"strings"
)

// moduleSkeleton is the fixed directory layout every package starts from:
// the five eCTD top-level modules plus the two utility folders for schema
// and stylesheet assets.
var moduleSkeleton = []string{
	"m1",
	"m2",
	"m3",
	"m4",
	"m5",
	"util/dtd",
	"util/style",
}

// sectionPrefixes maps a section-code prefix to its package directory.
// Resolution is longest-matching-prefix: keys differ by length, so ties
// are impossible and the most specific prefix always wins.
var sectionPrefixes = map[string]string{
	"1":     "m1/us",
	"2":     "m2",
	"2.2":   "m2/22-intro",
	"2.3":   "m2/23-qos",
	"2.4":   "m2/24-nonclin-over",
	"2.5":   "m2/25-clin-over",
	"2.6":   "m2/26-nonclin-sum",
	"2.7":   "m2/27-clin-sum",
	"3":     "m3/32-body-data",
	"3.2.S": "m3/32-body-data/32s-drug-sub",
	"3.2.P": "m3/32-body-data/32p-drug-prod",
	"4":     "m4/42-stud-rep",
	"5":     "m5/53-clin-stud-rep",
	"5.3.5": "m5/53-clin-stud-rep/535-rep-effic-safety-stud",
}

// defaultModuleDir is the administrative module fallback for codes no
// table prefix matches.
const defaultModuleDir = "m1/us"

// ModuleDirForSection resolves a section code to its package directory via
// longest-matching-prefix over the static table.
func ModuleDirForSection(code string) string {
	best := ""
	for prefix := range sectionPrefixes {
		if strings.HasPrefix(code, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return defaultModuleDir
	}
	return sectionPrefixes[best]
}

// sectionFileName derives a content file name from a section code,
// e.g. "2.7.1" -> "2-7-1.pdf".
func sectionFileName(code string) string {
	return strings.ReplaceAll(code, ".", "-") + ".pdf"
}
