package validate

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/veratrix/esg/submission"
)

const structuralName = "structural"

// expectedModules are the top-level module directories a well-formed
// package carries content under.
var expectedModules = []string{"m1", "m2", "m3", "m4", "m5"}

// StructuralValidator performs structure-only checks on a package archive:
// backbone present, checksum side-file present, module directories
// non-empty. It never inspects file content.
type StructuralValidator struct {
	checksumsFile string
}

// NewStructuralValidator creates the built-in validator. checksumsFile
// defaults to "index-md5.txt" when empty.
func NewStructuralValidator(checksumsFile string) *StructuralValidator {
	if checksumsFile == "" {
		checksumsFile = "index-md5.txt"
	}
	return &StructuralValidator{checksumsFile: checksumsFile}
}

// Name implements Validator
func (v *StructuralValidator) Name() string { return structuralName }

// Validate implements Validator. A package that cannot be opened or parsed
// yields a ValidationError report: the validator could not run, which is
// distinct from the package content being invalid.
func (v *StructuralValidator) Validate(packagePath string) *Report {
	entries, err := listArchiveEntries(packagePath)
	if err != nil {
		return &Report{
			Status:     submission.ValidationError,
			ErrorCount: 1,
			Summary:    fmt.Sprintf("validator could not read package: %v", err),
		}
	}

	var findings []Finding

	if !entries["index.xml"] {
		findings = append(findings, Finding{
			Severity: "error",
			Code:     "backbone-missing",
			Message:  "backbone document index.xml not found at package root",
			Path:     "index.xml",
		})
	}

	if !entries[v.checksumsFile] {
		findings = append(findings, Finding{
			Severity: "error",
			Code:     "checksum-missing",
			Message:  "checksum side-file not found at package root",
			Path:     v.checksumsFile,
		})
	}

	for _, module := range expectedModules {
		if !hasEntryUnder(entries, module) {
			findings = append(findings, Finding{
				Severity: "warning",
				Code:     "module-empty",
				Message:  fmt.Sprintf("module directory %s is empty", module),
				Path:     module,
			})
		}
	}

	errorCount, warningCount := 0, 0
	for _, f := range findings {
		if f.Severity == "error" {
			errorCount++
		} else {
			warningCount++
		}
	}

	return &Report{
		Status:       DeriveStatus(errorCount, warningCount),
		ErrorCount:   errorCount,
		WarningCount: warningCount,
		Summary:      fmt.Sprintf("%d error(s), %d warning(s)", errorCount, warningCount),
		Findings:     findings,
	}
}

// listArchiveEntries returns the set of file paths inside a tar.gz package
func listArchiveEntries(packagePath string) (map[string]bool, error) {
	f, err := os.Open(packagePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	entries := make(map[string]bool)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries[hdr.Name] = true
	}

	return entries, nil
}

func hasEntryUnder(entries map[string]bool, dir string) bool {
	prefix := dir + "/"
	for name := range entries {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
