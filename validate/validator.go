// Package validate evaluates assembled packages against structural and
// content rules. Validators are pluggable by name and share one uniform
// pass/warn/fail report shape.
package validate

import (
	"encoding/json"
	"sync"

	"github.com/veratrix/esg/errors"
	"github.com/veratrix/esg/submission"
)

// Finding is one structured validation observation
type Finding struct {
	Severity string `json:"severity"` // "error" or "warning"
	Code     string `json:"code"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
}

// Report is the uniform validation outcome. Validation is read-only and
// idempotent: the same package always yields an identical report.
type Report struct {
	Status       submission.ValidationStatus
	ErrorCount   int
	WarningCount int
	Summary      string
	Findings     []Finding
}

// MarshalFindings serializes findings for persistence alongside a report
func MarshalFindings(findings []Finding) (json.RawMessage, error) {
	if len(findings) == 0 {
		return json.RawMessage("[]"), nil
	}
	raw, err := json.Marshal(findings)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal validation findings")
	}
	return raw, nil
}

// Validator evaluates one assembled package archive. Implementations must
// encode their own internal failures as a ValidationError-status report
// rather than panicking or returning partial results.
type Validator interface {
	Name() string
	Validate(packagePath string) *Report
}

// DeriveStatus applies the uniform status rule all validators share:
// any error fails, else any warning warns, else passed.
func DeriveStatus(errorCount, warningCount int) submission.ValidationStatus {
	if errorCount > 0 {
		return submission.ValidationFailed
	}
	if warningCount > 0 {
		return submission.ValidationWarnings
	}
	return submission.ValidationPassed
}

// Registry holds named validators. The built-in structural validator is
// always registered.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]Validator
}

// NewRegistry creates a registry pre-populated with the structural validator
func NewRegistry() *Registry {
	r := &Registry{validators: make(map[string]Validator)}
	r.validators[structuralName] = NewStructuralValidator("")
	return r
}

// Register adds a validator under its name, replacing any previous entry
func (r *Registry) Register(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[v.Name()] = v
}

// Get resolves a validator by name
func (r *Registry) Get(name string) (Validator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.validators[name]
	if !ok {
		return nil, errors.NewNotFoundError("validator %s", name)
	}
	return v, nil
}
