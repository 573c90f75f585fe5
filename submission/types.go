// Package submission defines the ESG data model and its SQLite registry.
package submission

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a submission.
// Transitions are strictly sequential per submission:
// preparing -> packaging -> packaged -> validating -> validated ->
// submitting -> submitted -> acknowledged | rejected, with failure
// states branching off each active stage.
type Status string

const (
	StatusPreparing        Status = "preparing"
	StatusPackaging        Status = "packaging"
	StatusPackagingFailed  Status = "packaging_failed"
	StatusPackaged         Status = "packaged"
	StatusValidating       Status = "validating"
	StatusValidated        Status = "validated"
	StatusValidationFailed Status = "validation_failed"
	StatusValidationError  Status = "validation_error"
	StatusSubmitting       Status = "submitting"
	StatusSubmissionFailed Status = "submission_failed"
	StatusSubmitted        Status = "submitted"
	StatusAcknowledged     Status = "acknowledged"
	StatusRejected         Status = "rejected"
	StatusCancelled        Status = "cancelled"
)

// IsTerminal reports whether no further pipeline activity is possible.
// A submission in StatusSubmitted with a stalled poll state is NOT
// terminal; it awaits manual intervention.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPackagingFailed, StatusValidationFailed, StatusValidationError,
		StatusSubmissionFailed, StatusAcknowledged, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// Environment identifies the gateway environment a submission targets
type Environment string

const (
	EnvironmentTest       Environment = "test"
	EnvironmentProduction Environment = "production"
)

// Submission is one sequenced transmission of a regulatory document to the
// gateway. Rows are never deleted, only superseded by a higher sequence number.
type Submission struct {
	ID                   string
	DocumentID           string // Parent regulatory document
	Status               Status
	SubmissionType       string // e.g. "original", "amendment", "supplement"
	SequenceNumber       int    // Monotonically increasing per document
	Center               string // Receiving center/authority code, e.g. "CDER"
	PackageFormat        string // e.g. "ectd"
	TenantID             string
	Environment          Environment
	PackagePath          string // Archive artifact path once packaged
	ExternalSubmissionID string // Assigned by the gateway on submit
	TransmissionID       string
	ErrorMessage         string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// FileKind classifies a file inside an assembled package
type FileKind string

const (
	FileKindContent  FileKind = "content"
	FileKindBackbone FileKind = "backbone"
	FileKindChecksum FileKind = "checksum"
)

// File records one file written into a package, with integrity digests
// computed over the exact bytes written.
type File struct {
	ID           string
	SubmissionID string
	Path         string // Relative to package root
	Kind         FileKind
	SizeBytes    int64
	MD5          string
	SHA256       string
	CreatedAt    time.Time
}

// ValidationStatus is the uniform outcome classification for validators
type ValidationStatus string

const (
	ValidationPassed   ValidationStatus = "passed"
	ValidationWarnings ValidationStatus = "warnings"
	ValidationFailed   ValidationStatus = "failed"
	// ValidationError means the validator itself could not run,
	// distinct from the package content being invalid.
	ValidationError ValidationStatus = "error"
)

// ValidationReport is immutable once created; a re-run inserts a new report.
type ValidationReport struct {
	ID           string
	SubmissionID string
	Validator    string
	Status       ValidationStatus
	ErrorCount   int
	WarningCount int
	Summary      string
	Detail       json.RawMessage
	CreatedAt    time.Time
}

// AckStage identifies one of the three sequential gateway acknowledgments
type AckStage string

const (
	StageAck1 AckStage = "ack1" // Receipt confirmation
	StageAck2 AckStage = "ack2" // Processing confirmation
	StageAck3 AckStage = "ack3" // Final acceptance/rejection (authoritative)
)

// Next returns the following stage, or false when s is ack3.
func (s AckStage) Next() (AckStage, bool) {
	switch s {
	case StageAck1:
		return StageAck2, true
	case StageAck2:
		return StageAck3, true
	default:
		return "", false
	}
}

// AckStatus is the outcome carried by a single acknowledgment message
type AckStatus string

const (
	AckSuccess AckStatus = "success"
	AckFailure AckStatus = "failure"
)

// Acknowledgment is one received gateway acknowledgment. Stages are
// recorded in order ack1 -> ack2 -> ack3 (a skipped stage leaves a gap).
type Acknowledgment struct {
	ID           string
	SubmissionID string
	Stage        AckStage
	ExternalID   string
	AckDate      *time.Time
	Status       AckStatus
	Message      string
	Code         string
	RawPayload   string
	CreatedAt    time.Time
}

// Event is one append-only audit record. Every status transition of a
// submission produces exactly one event.
type Event struct {
	ID           int64
	SubmissionID string
	EventType    string
	Detail       json.RawMessage
	Actor        string
	CreatedAt    time.Time
}

// Lifecycle event types. Acknowledgment events are derived per stage as
// "<stage>_received" and "<stage>_timeout".
const (
	EventCreated             = "submission_created"
	EventPackagingStarted    = "packaging_started"
	EventPackagingCompleted  = "packaging_completed"
	EventPackagingFailed     = "packaging_failed"
	EventValidationStarted   = "validation_started"
	EventValidationCompleted = "validation_completed"
	EventSubmissionStarted   = "submission_started"
	EventSubmissionCompleted = "submission_completed"
	EventSubmissionFailed    = "submission_failed"
	EventCancelled           = "submission_cancelled"
	EventLifecycleCompleted  = "lifecycle_completed"
)

// ConnectionType selects the transport adapter kind for a gateway
type ConnectionType string

const (
	ConnectionPush ConnectionType = "push" // Synchronous AS2-style handoff
	ConnectionPull ConnectionType = "pull" // Asynchronous SFTP-style drop/retrieve
)

// GatewayConfig holds the transmission settings for one (tenant, environment)
// pair. Exactly one active config per pair is resolvable at submission time.
type GatewayConfig struct {
	ID             string
	TenantID       string
	Environment    Environment
	ConnectionType ConnectionType
	Username       string
	Password       string
	SenderID       string
	ReceiverID     string
	Endpoint       string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
