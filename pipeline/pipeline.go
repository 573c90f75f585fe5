// Package pipeline orchestrates the submission lifecycle: assemble,
// validate, transmit, then hand off to the acknowledgment tracker. Every
// status transition writes exactly one audit event, and fatal stage
// errors are recorded on the submission before being re-raised to the
// caller.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veratrix/esg/ack"
	"github.com/veratrix/esg/assemble"
	"github.com/veratrix/esg/errors"
	"github.com/veratrix/esg/submission"
	"github.com/veratrix/esg/transport"
	"github.com/veratrix/esg/validate"
)

// Assembler is the package assembly stage. Production wiring uses
// *assemble.Assembler; tests substitute fakes.
type Assembler interface {
	Assemble(ctx context.Context, submissionID string) (*assemble.Result, error)
}

// Pipeline drives one submission through its full lifecycle
type Pipeline struct {
	registry      *submission.Store
	assembler     Assembler
	validators    *validate.Registry
	validatorName string
	adapters      ack.AdapterFactory
	tracker       *ack.Tracker
	logger        *zap.SugaredLogger
}

// New creates a pipeline
func New(registry *submission.Store, assembler Assembler, validators *validate.Registry,
	validatorName string, adapters ack.AdapterFactory, tracker *ack.Tracker,
	logger *zap.SugaredLogger) *Pipeline {
	if adapters == nil {
		adapters = transport.New
	}
	return &Pipeline{
		registry:      registry,
		assembler:     assembler,
		validators:    validators,
		validatorName: validatorName,
		adapters:      adapters,
		tracker:       tracker,
		logger:        logger,
	}
}

// Create registers a new submission in preparing state with the next
// sequence number for its parent document.
func (p *Pipeline) Create(documentID, submissionType, center, tenantID string, env submission.Environment) (*submission.Submission, error) {
	seq, err := p.registry.NextSequenceNumber(documentID)
	if err != nil {
		return nil, err
	}

	sub := &submission.Submission{
		ID:             uuid.NewString(),
		DocumentID:     documentID,
		Status:         submission.StatusPreparing,
		SubmissionType: submissionType,
		SequenceNumber: seq,
		Center:         center,
		PackageFormat:  "ectd",
		TenantID:       tenantID,
		Environment:    env,
	}
	if err := p.registry.CreateSubmission(sub); err != nil {
		return nil, err
	}

	if err := p.registry.AppendEvent(sub.ID, submission.EventCreated,
		map[string]interface{}{"document_id": documentID, "sequence_number": seq}, ""); err != nil {
		return nil, err
	}

	p.logger.Infow("Submission created",
		"submission_id", sub.ID,
		"document_id", documentID,
		"sequence", seq)

	return sub, nil
}

// Run executes the full pipeline for a prepared submission. On a fatal
// stage failure the submission status and error message are recorded, a
// failure event is appended, and the error propagates to the caller.
func (p *Pipeline) Run(ctx context.Context, submissionID string) error {
	if err := p.runPackaging(ctx, submissionID); err != nil {
		return err
	}
	if err := p.runValidation(submissionID); err != nil {
		return err
	}
	return p.runSubmit(ctx, submissionID)
}

func (p *Pipeline) runPackaging(ctx context.Context, submissionID string) error {
	if err := p.transition(submissionID, submission.StatusPackaging, submission.EventPackagingStarted, nil); err != nil {
		return err
	}

	res, err := p.assembler.Assemble(ctx, submissionID)
	if err != nil {
		p.fail(submissionID, submission.StatusPackagingFailed, submission.EventPackagingFailed, err)
		return errors.Wrap(errors.ErrPackaging, err.Error())
	}

	return p.transition(submissionID, submission.StatusPackaged, submission.EventPackagingCompleted,
		map[string]interface{}{"package_path": res.PackagePath, "file_count": res.FileCount})
}

func (p *Pipeline) runValidation(submissionID string) error {
	if err := p.transition(submissionID, submission.StatusValidating, submission.EventValidationStarted, nil); err != nil {
		return err
	}

	sub, err := p.registry.GetSubmission(submissionID)
	if err != nil {
		return err
	}

	validator, err := p.validators.Get(p.validatorName)
	if err != nil {
		p.fail(submissionID, submission.StatusValidationError, submission.EventValidationCompleted, err)
		return err
	}

	report := validator.Validate(sub.PackagePath)
	if err := p.persistReport(submissionID, validator.Name(), report); err != nil {
		return err
	}

	if err := p.registry.AppendEvent(submissionID, submission.EventValidationCompleted,
		map[string]interface{}{
			"validator": validator.Name(),
			"status":    string(report.Status),
			"errors":    report.ErrorCount,
			"warnings":  report.WarningCount,
		}, ""); err != nil {
		return err
	}

	switch report.Status {
	case submission.ValidationPassed, submission.ValidationWarnings:
		// Only validated may proceed to submitting
		return p.registry.UpdateStatus(submissionID, submission.StatusValidated, "")
	case submission.ValidationFailed:
		if err := p.registry.UpdateStatus(submissionID, submission.StatusValidationFailed, report.Summary); err != nil {
			return err
		}
		return errors.Wrap(errors.ErrValidationFailed, report.Summary)
	default:
		if err := p.registry.UpdateStatus(submissionID, submission.StatusValidationError, report.Summary); err != nil {
			return err
		}
		return errors.Newf("validation could not run: %s", report.Summary)
	}
}

func (p *Pipeline) runSubmit(ctx context.Context, submissionID string) error {
	if err := p.transition(submissionID, submission.StatusSubmitting, submission.EventSubmissionStarted, nil); err != nil {
		return err
	}

	sub, err := p.registry.GetSubmission(submissionID)
	if err != nil {
		return err
	}

	gw, err := p.registry.ActiveGatewayConfig(sub.TenantID, sub.Environment)
	if err != nil {
		p.fail(submissionID, submission.StatusSubmissionFailed, submission.EventSubmissionFailed, err)
		return err
	}

	adapter, err := p.adapters(gw, p.logger)
	if err != nil {
		p.fail(submissionID, submission.StatusSubmissionFailed, submission.EventSubmissionFailed, err)
		return err
	}

	result, err := adapter.Submit(ctx, sub, gw)
	if err != nil {
		p.fail(submissionID, submission.StatusSubmissionFailed, submission.EventSubmissionFailed, err)
		return errors.Wrap(err, "gateway submit failed")
	}

	if err := p.registry.SetTransmission(submissionID, result.ExternalSubmissionID, result.TransmissionID); err != nil {
		return err
	}
	if err := p.transition(submissionID, submission.StatusSubmitted, submission.EventSubmissionCompleted,
		map[string]interface{}{
			"external_submission_id": result.ExternalSubmissionID,
			"transmission_id":        result.TransmissionID,
		}); err != nil {
		return err
	}

	// Submitted: acknowledgment polling takes over
	return p.tracker.Schedule(submissionID, time.Now())
}

// transition moves the submission to a status and appends the matching event
func (p *Pipeline) transition(submissionID string, status submission.Status, eventType string, detail interface{}) error {
	if err := p.registry.UpdateStatus(submissionID, status, ""); err != nil {
		return err
	}
	return p.registry.AppendEvent(submissionID, eventType, detail, "")
}

// fail records a fatal stage failure; the caller re-raises the error
func (p *Pipeline) fail(submissionID string, status submission.Status, eventType string, cause error) {
	if err := p.registry.UpdateStatus(submissionID, status, cause.Error()); err != nil {
		p.logger.Errorw("Failed to record failure status",
			"submission_id", submissionID, "status", status, "error", err)
	}
	if err := p.registry.AppendEvent(submissionID, eventType,
		map[string]string{"error": cause.Error()}, ""); err != nil {
		p.logger.Errorw("Failed to record failure event",
			"submission_id", submissionID, "event", eventType, "error", err)
	}

	p.logger.Errorw("Pipeline stage failed",
		"submission_id", submissionID,
		"status", status,
		"error", cause)
}

func (p *Pipeline) persistReport(submissionID, validatorName string, report *validate.Report) error {
	detail, err := validate.MarshalFindings(report.Findings)
	if err != nil {
		return err
	}
	return p.registry.CreateValidationReport(&submission.ValidationReport{
		SubmissionID: submissionID,
		Validator:    validatorName,
		Status:       report.Status,
		ErrorCount:   report.ErrorCount,
		WarningCount: report.WarningCount,
		Summary:      report.Summary,
		Detail:       detail,
	})
}
