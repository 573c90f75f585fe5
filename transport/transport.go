// Package transport provides the pluggable gateway submission channel.
// Exactly two adapter kinds exist: a push-style adapter (synchronous
// AS2-like handoff) and a pull-style adapter (asynchronous SFTP-like
// drop/retrieve). Callers never branch on adapter kind beyond construction.
package transport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/veratrix/esg/errors"
	"github.com/veratrix/esg/submission"
)

// SubmitResult carries the identifiers the gateway assigns on a
// successful handoff.
type SubmitResult struct {
	ExternalSubmissionID string
	TransmissionID       string
}

// AckCheck is the outcome of one acknowledgment poll. Found=false means
// the acknowledgment is not yet available, which is never an error.
type AckCheck struct {
	Found      bool
	ExternalID string
	AckDate    time.Time
	Status     submission.AckStatus
	Message    string
	Code       string
	RawPayload string
}

// Adapter is the uniform submission channel contract.
//
// Submit is atomic from the caller's perspective: either a valid result is
// returned, or an error is raised and no partial submission state is
// assumed sent.
//
// CheckAcknowledgment returns Found=false for a not-yet-available
// acknowledgment; it returns an error only for transport/infrastructure
// failures, which the acknowledgment tracker treats as retryable.
type Adapter interface {
	Submit(ctx context.Context, sub *submission.Submission, cfg *submission.GatewayConfig) (*SubmitResult, error)
	CheckAcknowledgment(ctx context.Context, sub *submission.Submission, cfg *submission.GatewayConfig, stage submission.AckStage) (*AckCheck, error)
}

// New constructs the adapter matching the gateway configuration's
// connection type.
func New(cfg *submission.GatewayConfig, logger *zap.SugaredLogger) (Adapter, error) {
	switch cfg.ConnectionType {
	case submission.ConnectionPush:
		return NewPushAdapter(logger), nil
	case submission.ConnectionPull:
		return NewPullAdapter(logger), nil
	default:
		return nil, errors.Newf("unknown gateway connection type: %s", cfg.ConnectionType)
	}
}

// ackPayload is the wire shape both adapters receive acknowledgments in
type ackPayload struct {
	AckID   string `json:"ack_id"`
	AckDate string `json:"ack_date"` // RFC3339
	Status  string `json:"status"`   // "success" or "failure"
	Message string `json:"message"`
	Code    string `json:"code"`
}

// toCheck converts a decoded acknowledgment payload plus its raw bytes
// into the uniform AckCheck shape.
func (p ackPayload) toCheck(raw []byte) (*AckCheck, error) {
	check := &AckCheck{
		Found:      true,
		ExternalID: p.AckID,
		Message:    p.Message,
		Code:       p.Code,
		RawPayload: string(raw),
	}

	switch p.Status {
	case "success":
		check.Status = submission.AckSuccess
	case "failure":
		check.Status = submission.AckFailure
	default:
		return nil, errors.Newf("acknowledgment carries unknown status %q", p.Status)
	}

	if p.AckDate != "" {
		t, err := time.Parse(time.RFC3339, p.AckDate)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse acknowledgment date")
		}
		check.AckDate = t
	}

	return check, nil
}
