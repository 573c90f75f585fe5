package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/veratrix/esg/errors"
	"github.com/veratrix/esg/submission"
)

// PushAdapter performs a synchronous AS2-style handoff: the package
// archive is transmitted in one HTTP exchange and the gateway responds
// with its assigned identifiers.
type PushAdapter struct {
	client *retryablehttp.Client
	logger *zap.SugaredLogger
}

// NewPushAdapter creates the push-style adapter with a retrying HTTP
// client for transient network failures.
func NewPushAdapter(logger *zap.SugaredLogger) *PushAdapter {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return &PushAdapter{client: client, logger: logger}
}

// submitResponse is the gateway's reply to a successful handoff
type submitResponse struct {
	CoreID         string `json:"core_id"`
	TransmissionID string `json:"transmission_id"`
}

// Submit implements Adapter. The upload either completes and returns the
// gateway identifiers, or fails with no partial state assumed sent.
func (a *PushAdapter) Submit(ctx context.Context, sub *submission.Submission, cfg *submission.GatewayConfig) (*SubmitResult, error) {
	archive, err := os.Open(sub.PackagePath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransport, err.Error())
	}
	defer archive.Close()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		cfg.Endpoint+"/submissions", archive)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransport, err.Error())
	}
	req.Header.Set("Content-Type", "application/gzip")
	req.Header.Set("AS2-From", cfg.SenderID)
	req.Header.Set("AS2-To", cfg.ReceiverID)
	if cfg.Username != "" {
		req.SetBasicAuth(cfg.Username, cfg.Password)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransport, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransport, err.Error())
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.Wrapf(errors.ErrTransport,
			"gateway rejected submission: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed submitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(errors.ErrTransport, "gateway returned unparseable submit response")
	}
	if parsed.CoreID == "" {
		return nil, errors.Wrap(errors.ErrTransport, "gateway submit response missing core_id")
	}

	a.logger.Infow("Package transmitted to gateway",
		"submission_id", sub.ID,
		"core_id", parsed.CoreID,
		"transmission_id", parsed.TransmissionID)

	return &SubmitResult{
		ExternalSubmissionID: parsed.CoreID,
		TransmissionID:       parsed.TransmissionID,
	}, nil
}

// CheckAcknowledgment implements Adapter. The gateway answers 404 while an
// acknowledgment is not yet available; that is reported as not-found, not
// as an error.
func (a *PushAdapter) CheckAcknowledgment(ctx context.Context, sub *submission.Submission, cfg *submission.GatewayConfig, stage submission.AckStage) (*AckCheck, error) {
	url := fmt.Sprintf("%s/acknowledgments/%s/%s", cfg.Endpoint, sub.ExternalSubmissionID, stage)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build acknowledgment request")
	}
	req.Header.Set("AS2-From", cfg.SenderID)
	req.Header.Set("AS2-To", cfg.ReceiverID)
	if cfg.Username != "" {
		req.SetBasicAuth(cfg.Username, cfg.Password)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "acknowledgment check failed for %s", stage)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &AckCheck{Found: false}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read acknowledgment response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("gateway acknowledgment endpoint returned status %d", resp.StatusCode)
	}

	var payload ackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s acknowledgment", stage)
	}

	return payload.toCheck(body)
}
