package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veratrix/esg/errors"
	"github.com/veratrix/esg/submission"
)

// PullAdapter performs asynchronous SFTP-style transfer over a mounted
// exchange directory: packages are dropped into outbox/ and the gateway
// leaves acknowledgment files in inbox/. The real SFTP session is managed
// outside this process; the adapter only sees the mount point named by
// GatewayConfig.Endpoint.
type PullAdapter struct {
	logger *zap.SugaredLogger
}

// NewPullAdapter creates the pull-style adapter
func NewPullAdapter(logger *zap.SugaredLogger) *PullAdapter {
	return &PullAdapter{logger: logger}
}

// Submit implements Adapter. The archive is copied into the exchange
// outbox under a fresh transmission ID; the copy either completes or the
// partial file is removed.
func (a *PullAdapter) Submit(ctx context.Context, sub *submission.Submission, cfg *submission.GatewayConfig) (*SubmitResult, error) {
	transmissionID := uuid.NewString()

	outbox := filepath.Join(cfg.Endpoint, "outbox")
	if err := os.MkdirAll(outbox, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrTransport, err.Error())
	}

	dest := filepath.Join(outbox, transmissionID+".tar.gz")
	if err := copyFile(sub.PackagePath, dest); err != nil {
		// Atomicity: never leave a torn package for the gateway to pick up
		os.Remove(dest)
		return nil, errors.Wrap(errors.ErrTransport, err.Error())
	}

	a.logger.Infow("Package dropped for gateway retrieval",
		"submission_id", sub.ID,
		"transmission_id", transmissionID,
		"outbox", outbox)

	return &SubmitResult{
		ExternalSubmissionID: transmissionID,
		TransmissionID:       transmissionID,
	}, nil
}

// CheckAcknowledgment implements Adapter. The gateway drops one JSON file
// per stage into inbox/, named <external id>.<stage>.json. A missing file
// means the acknowledgment is not yet available.
func (a *PullAdapter) CheckAcknowledgment(ctx context.Context, sub *submission.Submission, cfg *submission.GatewayConfig, stage submission.AckStage) (*AckCheck, error) {
	path := filepath.Join(cfg.Endpoint, "inbox",
		fmt.Sprintf("%s.%s.json", sub.ExternalSubmissionID, stage))

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &AckCheck{Found: false}, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s acknowledgment file", stage)
	}

	var payload ackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// A torn or mid-write file; retryable
		return nil, errors.Wrapf(err, "failed to parse %s acknowledgment file", stage)
	}

	return payload.toCheck(raw)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
