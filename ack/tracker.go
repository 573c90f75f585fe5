// Package ack tracks the three-stage gateway acknowledgment handshake.
//
// Polling is a durable state machine: one ack_poll_states row per
// submission records the current stage, attempt count, and next poll
// time, and the sweeper re-derives due work from the registry on every
// tick. Pending polls therefore survive process restarts, while the
// retry/escalation semantics stay exactly those of the original chained
// timers: MAX_RETRY bounded retries per stage, forward escalation across
// non-final stages, and only ack3 deciding the final disposition.
package ack

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/veratrix/esg/config"
	"github.com/veratrix/esg/errors"
	"github.com/veratrix/esg/internal/util"
	"github.com/veratrix/esg/submission"
	"github.com/veratrix/esg/transport"
)

// AdapterFactory builds a transport adapter for a gateway configuration.
// Production wiring uses transport.New; tests substitute fakes.
type AdapterFactory func(cfg *submission.GatewayConfig, logger *zap.SugaredLogger) (transport.Adapter, error)

// Tracker advances submissions through ack1 -> ack2 -> ack3
type Tracker struct {
	store    *Store
	registry *submission.Store
	adapters AdapterFactory
	cfg      config.TrackerConfig
	logger   *zap.SugaredLogger
}

// NewTracker creates the acknowledgment tracker. All delays and the retry
// bound come from cfg so tests can run with accelerated timers.
func NewTracker(store *Store, registry *submission.Store, adapters AdapterFactory, cfg config.TrackerConfig, logger *zap.SugaredLogger) *Tracker {
	if adapters == nil {
		adapters = transport.New
	}
	return &Tracker{
		store:    store,
		registry: registry,
		adapters: adapters,
		cfg:      cfg,
		logger:   logger,
	}
}

// Schedule starts acknowledgment tracking for a freshly submitted
// submission: ack1 polling begins after the configured initial delay.
// Any stale poll state from a prior schedule is superseded.
func (t *Tracker) Schedule(submissionID string, now time.Time) error {
	return t.store.UpsertPollState(&PollState{
		SubmissionID: submissionID,
		Stage:        submission.StageAck1,
		Attempts:     0,
		NextPollAt:   now.Add(t.cfg.InitialDelay()),
		State:        StateActive,
	})
}

// Abort administratively cancels acknowledgment tracking for a stuck
// submission. The submission moves to the cancelled terminal status and
// the abort is recorded in the audit trail.
func (t *Tracker) Abort(submissionID, reason string) error {
	ps, err := t.store.GetPollState(submissionID)
	if err != nil {
		return err
	}
	if ps.State == StateCompleted {
		return errors.Newf("submission %s already reached a terminal acknowledgment state", submissionID)
	}

	ps.State = StateCancelled
	if err := t.store.UpdatePollState(ps); err != nil {
		return err
	}

	if err := t.registry.UpdateStatus(submissionID, submission.StatusCancelled, reason); err != nil {
		return err
	}
	return t.registry.AppendEvent(submissionID, submission.EventCancelled,
		map[string]string{"reason": reason, "stage": string(ps.Stage)}, "")
}

// ProcessDue performs one sweep: every active poll state whose next poll
// time has passed is polled once. Polling errors are contained here; they
// are never re-raised past the tracker.
func (t *Tracker) ProcessDue(ctx context.Context, now time.Time) error {
	states, err := t.store.ListDue(ctx, now)
	if err != nil {
		return err
	}

	for _, ps := range states {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.poll(ctx, ps, now); err != nil {
			t.logger.Errorw("Acknowledgment poll failed",
				"submission_id", ps.SubmissionID,
				"stage", ps.Stage,
				"error", err)
			// Continue with other submissions even if one fails
			continue
		}
	}

	return nil
}

// poll performs one acknowledgment check for one submission and applies
// the state machine transition the outcome demands.
func (t *Tracker) poll(ctx context.Context, ps *PollState, now time.Time) error {
	sub, err := t.registry.GetSubmission(ps.SubmissionID)
	if err != nil {
		return err
	}
	gw, err := t.registry.ActiveGatewayConfig(sub.TenantID, sub.Environment)
	if err != nil {
		return err
	}
	adapter, err := t.adapters(gw, t.logger)
	if err != nil {
		return err
	}

	check, err := adapter.CheckAcknowledgment(ctx, sub, gw, ps.Stage)
	if err != nil {
		// Transport failure: treated as not-found, but the next retry
		// delay is doubled. The attempt still counts.
		t.logger.Warnw("Transport error during acknowledgment poll",
			"submission_id", ps.SubmissionID,
			"stage", ps.Stage,
			"attempt", ps.Attempts,
			"error", err)
		return t.handleNotFound(ps, now, true)
	}

	if !check.Found {
		return t.handleNotFound(ps, now, false)
	}

	return t.handleReceived(sub, ps, check, now)
}

// handleReceived persists the acknowledgment and either finalizes the
// submission (ack3) or advances to the next stage.
func (t *Tracker) handleReceived(sub *submission.Submission, ps *PollState, check *transport.AckCheck, now time.Time) error {
	rec := &submission.Acknowledgment{
		SubmissionID: ps.SubmissionID,
		Stage:        ps.Stage,
		ExternalID:   check.ExternalID,
		Status:       check.Status,
		Message:      check.Message,
		Code:         check.Code,
		RawPayload:   check.RawPayload,
	}
	if !check.AckDate.IsZero() {
		rec.AckDate = util.Ptr(check.AckDate)
	}
	if err := t.registry.CreateAcknowledgment(rec); err != nil {
		return err
	}

	if err := t.registry.AppendEvent(ps.SubmissionID, string(ps.Stage)+"_received",
		map[string]string{"ack_id": check.ExternalID, "status": string(check.Status)}, ""); err != nil {
		return err
	}

	t.logger.Infow("Acknowledgment received",
		"submission_id", ps.SubmissionID,
		"stage", ps.Stage,
		"status", check.Status)

	next, ok := ps.Stage.Next()
	if !ok {
		// ack3 is authoritative: its status alone decides the final disposition
		final := submission.StatusAcknowledged
		if check.Status != submission.AckSuccess {
			final = submission.StatusRejected
		}

		if err := t.registry.UpdateStatus(ps.SubmissionID, final, ""); err != nil {
			return err
		}
		if err := t.registry.AppendEvent(ps.SubmissionID, submission.EventLifecycleCompleted,
			map[string]string{"final_status": string(final)}, ""); err != nil {
			return err
		}

		ps.State = StateCompleted
		ps.DelayDoubled = false
		if err := t.store.UpdatePollState(ps); err != nil {
			return err
		}

		t.logger.Infow("Submission lifecycle completed",
			"submission_id", ps.SubmissionID,
			"final_status", final)
		return nil
	}

	ps.Stage = next
	ps.Attempts = 0
	ps.DelayDoubled = false
	ps.NextPollAt = now.Add(t.cfg.InterStageDelay())
	return t.store.UpdatePollState(ps)
}

// handleNotFound applies the bounded-retry rule: retry the same stage up
// to MaxRetry attempts, then escalate. transportError doubles the next
// retry delay without altering the escalation path.
func (t *Tracker) handleNotFound(ps *PollState, now time.Time, transportError bool) error {
	ps.Attempts++

	if ps.Attempts < t.cfg.MaxRetry {
		delay := t.cfg.PollInterval()
		if transportError {
			delay *= 2
		}
		ps.DelayDoubled = transportError
		ps.NextPollAt = now.Add(delay)
		return t.store.UpdatePollState(ps)
	}

	// Retry budget for this stage exhausted
	if err := t.registry.AppendEvent(ps.SubmissionID, string(ps.Stage)+"_timeout",
		map[string]interface{}{"attempts": ps.Attempts}, ""); err != nil {
		return err
	}

	next, ok := ps.Stage.Next()
	if !ok {
		// ack3 timed out: the submission stays in submitted and the
		// stall is surfaced for manual intervention, never silently
		// retried.
		ps.State = StateStalled
		ps.DelayDoubled = false
		t.logger.Warnw("Final acknowledgment timed out, submission stalled",
			"submission_id", ps.SubmissionID,
			"attempts", ps.Attempts)
		return t.store.UpdatePollState(ps)
	}

	// Graceful degradation: a missing ack1/ack2 does not block progress
	// toward the authoritative ack3.
	t.logger.Warnw("Acknowledgment stage timed out, escalating to next stage",
		"submission_id", ps.SubmissionID,
		"stage", ps.Stage,
		"next_stage", next)

	ps.Stage = next
	ps.Attempts = 0
	ps.DelayDoubled = false
	ps.NextPollAt = now.Add(t.cfg.EscalationDelay())
	return t.store.UpdatePollState(ps)
}
