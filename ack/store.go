package ack

import (
	"context"
	"database/sql"
	"time"

	"github.com/veratrix/esg/errors"
	"github.com/veratrix/esg/submission"
)

// Poll state lifecycle values
const (
	StateActive    = "active"    // Sweeper will poll when next_poll_at is due
	StateStalled   = "stalled"   // ack3 timed out; awaiting manual intervention
	StateCompleted = "completed" // ack3 received, submission reached a terminal status
	StateCancelled = "cancelled" // Administratively aborted
)

// PollState is the durable record that drives acknowledgment polling for
// one submission. At most one row exists per submission, which guarantees
// at most one outstanding poll per (submission, stage) and lets pending
// polls survive process restarts.
type PollState struct {
	SubmissionID string
	Stage        submission.AckStage
	Attempts     int
	NextPollAt   time.Time
	DelayDoubled bool // Last reschedule used the doubled transport-error delay
	State        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store handles persistence of acknowledgment poll states
type Store struct {
	db *sql.DB
}

// NewStore creates a poll state store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpsertPollState creates or replaces the poll state for a submission.
// Replacing supersedes any stale pending poll from a prior schedule.
func (s *Store) UpsertPollState(ps *PollState) error {
	query := `
		INSERT INTO ack_poll_states (
			submission_id, stage, attempts, next_poll_at, delay_doubled,
			state, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(submission_id) DO UPDATE SET
			stage = excluded.stage,
			attempts = excluded.attempts,
			next_poll_at = excluded.next_poll_at,
			delay_doubled = excluded.delay_doubled,
			state = excluded.state,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	doubled := 0
	if ps.DelayDoubled {
		doubled = 1
	}

	_, err := s.db.Exec(query,
		ps.SubmissionID,
		string(ps.Stage),
		ps.Attempts,
		ps.NextPollAt.UTC().Format(time.RFC3339),
		doubled,
		ps.State,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert poll state")
	}

	return nil
}

// GetPollState retrieves the poll state for a submission
func (s *Store) GetPollState(submissionID string) (*PollState, error) {
	query := `
		SELECT submission_id, stage, attempts, next_poll_at, delay_doubled,
		       state, created_at, updated_at
		FROM ack_poll_states
		WHERE submission_id = ?
	`

	ps, err := scanPollState(s.db.QueryRow(query, submissionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("poll state for submission %s", submissionID)
		}
		return nil, errors.Wrap(err, "failed to get poll state")
	}
	return ps, nil
}

// ListDue returns active poll states whose next_poll_at has passed,
// ordered oldest-due first for deterministic sweeping.
func (s *Store) ListDue(ctx context.Context, now time.Time) ([]*PollState, error) {
	query := `
		SELECT submission_id, stage, attempts, next_poll_at, delay_doubled,
		       state, created_at, updated_at
		FROM ack_poll_states
		WHERE state = ? AND next_poll_at <= ?
		ORDER BY next_poll_at ASC
		LIMIT 100
	`

	rows, err := s.db.QueryContext(ctx, query, StateActive, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list due poll states")
	}
	defer rows.Close()

	var states []*PollState
	for rows.Next() {
		ps, err := scanPollState(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan poll state")
		}
		states = append(states, ps)
	}

	return states, rows.Err()
}

// UpdatePollState persists stage/attempt/schedule changes for a submission
func (s *Store) UpdatePollState(ps *PollState) error {
	query := `
		UPDATE ack_poll_states
		SET stage = ?,
		    attempts = ?,
		    next_poll_at = ?,
		    delay_doubled = ?,
		    state = ?,
		    updated_at = ?
		WHERE submission_id = ?
	`

	doubled := 0
	if ps.DelayDoubled {
		doubled = 1
	}

	result, err := s.db.Exec(query,
		string(ps.Stage),
		ps.Attempts,
		ps.NextPollAt.UTC().Format(time.RFC3339),
		doubled,
		ps.State,
		time.Now().UTC().Format(time.RFC3339),
		ps.SubmissionID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update poll state")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("poll state for submission %s", ps.SubmissionID)
	}

	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPollState(row scanner) (*PollState, error) {
	var ps PollState
	var stage, nextPollAt, createdAt, updatedAt string
	var doubled int

	err := row.Scan(
		&ps.SubmissionID,
		&stage,
		&ps.Attempts,
		&nextPollAt,
		&doubled,
		&ps.State,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ps.Stage = submission.AckStage(stage)
	ps.DelayDoubled = doubled == 1

	ps.NextPollAt, err = time.Parse(time.RFC3339, nextPollAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse next_poll_at for submission %s", ps.SubmissionID)
	}
	ps.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse created_at for submission %s", ps.SubmissionID)
	}
	ps.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse updated_at for submission %s", ps.SubmissionID)
	}

	return &ps, nil
}
