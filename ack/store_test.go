package ack

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veratrix/esg/errors"
	esgtest "github.com/veratrix/esg/internal/testing"
	"github.com/veratrix/esg/submission"
)

func createSubmittedSubmission(t *testing.T, registry *submission.Store, documentID string, seq int) *submission.Submission {
	t.Helper()

	sub := &submission.Submission{
		ID:             uuid.NewString(),
		DocumentID:     documentID,
		Status:         submission.StatusSubmitted,
		SubmissionType: "original",
		SequenceNumber: seq,
		Center:         "CDER",
		PackageFormat:  "ectd",
		TenantID:       "default",
		Environment:    submission.EnvironmentTest,
	}
	require.NoError(t, registry.CreateSubmission(sub))
	require.NoError(t, registry.SetTransmission(sub.ID, "CORE-"+sub.ID[:8], "TX-"+sub.ID[:8]))
	return sub
}

func TestUpsertAndGetPollState(t *testing.T) {
	db := esgtest.CreateTestDB(t)
	registry := submission.NewStore(db)
	store := NewStore(db)
	sub := createSubmittedSubmission(t, registry, "NDA-1", 1)

	next := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, store.UpsertPollState(&PollState{
		SubmissionID: sub.ID,
		Stage:        submission.StageAck1,
		NextPollAt:   next,
		State:        StateActive,
	}))

	ps, err := store.GetPollState(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StageAck1, ps.Stage)
	assert.Equal(t, 0, ps.Attempts)
	assert.Equal(t, StateActive, ps.State)
	assert.True(t, ps.NextPollAt.Equal(next))

	// Upserting again replaces the previous state
	require.NoError(t, store.UpsertPollState(&PollState{
		SubmissionID: sub.ID,
		Stage:        submission.StageAck2,
		Attempts:     2,
		NextPollAt:   next.Add(time.Hour),
		State:        StateActive,
	}))

	ps, err = store.GetPollState(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StageAck2, ps.Stage)
	assert.Equal(t, 2, ps.Attempts)
}

func TestGetPollStateNotFound(t *testing.T) {
	store := NewStore(esgtest.CreateTestDB(t))

	_, err := store.GetPollState("missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestListDue(t *testing.T) {
	db := esgtest.CreateTestDB(t)
	registry := submission.NewStore(db)
	store := NewStore(db)
	now := time.Now().UTC()

	overdue := createSubmittedSubmission(t, registry, "NDA-1", 1)
	justDue := createSubmittedSubmission(t, registry, "NDA-1", 2)
	future := createSubmittedSubmission(t, registry, "NDA-1", 3)
	stalled := createSubmittedSubmission(t, registry, "NDA-1", 4)

	require.NoError(t, store.UpsertPollState(&PollState{
		SubmissionID: overdue.ID, Stage: submission.StageAck1,
		NextPollAt: now.Add(-10 * time.Minute), State: StateActive,
	}))
	require.NoError(t, store.UpsertPollState(&PollState{
		SubmissionID: justDue.ID, Stage: submission.StageAck2,
		NextPollAt: now.Add(-time.Second), State: StateActive,
	}))
	require.NoError(t, store.UpsertPollState(&PollState{
		SubmissionID: future.ID, Stage: submission.StageAck1,
		NextPollAt: now.Add(time.Hour), State: StateActive,
	}))
	require.NoError(t, store.UpsertPollState(&PollState{
		SubmissionID: stalled.ID, Stage: submission.StageAck3,
		NextPollAt: now.Add(-time.Hour), State: StateStalled,
	}))

	due, err := store.ListDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 2)

	// Oldest due first
	assert.Equal(t, overdue.ID, due[0].SubmissionID)
	assert.Equal(t, justDue.ID, due[1].SubmissionID)
}

func TestUpdatePollState(t *testing.T) {
	db := esgtest.CreateTestDB(t)
	registry := submission.NewStore(db)
	store := NewStore(db)
	sub := createSubmittedSubmission(t, registry, "NDA-1", 1)

	require.NoError(t, store.UpsertPollState(&PollState{
		SubmissionID: sub.ID, Stage: submission.StageAck1,
		NextPollAt: time.Now(), State: StateActive,
	}))

	ps, err := store.GetPollState(sub.ID)
	require.NoError(t, err)

	ps.Attempts = 2
	ps.DelayDoubled = true
	ps.State = StateStalled
	require.NoError(t, store.UpdatePollState(ps))

	updated, err := store.GetPollState(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Attempts)
	assert.True(t, updated.DelayDoubled)
	assert.Equal(t, StateStalled, updated.State)

	// Unknown submission
	ps.SubmissionID = "missing"
	err = store.UpdatePollState(ps)
	assert.True(t, errors.IsNotFoundError(err))
}
