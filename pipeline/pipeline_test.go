package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veratrix/esg/ack"
	"github.com/veratrix/esg/assemble"
	"github.com/veratrix/esg/config"
	"github.com/veratrix/esg/errors"
	esgtest "github.com/veratrix/esg/internal/testing"
	"github.com/veratrix/esg/submission"
	"github.com/veratrix/esg/validate"
)

type staticProvider struct {
	content map[string][]byte
}

func (p *staticProvider) ListSections(ctx context.Context, submissionID string) ([]string, error) {
	var codes []string
	for code := range p.content {
		codes = append(codes, code)
	}
	return codes, nil
}

func (p *staticProvider) Render(ctx context.Context, submissionID, sectionCode string) ([]byte, error) {
	return p.content[sectionCode], nil
}

// failingAssembler simulates a fatal packaging failure
type failingAssembler struct{}

func (f *failingAssembler) Assemble(ctx context.Context, submissionID string) (*assemble.Result, error) {
	return nil, errors.New("staging disk full")
}

// gatewayStub is an in-process push gateway that accepts one submission
// and serves successful acknowledgments for every stage.
func gatewayStub(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/submissions":
			json.NewEncoder(w).Encode(map[string]string{
				"core_id":         "CORE-9",
				"transmission_id": "TX-9",
			})
		case r.Method == http.MethodGet:
			var stage string
			fmt.Sscanf(r.URL.Path, "/acknowledgments/CORE-9/%s", &stage)
			json.NewEncoder(w).Encode(map[string]string{
				"ack_id":   "ACK-" + stage,
				"ack_date": time.Now().UTC().Format(time.RFC3339),
				"status":   "success",
				"message":  stage + " processed",
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func trackerConfig() config.TrackerConfig {
	return config.TrackerConfig{
		SweepIntervalSeconds:   1,
		InitialDelaySeconds:    10,
		PollIntervalSeconds:    30,
		InterStageDelaySeconds: 20,
		EscalationDelaySeconds: 60,
		MaxRetry:               3,
	}
}

func setupPipeline(t *testing.T, endpoint string, assembler Assembler) (*Pipeline, *ack.Tracker, *submission.Store) {
	t.Helper()

	db := esgtest.CreateTestDB(t)
	registry := submission.NewStore(db)
	logger := zap.NewNop().Sugar()

	if endpoint != "" {
		require.NoError(t, registry.CreateGatewayConfig(&submission.GatewayConfig{
			ID:             "gw-1",
			TenantID:       "default",
			Environment:    submission.EnvironmentTest,
			ConnectionType: submission.ConnectionPush,
			SenderID:       "SND01",
			ReceiverID:     "FDA",
			Endpoint:       endpoint,
			Active:         true,
		}))
	}

	if assembler == nil {
		provider := &staticProvider{content: map[string][]byte{
			"2.7.1":   []byte("clinical summary"),
			"3.2.P.1": []byte("drug product description"),
		}}
		cfg := config.AssemblerConfig{OutputDir: t.TempDir(), Applicant: "Veratrix", DTDVersion: "3.3"}
		assembler = assemble.NewAssembler(registry, provider, cfg, logger)
	}

	tracker := ack.NewTracker(ack.NewStore(db), registry, nil, trackerConfig(), logger)
	pipe := New(registry, assembler, validate.NewRegistry(), "structural", nil, tracker, logger)
	return pipe, tracker, registry
}

func TestCreateAssignsSequence(t *testing.T) {
	pipe, _, registry := setupPipeline(t, "", &failingAssembler{})

	first, err := pipe.Create("NDA-123456", "original", "CDER", "default", submission.EnvironmentTest)
	require.NoError(t, err)
	assert.Equal(t, 1, first.SequenceNumber)
	assert.Equal(t, submission.StatusPreparing, first.Status)

	second, err := pipe.Create("NDA-123456", "amendment", "CDER", "default", submission.EnvironmentTest)
	require.NoError(t, err)
	assert.Equal(t, 2, second.SequenceNumber)

	events, err := registry.ListEvents(first.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, submission.EventCreated, events[0].EventType)
}

func TestFullLifecycle(t *testing.T) {
	server := gatewayStub(t)
	defer server.Close()

	pipe, tracker, registry := setupPipeline(t, server.URL, nil)
	ctx := context.Background()

	sub, err := pipe.Create("NDA-123456", "original", "CDER", "default", submission.EnvironmentTest)
	require.NoError(t, err)

	require.NoError(t, pipe.Run(ctx, sub.ID))

	submitted, err := registry.GetSubmission(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusSubmitted, submitted.Status)
	assert.Equal(t, "CORE-9", submitted.ExternalSubmissionID)
	assert.Equal(t, "TX-9", submitted.TransmissionID)
	assert.NotEmpty(t, submitted.PackagePath)

	// Package was validated; m1/m4/m5 have no content, so warnings only
	reports, err := registry.ListValidationReports(sub.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, submission.ValidationWarnings, reports[0].Status)
	assert.Equal(t, 0, reports[0].ErrorCount)

	// Drive the acknowledgment handshake to completion
	now := time.Now().UTC()
	require.NoError(t, tracker.ProcessDue(ctx, now.Add(10*time.Second)))
	require.NoError(t, tracker.ProcessDue(ctx, now.Add(30*time.Second)))
	require.NoError(t, tracker.ProcessDue(ctx, now.Add(50*time.Second)))

	final, err := registry.GetSubmission(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusAcknowledged, final.Status)

	acks, err := registry.ListAcknowledgments(sub.ID)
	require.NoError(t, err)
	require.Len(t, acks, 3)

	events, err := registry.ListEvents(sub.ID)
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{
		submission.EventCreated,
		submission.EventPackagingStarted,
		submission.EventPackagingCompleted,
		submission.EventValidationStarted,
		submission.EventValidationCompleted,
		submission.EventSubmissionStarted,
		submission.EventSubmissionCompleted,
		"ack1_received",
		"ack2_received",
		"ack3_received",
		submission.EventLifecycleCompleted,
	}, types)
}

func TestPackagingFailureRecorded(t *testing.T) {
	pipe, _, registry := setupPipeline(t, "", &failingAssembler{})

	sub, err := pipe.Create("NDA-1", "original", "CDER", "default", submission.EnvironmentTest)
	require.NoError(t, err)

	err = pipe.Run(context.Background(), sub.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPackaging))

	failed, err := registry.GetSubmission(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusPackagingFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "staging disk full")

	events, err := registry.ListEvents(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.EventPackagingFailed, events[len(events)-1].EventType)
}

func TestValidationFailureStopsPipeline(t *testing.T) {
	server := gatewayStub(t)
	defer server.Close()

	db := esgtest.CreateTestDB(t)
	registry := submission.NewStore(db)
	logger := zap.NewNop().Sugar()

	// Provider with no sections: the package has an empty m-tree but still
	// gets a backbone and checksum, so the structural validator only warns.
	// Use a validator that always fails instead.
	registryV := validate.NewRegistry()
	registryV.Register(&alwaysFailValidator{})

	provider := &staticProvider{content: map[string][]byte{"2.5": []byte("x")}}
	assembler := assemble.NewAssembler(registry, provider,
		config.AssemblerConfig{OutputDir: t.TempDir(), DTDVersion: "3.3"}, logger)
	tracker := ack.NewTracker(ack.NewStore(db), registry, nil, trackerConfig(), logger)
	pipe := New(registry, assembler, registryV, "always-fail", nil, tracker, logger)

	sub, err := pipe.Create("NDA-1", "original", "CDER", "default", submission.EnvironmentTest)
	require.NoError(t, err)

	err = pipe.Run(context.Background(), sub.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidationFailed))

	failed, err := registry.GetSubmission(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusValidationFailed, failed.Status)

	// Nothing was transmitted
	assert.Empty(t, failed.ExternalSubmissionID)
}

func TestMissingGatewayConfigFailsSubmit(t *testing.T) {
	pipe, _, registry := setupPipeline(t, "", nil)

	sub, err := pipe.Create("NDA-1", "original", "CDER", "default", submission.EnvironmentTest)
	require.NoError(t, err)

	err = pipe.Run(context.Background(), sub.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigNotFound))

	failed, err := registry.GetSubmission(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusSubmissionFailed, failed.Status)
}

type alwaysFailValidator struct{}

func (v *alwaysFailValidator) Name() string { return "always-fail" }

func (v *alwaysFailValidator) Validate(packagePath string) *validate.Report {
	return &validate.Report{
		Status:     submission.ValidationFailed,
		ErrorCount: 1,
		Summary:    "1 error(s), 0 warning(s)",
		Findings: []validate.Finding{{
			Severity: "error",
			Code:     "leaf-ref-broken",
			Message:  "backbone references a missing file",
		}},
	}
}
