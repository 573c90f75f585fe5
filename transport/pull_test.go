package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veratrix/esg/submission"
)

func pullConfig(exchangeDir string) *submission.GatewayConfig {
	return &submission.GatewayConfig{
		ID:             "gw-2",
		TenantID:       "default",
		Environment:    submission.EnvironmentTest,
		ConnectionType: submission.ConnectionPull,
		Endpoint:       exchangeDir,
		Active:         true,
	}
}

func TestPullSubmit(t *testing.T) {
	exchange := t.TempDir()
	adapter := NewPullAdapter(zap.NewNop().Sugar())
	sub := &submission.Submission{ID: "sub-1", PackagePath: testPackage(t)}

	result, err := adapter.Submit(context.Background(), sub, pullConfig(exchange))
	require.NoError(t, err)
	require.NotEmpty(t, result.ExternalSubmissionID)
	assert.Equal(t, result.ExternalSubmissionID, result.TransmissionID)

	// Archive landed in the outbox under the transmission ID
	dropped := filepath.Join(exchange, "outbox", result.TransmissionID+".tar.gz")
	data, err := os.ReadFile(dropped)
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(data))
}

func TestPullSubmitMissingPackage(t *testing.T) {
	adapter := NewPullAdapter(zap.NewNop().Sugar())
	sub := &submission.Submission{ID: "sub-1", PackagePath: "/does/not/exist.tar.gz"}

	_, err := adapter.Submit(context.Background(), sub, pullConfig(t.TempDir()))
	assert.Error(t, err)
}

func TestPullCheckAcknowledgment(t *testing.T) {
	exchange := t.TempDir()
	adapter := NewPullAdapter(zap.NewNop().Sugar())
	sub := &submission.Submission{ID: "sub-1", ExternalSubmissionID: "TX-9"}
	cfg := pullConfig(exchange)

	// Nothing in the inbox yet
	check, err := adapter.CheckAcknowledgment(context.Background(), sub, cfg, submission.StageAck1)
	require.NoError(t, err)
	assert.False(t, check.Found)

	// Gateway drops the ack1 file
	inbox := filepath.Join(exchange, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0755))
	payload := `{"ack_id":"ACK-1","ack_date":"2026-08-30T09:00:00Z","status":"success","message":"received"}`
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "TX-9.ack1.json"), []byte(payload), 0644))

	check, err = adapter.CheckAcknowledgment(context.Background(), sub, cfg, submission.StageAck1)
	require.NoError(t, err)
	assert.True(t, check.Found)
	assert.Equal(t, "ACK-1", check.ExternalID)
	assert.Equal(t, submission.AckSuccess, check.Status)

	// ack2 is still pending
	check, err = adapter.CheckAcknowledgment(context.Background(), sub, cfg, submission.StageAck2)
	require.NoError(t, err)
	assert.False(t, check.Found)
}

func TestPullCheckAcknowledgmentTornFile(t *testing.T) {
	exchange := t.TempDir()
	inbox := filepath.Join(exchange, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "TX-9.ack1.json"), []byte(`{"ack_id":`), 0644))

	adapter := NewPullAdapter(zap.NewNop().Sugar())
	sub := &submission.Submission{ID: "sub-1", ExternalSubmissionID: "TX-9"}

	_, err := adapter.CheckAcknowledgment(context.Background(), sub, pullConfig(exchange), submission.StageAck1)
	assert.Error(t, err)
}

func TestNewSelectsAdapterByConnectionType(t *testing.T) {
	logger := zap.NewNop().Sugar()

	push, err := New(pushConfig("https://example.test"), logger)
	require.NoError(t, err)
	assert.IsType(t, &PushAdapter{}, push)

	pull, err := New(pullConfig(t.TempDir()), logger)
	require.NoError(t, err)
	assert.IsType(t, &PullAdapter{}, pull)

	_, err = New(&submission.GatewayConfig{ConnectionType: "carrier-pigeon"}, logger)
	assert.Error(t, err)
}
