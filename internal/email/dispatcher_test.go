package email

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timberline-data/enrich-cli/internal/model"
)

type stubTransport struct {
	probeErr error
	sendErr  map[string]error
	sent     []string
}

func (s *stubTransport) Probe(context.Context) error { return s.probeErr }

func (s *stubTransport) Send(_ context.Context, recipient string, _ Rendered) error {
	if err, ok := s.sendErr[recipient]; ok {
		return err
	}
	s.sent = append(s.sent, recipient)
	return nil
}

func resultWithEmail(name string, email model.Field) model.ResearchResult {
	return model.ResearchResult{
		Entity: model.Entity{Name: name},
		Record: model.ExtractionRecord{
			BusinessName: name,
			Email:        email,
		},
		Status: model.StatusSuccess,
	}
}

func configuredDispatcher(t *testing.T, transport Transport) *Dispatcher {
	t.Helper()
	d := NewDispatcher(nil, time.Millisecond)
	require.NoError(t, d.Configure(context.Background(), transport))
	return d
}

func TestConfigureFailedProbe(t *testing.T) {
	d := NewDispatcher(nil, time.Millisecond)
	err := d.Configure(context.Background(), &stubTransport{
		probeErr: eris.New("535 authentication failed"),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 authentication failed")
	assert.Equal(t, StateNotConfigured, d.State())

	_, err = d.SendBulk(context.Background(), nil, SendOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSendBulkSelectsEligibleOnly(t *testing.T) {
	transport := &stubTransport{}
	d := configuredDispatcher(t, transport)

	results := []model.ResearchResult{
		resultWithEmail("Alpha Timber", model.Found("info@alpha.com")),
		resultWithEmail("Beta Wood", model.NotFound()),
		resultWithEmail("Gamma Lumber", model.PendingReview()),
		resultWithEmail("Delta Forest", model.Found("sales@delta.com")),
	}

	summary, err := d.SendBulk(context.Background(), results, SendOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"info@alpha.com", "sales@delta.com"}, transport.sent)
	assert.Equal(t, 4, summary.TotalBusinesses)
	assert.Equal(t, 2, summary.EmailsToSend)
	assert.Equal(t, 2, summary.EmailsSent)
	assert.Equal(t, 0, summary.EmailsFailed)
	assert.InDelta(t, 100.0, summary.SuccessRate, 0.01)
	assert.Equal(t, StateDone, d.State())
}

func TestSendBulkForcedSelectionStillChecksAddress(t *testing.T) {
	transport := &stubTransport{}
	d := configuredDispatcher(t, transport)

	// Forcing the selection list must not bypass the address gate:
	// sentinel values and strings without "@" are never sent to.
	forced := []model.ResearchResult{
		resultWithEmail("Alpha Timber", model.Found("info@alpha.com")),
		resultWithEmail("Beta Wood", model.Found("Not found")),
		resultWithEmail("Gamma Lumber", model.Found("no-email-listed")),
	}

	summary, err := d.SendBulk(context.Background(), nil, SendOptions{Selected: forced})
	require.NoError(t, err)

	assert.Equal(t, []string{"info@alpha.com"}, transport.sent)
	assert.Equal(t, 1, summary.EmailsToSend)
	assert.Equal(t, 1, summary.EmailsSent)
}

func TestSendBulkZeroEligible(t *testing.T) {
	transport := &stubTransport{}
	d := configuredDispatcher(t, transport)

	results := []model.ResearchResult{
		resultWithEmail("Beta Wood", model.NotFound()),
	}

	summary, err := d.SendBulk(context.Background(), results, SendOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalBusinesses)
	assert.Equal(t, 0, summary.EmailsToSend)
	assert.Equal(t, 0, summary.EmailsSent)
	assert.Equal(t, 0, summary.EmailsFailed)
	assert.Zero(t, summary.SuccessRate)
	assert.NotEmpty(t, summary.Message)
	assert.Empty(t, transport.sent)
}

func TestSendBulkIsolatesRecipientFailure(t *testing.T) {
	transport := &stubTransport{
		sendErr: map[string]error{
			"info@alpha.com": eris.New("mailbox unavailable"),
		},
	}
	d := configuredDispatcher(t, transport)

	results := []model.ResearchResult{
		resultWithEmail("Alpha Timber", model.Found("info@alpha.com")),
		resultWithEmail("Delta Forest", model.Found("sales@delta.com")),
	}

	summary, err := d.SendBulk(context.Background(), results, SendOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"sales@delta.com"}, transport.sent)
	assert.Equal(t, 1, summary.EmailsSent)
	assert.Equal(t, 1, summary.EmailsFailed)
	assert.InDelta(t, 50.0, summary.SuccessRate, 0.01)

	log := d.Log()
	require.Len(t, log, 2)
	assert.False(t, log[0].Sent)
	assert.Contains(t, log[0].Error, "mailbox unavailable")
	assert.True(t, log[1].Sent)
}

func TestSendBulkMissingVariableAborts(t *testing.T) {
	transport := &stubTransport{}
	templates := map[string]Template{
		"broken": {Name: "broken", Subject: "Hi {undefined_var}", TextBody: "x"},
	}
	d := NewDispatcher(templates, time.Millisecond)
	require.NoError(t, d.Configure(context.Background(), transport))

	results := []model.ResearchResult{
		resultWithEmail("Alpha Timber", model.Found("info@alpha.com")),
	}

	_, err := d.SendBulk(context.Background(), results, SendOptions{TemplateName: "broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined_var")
	assert.Empty(t, transport.sent)
}

func TestSendBulkUnknownTemplate(t *testing.T) {
	d := configuredDispatcher(t, &stubTransport{})
	_, err := d.SendBulk(context.Background(), nil, SendOptions{TemplateName: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown template")
}

func TestSaveLog(t *testing.T) {
	transport := &stubTransport{}
	d := configuredDispatcher(t, transport)
	d.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	results := []model.ResearchResult{
		resultWithEmail("Alpha Timber", model.Found("info@alpha.com")),
	}
	_, err := d.SendBulk(context.Background(), results, SendOptions{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "send_log.json")
	require.NoError(t, d.SaveLog(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var outcomes []model.EmailSendOutcome
	require.NoError(t, json.Unmarshal(data, &outcomes))
	require.Len(t, outcomes, 1)
	assert.Equal(t, "info@alpha.com", outcomes[0].Recipient)
	assert.True(t, outcomes[0].Sent)
}
