package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/timberline-data/enrich-cli/internal/model"
)

// State is the dispatcher lifecycle. A campaign can only run from
// Configured, which requires a successful transport probe.
type State string

const (
	StateNotConfigured State = "not_configured"
	StateConfigured    State = "configured"
	StateSending       State = "sending"
	StateDone          State = "done"
)

// Dispatcher runs bulk outreach campaigns over a configured transport.
type Dispatcher struct {
	templates map[string]Template
	transport Transport
	state     State
	delay     time.Duration
	log       []model.EmailSendOutcome
	now       func() time.Time
}

// NewDispatcher creates a dispatcher with the given template set.
// delay is the spacing between sends; zero or negative means the
// default 2 seconds.
func NewDispatcher(templates map[string]Template, delay time.Duration) *Dispatcher {
	if len(templates) == 0 {
		templates = DefaultTemplates()
	}
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Dispatcher{
		templates: templates,
		state:     StateNotConfigured,
		delay:     delay,
		now:       time.Now,
	}
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return d.state
}

// Configure runs the transport's connectivity probe and, on success,
// arms the dispatcher. A failed probe leaves the dispatcher
// unconfigured and returns the transport's diagnostic untouched.
func (d *Dispatcher) Configure(ctx context.Context, transport Transport) error {
	if err := transport.Probe(ctx); err != nil {
		return err
	}
	d.transport = transport
	d.state = StateConfigured
	zap.L().Info("email: transport configured")
	return nil
}

// SendOptions configures one campaign.
type SendOptions struct {
	// TemplateName selects the template; empty means "business_intro".
	TemplateName string
	// Variables are merged under the per-recipient fields. Missing
	// values fall back to DefaultVariables.
	Variables map[string]string
	// Selected overrides the default eligibility selection. Entries
	// still must carry a usable email address; forcing the list does
	// not bypass the address check.
	Selected []model.ResearchResult
}

// SendBulk renders and sends one email per eligible recipient, in
// order, isolating per-recipient failures. Zero eligible recipients is
// a no-op summary, not an error.
func (d *Dispatcher) SendBulk(ctx context.Context, results []model.ResearchResult, opts SendOptions) (*model.DispatchSummary, error) {
	if d.state != StateConfigured {
		return nil, eris.Errorf("email: dispatcher not configured (state %s)", d.state)
	}

	name := opts.TemplateName
	if name == "" {
		name = "business_intro"
	}
	tpl, ok := d.templates[name]
	if !ok {
		return nil, eris.Errorf("email: unknown template %q", name)
	}

	pool := results
	if opts.Selected != nil {
		pool = opts.Selected
	}
	var eligible []model.ResearchResult
	for _, res := range pool {
		if res.Record.EmailEligible() {
			eligible = append(eligible, res)
		}
	}

	if len(eligible) == 0 {
		d.state = StateDone
		return &model.DispatchSummary{
			Message: "no businesses with valid email addresses found",
		}, nil
	}

	vars := DefaultVariables()
	for k, v := range opts.Variables {
		vars[k] = v
	}

	d.state = StateSending
	zap.L().Info("email: campaign starting",
		zap.String("template", name),
		zap.Int("recipients", len(eligible)),
		zap.Duration("delay", d.delay),
	)

	limiter := rate.NewLimiter(rate.Every(d.delay), 1)
	summary := &model.DispatchSummary{
		TotalBusinesses: len(pool),
		EmailsToSend:    len(eligible),
	}

	for _, res := range eligible {
		if err := limiter.Wait(ctx); err != nil {
			d.state = StateDone
			return summary, eris.Wrap(err, "email: campaign cancelled")
		}

		businessName := res.Record.BusinessName
		if businessName == "" {
			businessName = res.Entity.Name
		}
		recipient := res.Record.Email.Value

		recipientVars := make(map[string]string, len(vars)+2)
		for k, v := range vars {
			recipientVars[k] = v
		}
		recipientVars["business_name"] = businessName
		recipientVars["business_email"] = recipient

		rendered, err := Render(tpl, recipientVars)
		if err != nil {
			// A missing variable affects every recipient equally, so
			// this aborts the campaign instead of burning sends.
			d.state = StateDone
			return summary, err
		}

		outcome := model.EmailSendOutcome{
			Recipient:    recipient,
			BusinessName: businessName,
			Subject:      rendered.Subject,
			SentAt:       d.now(),
		}

		if err := d.transport.Send(ctx, recipient, rendered); err != nil {
			outcome.Error = err.Error()
			summary.EmailsFailed++
			zap.L().Warn("email: send failed",
				zap.String("recipient", recipient),
				zap.Error(err),
			)
		} else {
			outcome.Sent = true
			summary.EmailsSent++
			zap.L().Info("email: sent", zap.String("recipient", recipient))
		}
		d.log = append(d.log, outcome)
	}

	summary.SuccessRate = float64(summary.EmailsSent) / float64(summary.EmailsToSend) * 100
	summary.Message = fmt.Sprintf("email campaign completed, sent %d of %d", summary.EmailsSent, summary.EmailsToSend)
	d.state = StateDone

	zap.L().Info("email: campaign finished",
		zap.Int("sent", summary.EmailsSent),
		zap.Int("failed", summary.EmailsFailed),
		zap.Float64("success_rate", summary.SuccessRate),
	)

	return summary, nil
}

// Log returns the per-send outcomes recorded so far.
func (d *Dispatcher) Log() []model.EmailSendOutcome {
	return d.log
}

// SaveLog writes the send log as JSON.
func (d *Dispatcher) SaveLog(path string) error {
	data, err := json.MarshalIndent(d.log, "", "  ")
	if err != nil {
		return eris.Wrap(err, "email: marshal send log")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "email: write send log")
	}
	zap.L().Info("email: send log written", zap.String("path", path), zap.Int("entries", len(d.log)))
	return nil
}
