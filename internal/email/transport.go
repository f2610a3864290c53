package email

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/wneessen/go-mail"
)

// Transport delivers rendered emails. Probe is a lightweight
// connectivity check run before any campaign starts.
type Transport interface {
	Probe(ctx context.Context) error
	Send(ctx context.Context, recipient string, msg Rendered) error
}

// SMTPConfig holds the SMTP transport settings.
type SMTPConfig struct {
	Host       string
	Port       int
	Address    string
	Password   string
	SenderName string
}

type smtpTransport struct {
	cfg    SMTPConfig
	client *mail.Client
}

// NewSMTPTransport builds an SMTP transport with mandatory STARTTLS and
// plain auth, the setup the common providers expect on port 587.
func NewSMTPTransport(cfg SMTPConfig) (Transport, error) {
	if cfg.Host == "" || cfg.Address == "" || cfg.Password == "" {
		return nil, eris.New("email: smtp host, address, and password are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.SenderName == "" {
		cfg.SenderName = cfg.Address
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Address),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, eris.Wrap(err, "email: create smtp client")
	}

	return &smtpTransport{cfg: cfg, client: client}, nil
}

func (t *smtpTransport) Probe(ctx context.Context) error {
	if err := t.client.DialWithContext(ctx); err != nil {
		return eris.Wrap(err, "email: smtp connection test")
	}
	return t.client.Close()
}

func (t *smtpTransport) Send(ctx context.Context, recipient string, msg Rendered) error {
	m := mail.NewMsg()
	if err := m.FromFormat(t.cfg.SenderName, t.cfg.Address); err != nil {
		return eris.Wrap(err, "email: set sender")
	}
	if err := m.To(recipient); err != nil {
		return eris.Wrapf(err, "email: invalid recipient %q", recipient)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	}

	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return eris.Wrapf(err, "email: send to %q", recipient)
	}
	return nil
}
