package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"
)

// Config holds the SMTP connection and the address data baked into every
// message. BaseURL is the public origin used to build links in the bodies.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string
	AppName  string
}

// SMTP delivers account emails over an authenticated SMTP connection.
type SMTP struct {
	cfg    Config
	client *mail.Client
}

func NewSMTP(cfg Config) (*SMTP, error) {
	if cfg.AppName == "" {
		cfg.AppName = "Identity"
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: client setup: %w", err)
	}

	return &SMTP{cfg: cfg, client: client}, nil
}

func (s *SMTP) SendActivationEmail(ctx context.Context, email, code string) error {
	body, err := renderBody(activationTemplate, map[string]string{
		"AppName": s.cfg.AppName,
		"Link":    fmt.Sprintf("%s/auth/activate/%s", s.cfg.BaseURL, code),
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Activate your %s account", s.cfg.AppName)
	return s.send(ctx, email, subject, body)
}

func (s *SMTP) SendResetEmail(ctx context.Context, email, token string) error {
	body, err := renderBody(resetTemplate, map[string]string{
		"AppName": s.cfg.AppName,
		"Link":    fmt.Sprintf("%s/auth/password-reset/%s", s.cfg.BaseURL, token),
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Reset your %s password", s.cfg.AppName)
	return s.send(ctx, email, subject, body)
}

func (s *SMTP) send(ctx context.Context, rcpt, subject, body string) error {
	msg := mail.NewMsg()

	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("mailer: from address: %w", err)
	}
	if err := msg.To(rcpt); err != nil {
		return fmt.Errorf("mailer: rcpt address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}

	return nil
}

func renderBody(tpl *template.Template, data map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("mailer: render body: %w", err)
	}
	return buf.String(), nil
}

var activationTemplate = template.Must(template.New("activation").Parse(`<html>
<body>
	<p>Welcome to {{.AppName}}.</p>
	<p>Confirm your email address to activate the account:</p>
	<p><a href="{{.Link}}">{{.Link}}</a></p>
	<p>If you did not create this account you can ignore this message.</p>
</body>
</html>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<html>
<body>
	<p>A password reset was requested for your {{.AppName}} account.</p>
	<p>Choose a new password here:</p>
	<p><a href="{{.Link}}">{{.Link}}</a></p>
	<p>If you did not request this, you can ignore this message.</p>
</body>
</html>`))
