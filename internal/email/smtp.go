package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const (
	smtpTimeout                   = 15 * time.Second
	headerNoticeTag gomail.Header = "X-Notice"
)

type smtpConfig struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// smtpTransport delivers notices over a direct SMTP connection via go-mail.
type smtpTransport struct {
	cfg smtpConfig
}

func newSMTPTransport(cfg smtpConfig) *smtpTransport {
	return &smtpTransport{cfg: cfg}
}

func (s *smtpTransport) buildMessage(m message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.fromName, s.cfg.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(m.subject)
	msg.SetBodyString(gomail.TypeTextHTML, m.html)
	if m.tag != "" {
		msg.SetGenHeader(headerNoticeTag, m.tag)
	}

	for _, att := range m.attachments {
		var opts []gomail.FileOption
		if att.MIMEType != "" {
			opts = append(opts, gomail.WithFileContentType(gomail.ContentType(att.MIMEType)))
		}
		if err := msg.AttachReader(att.FileName, bytes.NewReader(att.Content), opts...); err != nil {
			return nil, fmt.Errorf("smtp attach %s: %w", att.FileName, err)
		}
	}
	return msg, nil
}

func (s *smtpTransport) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(smtpTimeout),
		gomail.WithDialContextFunc(func(ctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, "tcp4", addr)
		}),
	}
	// Local relays usually accept unauthenticated mail.
	if s.cfg.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.username),
			gomail.WithPassword(s.cfg.password),
		)
	}
	return gomail.NewClient(s.cfg.host, opts...)
}

func (s *smtpTransport) deliver(ctx context.Context, m message) error {
	msg, err := s.buildMessage(m)
	if err != nil {
		return err
	}
	client, err := s.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send %s: %w", m.tag, err)
	}
	return nil
}
