package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	brevoEndpoint      = "https://api.brevo.com/v3/smtp/email"
	brevoTimeout       = 10 * time.Second
	brevoMaxErrorBytes = 2 << 10
)

// ErrBrevoRejected is returned when Brevo answers with a non-2xx status.
var ErrBrevoRejected = errors.New("brevo rejected message")

// brevoTransport delivers notices through the Brevo transactional API.
type brevoTransport struct {
	apiKey   string
	sender   brevoAddress
	endpoint string
	client   *http.Client
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoAttachment struct {
	Content string `json:"content"` // base64
	Name    string `json:"name"`
}

type brevoPayload struct {
	Sender      brevoAddress      `json:"sender"`
	To          []brevoAddress    `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Tags        []string          `json:"tags,omitempty"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

func newBrevoTransport(apiKey, fromName, fromEmail, endpoint string) *brevoTransport {
	return &brevoTransport{
		apiKey:   apiKey,
		sender:   brevoAddress{Name: fromName, Email: fromEmail},
		endpoint: endpoint,
		client:   &http.Client{Timeout: brevoTimeout},
	}
}

func (b *brevoTransport) payload(m message) brevoPayload {
	p := brevoPayload{
		Sender:      b.sender,
		To:          []brevoAddress{{Email: m.to}},
		Subject:     m.subject,
		HTMLContent: m.html,
	}
	if m.tag != "" {
		p.Tags = []string{m.tag}
	}
	for _, att := range m.attachments {
		p.Attachment = append(p.Attachment, brevoAttachment{
			Content: base64.StdEncoding.EncodeToString(att.Content),
			Name:    att.FileName,
		})
	}
	return p
}

func (b *brevoTransport) deliver(ctx context.Context, m message) error {
	body, err := json.Marshal(b.payload(m))
	if err != nil {
		return fmt.Errorf("encode brevo payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create brevo request: %w", err)
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo %s: %w", m.tag, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, brevoMaxErrorBytes))
		return fmt.Errorf("%w: %s status %d: %s", ErrBrevoRejected, m.tag, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
