package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	gotenbergTimeout   = 60 * time.Second
	convertHTMLPath    = "/forms/chromium/convert/html"
	healthPath         = "/health"
	maxErrorBodyBytes  = 4 << 10
	a4WidthInches      = "8.27"
	a4HeightInches     = "11.7"
	certificateMarginV = "0.4"
	certificateMarginH = "0.5"
)

// ErrGotenbergStatus is returned when Gotenberg answers with a non-200 status.
var ErrGotenbergStatus = errors.New("gotenberg returned an error status")

// GotenbergClient converts the certificate HTML page to PDF.
type GotenbergClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewGotenbergClient points at a Gotenberg instance. Basic auth is sent when
// both username and password are set.
func NewGotenbergClient(baseURL, username, password string) *GotenbergClient {
	return &GotenbergClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: gotenbergTimeout},
	}
}

// ConvertOpts configures a conversion.
type ConvertOpts struct {
	MarginTop    string
	MarginBottom string
	MarginLeft   string
	MarginRight  string
	// WaitDelay delays capture (e.g. "1s") so embedded fonts finish loading.
	WaitDelay string
	// Title sets the PDF document title metadata.
	Title string
}

// CertificateOpts returns the single page A4 layout used for certificates.
func CertificateOpts(certificateNumber string) ConvertOpts {
	return ConvertOpts{
		MarginTop:    certificateMarginV,
		MarginBottom: certificateMarginV,
		MarginLeft:   certificateMarginH,
		MarginRight:  certificateMarginH,
		WaitDelay:    "1s",
		Title:        "Land Use Certificate " + certificateNumber,
	}
}

func (o ConvertOpts) fields() map[string]string {
	fields := map[string]string{
		"paperWidth":        a4WidthInches,
		"paperHeight":       a4HeightInches,
		"marginTop":         o.MarginTop,
		"marginBottom":      o.MarginBottom,
		"marginLeft":        o.MarginLeft,
		"marginRight":       o.MarginRight,
		"printBackground":   "true",
		"preferCssPageSize": "false",
		"singlePage":        "true",
	}
	if o.WaitDelay != "" {
		fields["waitDelay"] = o.WaitDelay
		fields["skipNetworkIdleEvent"] = "true"
	}
	if o.Title != "" {
		fields["metadata"] = fmt.Sprintf(`{"Title":%q}`, o.Title)
	}
	return fields
}

// ConvertHTML sends indexHTML as index.html and returns the PDF bytes.
func (g *GotenbergClient) ConvertHTML(ctx context.Context, indexHTML []byte, opts ConvertOpts) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range opts.fields() {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="files"; filename="index.html"`)
	h.Set("Content-Type", "text/html")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create index.html part: %w", err)
	}
	if _, err := part.Write(indexHTML); err != nil {
		return nil, fmt.Errorf("write index.html part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := g.newRequest(ctx, http.MethodPost, convertHTMLPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return g.do(req)
}

// Ping checks that Gotenberg is reachable.
func (g *GotenbergClient) Ping(ctx context.Context) error {
	req, err := g.newRequest(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return err
	}
	_, err = g.do(req)
	return err
}

func (g *GotenbergClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create gotenberg request: %w", err)
	}
	if g.username != "" && g.password != "" {
		req.SetBasicAuth(g.username, g.password)
	}
	return req, nil
}

func (g *GotenbergClient) do(req *http.Request) ([]byte, error) {
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gotenberg %s: %w", req.URL.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("%w: %s %d: %s", ErrGotenbergStatus, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	result, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gotenberg response: %w", err)
	}
	return result, nil
}
