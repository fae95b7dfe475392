package storage

import (
	"fmt"
	"mime"
	"slices"
	"strings"
)

const defaultMaxBytes = 10 << 20

// Policy limits what a bucket accepts.
type Policy struct {
	AllowedTypes []string
	// MaxBytes of zero falls back to 10 MiB.
	MaxBytes int64
}

// ReceiptPolicy accepts scanned or photographed payment receipts.
func ReceiptPolicy(maxBytes int64) Policy {
	return Policy{
		AllowedTypes: []string{"image/jpeg", "image/png", "image/webp", "application/pdf"},
		MaxBytes:     maxBytes,
	}
}

// CertificatePolicy accepts rendered certificates only.
func CertificatePolicy(maxBytes int64) Policy {
	return Policy{AllowedTypes: []string{"application/pdf"}, MaxBytes: maxBytes}
}

// Check validates an upload against the policy.
func (p Policy) Check(contentType string, size int64) error {
	normalized := normalizeContentType(contentType)
	if !slices.Contains(p.AllowedTypes, normalized) {
		return fmt.Errorf("%w: %q", ErrContentTypeNotAllowed, contentType)
	}

	limit := p.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	if size <= 0 {
		return fmt.Errorf("%w: file is empty", ErrFileSize)
	}
	if size > limit {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileSize, size, limit)
	}
	return nil
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.Split(contentType, ";")[0]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
