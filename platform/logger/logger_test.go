package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestWithContextAddsRequestAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-9")
	ctx = context.WithValue(ctx, UserIDKey, "42")
	log.WithContext(ctx).StatusChanged("payment", 7, "pending", "verified", "Admin #1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	for key, want := range map[string]any{
		"msg":        "status_changed",
		"request_id": "req-9",
		"user_id":    "42",
		"new_status": "verified",
		"entity_id":  float64(7),
	} {
		if entry[key] != want {
			t.Errorf("%s: expected %v, got %v", key, want, entry[key])
		}
	}
}

func TestWithContextWithoutValuesReturnsSameLogger(t *testing.T) {
	log := Discard()
	if log.WithContext(context.Background()) != log {
		t.Fatal("expected the same logger when ctx carries nothing")
	}
}

func TestDevelopmentUsesTextHandler(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("development", &buf).SideEffectFailed("notify_payment_verified", errors.New("smtp down"), "paymentId", int64(7))

	out := buf.String()
	if !strings.Contains(out, "msg=side_effect_failed") || !strings.Contains(out, "paymentId=7") {
		t.Fatalf("unexpected text output %q", out)
	}
}
