package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func newTestVerifier(t *testing.T) *WebhookVerifier {
	t.Helper()
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("webhook-test-secret"))
	v, err := NewWebhookVerifier(secret)
	if err != nil {
		t.Fatalf("NewWebhookVerifier() error = %v", err)
	}
	return v
}

func signedHeaders(t *testing.T, v *WebhookVerifier, id string, at time.Time, body []byte) http.Header {
	t.Helper()
	sig, err := v.Sign(id, at, body)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	h := http.Header{}
	h.Set(WebhookIDHeader, id)
	h.Set(WebhookTimestampHeader, strconv.FormatInt(at.Unix(), 10))
	h.Set(WebhookSignatureHeader, sig)
	return h
}

func TestWebhookVerifier_Verify(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(t)
	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)

	tests := []struct {
		name    string
		header  func() http.Header
		body    []byte
		wantErr error
	}{
		{
			name:   "Valid signature",
			header: func() http.Header { return signedHeaders(t, v, "msg_1", now, body) },
			body:   body,
		},
		{
			name: "Valid among several signatures",
			header: func() http.Header {
				h := signedHeaders(t, v, "msg_1", now, body)
				h.Set(WebhookSignatureHeader, "v1,AAAA "+h.Get(WebhookSignatureHeader))
				return h
			},
			body: body,
		},
		{
			name:    "Tampered body",
			header:  func() http.Header { return signedHeaders(t, v, "msg_1", now, body) },
			body:    []byte(`{"type":"user.deleted"}`),
			wantErr: ErrInvalidSignature,
		},
		{
			name: "Wrong id",
			header: func() http.Header {
				h := signedHeaders(t, v, "msg_1", now, body)
				h.Set(WebhookIDHeader, "msg_2")
				return h
			},
			body:    body,
			wantErr: ErrInvalidSignature,
		},
		{
			name:    "Stale timestamp",
			header:  func() http.Header { return signedHeaders(t, v, "msg_1", now.Add(-6*time.Minute), body) },
			body:    body,
			wantErr: ErrStaleTimestamp,
		},
		{
			name:    "Future timestamp",
			header:  func() http.Header { return signedHeaders(t, v, "msg_1", now.Add(6*time.Minute), body) },
			body:    body,
			wantErr: ErrStaleTimestamp,
		},
		{
			name:    "Missing headers",
			header:  func() http.Header { return http.Header{} },
			body:    body,
			wantErr: ErrMissingHeaders,
		},
		{
			name: "Unknown version",
			header: func() http.Header {
				h := signedHeaders(t, v, "msg_1", now, body)
				sig := h.Get(WebhookSignatureHeader)
				h.Set(WebhookSignatureHeader, "v2"+sig[2:])
				return h
			},
			body:    body,
			wantErr: ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.header(), tt.body)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Verify() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewWebhookVerifier(t *testing.T) {
	if _, err := NewWebhookVerifier(""); err == nil {
		t.Errorf("Expected error for empty secret")
	}
	if _, err := NewWebhookVerifier("whsec_!!not-base64!!"); err == nil {
		t.Errorf("Expected error for malformed secret")
	}
	if _, err := NewWebhookVerifier(base64.StdEncoding.EncodeToString([]byte("k"))); err != nil {
		t.Errorf("Unprefixed secret should be accepted, got %v", err)
	}
}
