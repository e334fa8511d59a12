package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

const (
	WebhookIDHeader        = "svix-id"
	WebhookTimestampHeader = "svix-timestamp"
	WebhookSignatureHeader = "svix-signature"

	webhookTolerance = 5 * time.Minute
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMissingHeaders   = errors.New("missing webhook headers")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
)

// WebhookVerifier checks identity-provider webhook deliveries signed with a
// shared "whsec_" secret.
type WebhookVerifier struct {
	wh *svix.Webhook
}

// NewWebhookVerifier decodes secret. The "whsec_" prefix is optional.
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	if secret == "" {
		return nil, errors.New("webhook secret is empty")
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	return &WebhookVerifier{wh: wh}, nil
}

// Verify checks the delivery headers against body. Missing headers and a
// timestamp outside the tolerance are reported before the signature.
func (v *WebhookVerifier) Verify(header http.Header, body []byte) error {
	id := header.Get(WebhookIDHeader)
	timestamp := header.Get(WebhookTimestampHeader)
	if id == "" || timestamp == "" || header.Get(WebhookSignatureHeader) == "" {
		return ErrMissingHeaders
	}

	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	if d := time.Since(time.Unix(seconds, 0)); d > webhookTolerance || d < -webhookTolerance {
		return ErrStaleTimestamp
	}

	if err := v.wh.Verify(body, header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// Sign returns the signature header value a sender would attach for body
func (v *WebhookVerifier) Sign(id string, at time.Time, body []byte) (string, error) {
	return v.wh.Sign(id, at, body)
}
