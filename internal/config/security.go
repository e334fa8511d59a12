package config

// SecurityConfig holds the secrets shared with the identity provider
type SecurityConfig struct {
	JWTSecret     string `json:"jwtSecret"`     // HS256 key for session tokens
	JWTIssuer     string `json:"jwtIssuer"`     // expected "iss"; empty accepts any
	JWTExpiration string `json:"jwtExpiration"` // lifetime of tokens minted by the CLI (e.g. "24h")
	WebhookSecret string `json:"webhookSecret"` // "whsec_..." signing secret for user webhooks
}

// DefaultSecurityConfig returns the default security configuration
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		JWTExpiration: "24h",
	}
}

// HasWebhookSecret reports whether signed webhooks can be verified.
func (sc *SecurityConfig) HasWebhookSecret() bool {
	return sc.WebhookSecret != ""
}
