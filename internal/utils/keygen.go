package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateAPIKey returns prefix followed by 64 random hex characters,
// e.g. anet_live_a1b2c3...
func GenerateAPIKey(prefix string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b)), nil
}

// GenerateLiveKey generates a live API key.
func GenerateLiveKey() (string, error) {
	return GenerateAPIKey("anet_live")
}

// GenerateSandboxKey generates a sandbox API key. Requests made with it are
// routed to the Authorize.Net sandbox.
func GenerateSandboxKey() (string, error) {
	return GenerateAPIKey("anet_sandbox")
}

// GenerateWebhookSecret generates the HMAC secret for authorization callbacks.
func GenerateWebhookSecret() (string, error) {
	return GenerateAPIKey("anet_secret")
}
