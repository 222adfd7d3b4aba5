package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Webhook delivery headers.
const (
	HeaderSignature   = "X-Webhook-Signature"
	HeaderTimestamp   = "X-Webhook-Timestamp"
	HeaderEvent       = "X-Webhook-Event"
	HeaderWebhookID   = "X-Webhook-ID"
	HeaderContentType = "Content-Type"
)

// ComputeSignature returns the hex HMAC-SHA256 of "{timestamp}.{body}"
// keyed by the registration secret. Sent as "v1=<signature>" so the scheme
// can be rotated later.
func ComputeSignature(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", timestamp)))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader formats the versioned signature header value.
func SignatureHeader(signature string) string {
	return fmt.Sprintf("v1=%s", signature)
}
