package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Headers the local bridge agent signs its event deliveries with.
const (
	HeaderBridgeTimestamp = "X-Bridge-Timestamp"
	HeaderBridgeSignature = "X-Bridge-Signature"
)

// BridgeAuthMiddleware authenticates event deliveries from the local
// hardware bridge agent. The agent is a machine peer, not a user, so it
// signs rather than carries a JWT: HMAC-SHA256 over timestamp + "\n" + body.
type BridgeAuthMiddleware struct {
	Secret  []byte
	MaxSkew time.Duration
}

// NewBridgeAuthMiddleware constructs bridge auth middleware.
func NewBridgeAuthMiddleware(secret []byte, maxSkew time.Duration) *BridgeAuthMiddleware {
	return &BridgeAuthMiddleware{Secret: secret, MaxSkew: maxSkew}
}

// Wrap enforces bridge signature validation and replays the body to next.
func (m *BridgeAuthMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.Secret) == 0 {
			http.Error(w, "bridge auth not configured", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body error", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()

		if err := m.verify(r, body); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (m *BridgeAuthMiddleware) verify(r *http.Request, body []byte) error {
	timestamp := strings.TrimSpace(r.Header.Get(HeaderBridgeTimestamp))
	signature := strings.TrimSpace(r.Header.Get(HeaderBridgeSignature))
	if timestamp == "" || signature == "" {
		return errors.New("missing bridge signature")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.New("invalid bridge timestamp")
	}
	skew := time.Since(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if m.MaxSkew > 0 && skew > m.MaxSkew {
		return errors.New("bridge signature expired")
	}

	expected := computeBridgeSignature(m.Secret, timestamp, body)
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return errors.New("invalid bridge signature")
	}
	return nil
}

// ComputeBridgeSignature signs an event delivery; exported for agent
// implementations and tests.
func ComputeBridgeSignature(secret []byte, timestamp string, body []byte) string {
	return computeBridgeSignature(secret, timestamp, body)
}

func computeBridgeSignature(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("\n"))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
