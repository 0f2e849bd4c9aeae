// Package signature canonicalizes webhook payloads and computes the
// HMAC-SHA256 signature carried in the X-Hub-Signature-256 header, on both
// the ingest (verification) and delivery (signing) sides of the pipeline.
// Using one Canonicalize implementation for both directions is deliberate:
// the original service re-serialized the payload with the JSON standard
// library's default separators when signing outbound deliveries, while
// verifying inbound requests against a compact, separator-stripped form -
// two different byte strings for what was meant to be the same signed
// content. Sharing this package closes that gap.
package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// HeaderName is the HTTP header carrying the computed signature.
const HeaderName = "X-Hub-Signature-256"

// Prefix precedes the hex digest in the header value.
const Prefix = "sha256="

// Canonicalize strips insignificant whitespace from a JSON payload,
// producing the same compact byte form regardless of how the caller
// formatted it. Object key order is preserved as received; callers that
// need a signature stable across re-encodes should keep the original bytes
// (e.g. via json.RawMessage) rather than round-tripping through a map.
func Canonicalize(payload []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(payload))
	if err := json.Compact(&out, payload); err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	return out.Bytes(), nil
}

// Sign computes the hex-encoded HMAC-SHA256 digest of the canonicalized
// payload under secret.
func Sign(secret string, payload []byte) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Header formats the full X-Hub-Signature-256 header value for payload
// signed with secret.
func Header(secret string, payload []byte) (string, error) {
	digest, err := Sign(secret, payload)
	if err != nil {
		return "", err
	}
	return Prefix + digest, nil
}

// Verify reports whether header carries a valid signature for payload under
// secret, using a constant-time comparison to avoid leaking timing
// information about the expected digest.
func Verify(secret string, payload []byte, header string) (bool, error) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, Prefix) {
		return false, nil
	}
	expected, err := Sign(secret, payload)
	if err != nil {
		return false, err
	}
	got := strings.TrimPrefix(header, Prefix)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1, nil
}
