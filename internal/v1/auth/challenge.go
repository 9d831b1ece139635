// Package auth implements the challenge/response handshake. The server never
// sees a private key: it issues a random nonce and checks that the client
// returns BLAKE2b-256(nonce || pubkey), compared in constant time.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ChallengeTTL bounds how long an issued challenge may be answered.
const ChallengeTTL = 30 * time.Second

// challengeBytes is the nonce size before base64 encoding.
const challengeBytes = 32

// Session is one in-flight handshake: the claimed username and the challenge
// it must answer.
type Session struct {
	Username  string
	Challenge string
	IssuedAt  time.Time
}

// Expired reports whether the challenge can no longer be answered.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.IssuedAt) > ChallengeTTL
}

// NewChallenge returns a fresh base64-encoded random nonce. It fails only if
// the system entropy source does; there is no weaker fallback.
func NewChallenge() (string, error) {
	buf := make([]byte, challengeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading challenge entropy: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Digest computes the expected challenge response.
func Digest(challenge, pubKey []byte) []byte {
	sum := blake2b.Sum256(append(append([]byte{}, challenge...), pubKey...))
	return sum[:]
}

// Verify checks a client's response against the expected digest. All inputs
// are base64; any decode failure or mismatch is the same false, so timing
// reveals nothing about which byte diverged.
func Verify(pubKeyB64, challengeB64, signatureB64 string) bool {
	pubKey, err := base64.StdEncoding.DecodeString(pubKeyB64)
	if err != nil {
		return false
	}
	challenge, err := base64.StdEncoding.DecodeString(challengeB64)
	if err != nil {
		return false
	}
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}

	expected := Digest(challenge, pubKey)
	return subtle.ConstantTimeCompare(expected, signature) == 1
}
