package redesign

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"roomworks/server/internal/domain"
)

const tokenBytes = 32

// mintToken creates the opaque capability granting access to one result.
// 32 random bytes in URL-safe base64; unguessable by construction.
func mintToken(requestID string, now time.Time, ttl time.Duration) (*domain.AccessToken, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	return &domain.AccessToken{
		Token:     base64.RawURLEncoding.EncodeToString(buf),
		RequestID: requestID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
