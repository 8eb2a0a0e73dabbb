package service

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Clock supplies "now" for default appointment dates, message timestamps
// and reschedule checks.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// CredentialVerifier hashes and checks secrets. Implementations must never
// store or compare plaintext.
type CredentialVerifier interface {
	Hash(secret string) ([]byte, error)
	Verify(hash []byte, secret string) bool
}

// BcryptVerifier is the default CredentialVerifier.
type BcryptVerifier struct {
	Cost int // 0 means bcrypt.DefaultCost
}

func (v BcryptVerifier) Hash(secret string) ([]byte, error) {
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash secret: %w", err)
	}
	return hash, nil
}

func (v BcryptVerifier) Verify(hash []byte, secret string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(secret)) == nil
}
