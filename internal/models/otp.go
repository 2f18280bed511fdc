package models

import (
	"time"

	"github.com/google/uuid"
)

// OTPTTL is how long a challenge stays valid after issuance.
const OTPTTL = 10 * time.Minute

// OTPChallenge is a one-time code tied to an email address. Rows are
// append-only: a challenge is never deleted, only marked used. Multiple
// live challenges may exist for the same email (repeated signups) and
// each is independently consumable.
type OTPChallenge struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"-"` // Never serialize
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}

// NewOTPChallenge creates an unused challenge expiring OTPTTL from now.
func NewOTPChallenge(email, code string) *OTPChallenge {
	return &OTPChallenge{
		ID:        uuid.New(),
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().UTC().Add(OTPTTL),
		Used:      false,
	}
}

// IsExpired checks if the challenge is past its expiry
func (c *OTPChallenge) IsExpired() bool {
	return !time.Now().UTC().Before(c.ExpiresAt)
}
