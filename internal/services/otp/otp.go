// Package otp implements the one-time-password workflow that gates
// account registration.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/rsaiteja/codegpt/internal/models"
	"github.com/rsaiteja/codegpt/internal/services/mailer"
	"github.com/rsaiteja/codegpt/internal/storage"
)

// ErrDelivery reports a failed email dispatch. When delivery fails no
// challenge is persisted, so the registration flow halts cleanly.
var ErrDelivery = errors.New("failed to deliver verification code")

// CodeLength is the number of digits in a verification code
const CodeLength = 6

// Service issues and verifies one-time codes
type Service struct {
	otpRepo *storage.OTPRepository
	sender  mailer.Sender
}

// NewService creates a new OTP service
func NewService(otpRepo *storage.OTPRepository, sender mailer.Sender) *Service {
	return &Service{
		otpRepo: otpRepo,
		sender:  sender,
	}
}

// Issue generates a fresh code for the email, dispatches it, and persists
// the challenge. The email is sent before the challenge is stored: a
// delivery failure aborts issuance and leaves no usable challenge behind.
func (s *Service) Issue(email string) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	if err := s.sender.Send(email, mailer.OTPSubject, mailer.OTPBody(code)); err != nil {
		slog.Warn("OTP delivery failed", "email", email, "error", err)
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	challenge := models.NewOTPChallenge(email, code)
	if err := s.otpRepo.Create(challenge); err != nil {
		return "", fmt.Errorf("failed to persist challenge: %w", err)
	}

	slog.Info("OTP issued", "email", email, "expires_at", challenge.ExpiresAt)
	return code, nil
}

// Verify consumes a live challenge matching the email and code. It returns
// false for a wrong code, an expired challenge, an already-used challenge,
// or no challenge at all; callers must present those uniformly. When
// several live challenges exist for the email, any one of them matches and
// only that one is consumed.
func (s *Service) Verify(email, submittedCode string) (bool, error) {
	if len(submittedCode) != CodeLength {
		return false, nil
	}

	ok, err := s.otpRepo.Consume(email, submittedCode)
	if err != nil {
		return false, fmt.Errorf("failed to verify code: %w", err)
	}
	if ok {
		slog.Info("OTP verified", "email", email)
	}
	return ok, nil
}

// GenerateCode draws a uniformly random 6-digit numeric code. Leading
// zeros are permitted: the draw is over [0, 10^6).
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}
