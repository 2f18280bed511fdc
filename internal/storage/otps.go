package storage

import (
	"fmt"
	"time"

	"github.com/rsaiteja/codegpt/internal/models"
)

// OTPRepository provides one-time-code data access. The otp_codes table is
// append-only: rows are inserted on issuance and flipped to used on
// consumption, never deleted.
type OTPRepository struct {
	db *DB
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create inserts a new challenge
func (r *OTPRepository) Create(challenge *models.OTPChallenge) error {
	query := `
		INSERT INTO otp_codes (id, email, otp_code, expires_at, used)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		challenge.ID.String(),
		challenge.Email,
		challenge.Code,
		challenge.ExpiresAt,
		challenge.Used,
	)
	if err != nil {
		return fmt.Errorf("failed to create otp challenge: %w", err)
	}
	return nil
}

// Consume atomically marks a matching challenge as used. A challenge
// matches when the email and code are equal, it is not yet used, and it
// has not expired. The used flag is flipped in the same statement that
// checks it, so two concurrent attempts against the same row cannot both
// succeed. When several live challenges match, one of them is consumed
// and the rest stay usable until their own expiry.
func (r *OTPRepository) Consume(email, code string) (bool, error) {
	query := `
		UPDATE otp_codes SET used = 1
		WHERE id = (
			SELECT id FROM otp_codes
			WHERE email = ? AND otp_code = ? AND used = 0 AND expires_at > ?
			LIMIT 1
		) AND used = 0
	`
	res, err := r.db.Exec(query, email, code, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to consume otp challenge: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CountLive returns the number of unused, unexpired challenges for an email
func (r *OTPRepository) CountLive(email string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM otp_codes WHERE email = ? AND used = 0 AND expires_at > ?",
		email, time.Now().UTC(),
	).Scan(&count)
	return count, err
}
