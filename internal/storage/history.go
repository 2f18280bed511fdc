package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rsaiteja/codegpt/internal/models"
)

// HistoryRepository provides analysis history data access. History is
// append-only: there is no update or delete path.
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create inserts a new history entry
func (r *HistoryRepository) Create(entry *models.HistoryEntry) error {
	query := `
		INSERT INTO chat_history (id, user_id, code_input, features_used, ai_output, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		entry.ID.String(),
		entry.UserID.String(),
		entry.CodeInput,
		models.JoinFeatures(entry.FeaturesUsed),
		entry.AIOutput,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create history entry: %w", err)
	}
	return nil
}

// ListByUser returns a user's history, newest first
func (r *HistoryRepository) ListByUser(userID uuid.UUID, limit int) ([]*models.HistoryEntry, error) {
	query := `
		SELECT id, user_id, code_input, features_used, ai_output, created_at
		FROM chat_history WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?
	`
	rows, err := r.db.Query(query, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		var id, uid, features string

		if err := rows.Scan(&id, &uid, &entry.CodeInput, &features, &entry.AIOutput, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		entry.ID, _ = uuid.Parse(id)
		entry.UserID, _ = uuid.Parse(uid)
		entry.FeaturesUsed = models.SplitFeatures(features)
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// CountByUser returns the total number of analyses for a user
func (r *HistoryRepository) CountByUser(userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM chat_history WHERE user_id = ?", userID.String()).Scan(&count)
	return count, err
}

// CountByUserSince returns the number of analyses created after a point in time
func (r *HistoryRepository) CountByUserSince(userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM chat_history WHERE user_id = ? AND created_at > ?",
		userID.String(), since,
	).Scan(&count)
	return count, err
}

// TopFeature returns the most frequently used feature label for a user.
// Returns an empty string when the user has no history.
func (r *HistoryRepository) TopFeature(userID uuid.UUID) (string, error) {
	query := `
		SELECT features_used, COUNT(*) as count FROM chat_history
		WHERE user_id = ? AND features_used != ''
		GROUP BY features_used ORDER BY count DESC LIMIT 1
	`
	var features string
	var count int
	err := r.db.QueryRow(query, userID.String()).Scan(&features, &count)
	if err == sql.ErrNoRows {
		// The user simply has no history yet
		return "", nil
	}
	if err != nil {
		return "", err
	}

	// A row stores the full comma-joined selection; report its first label
	if list := models.SplitFeatures(features); len(list) > 0 {
		return list[0], nil
	}
	return "", nil
}
