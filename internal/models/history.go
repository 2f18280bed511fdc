package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one AI analysis request/response pair. Entries are
// immutable after creation and only exist for authenticated users.
type HistoryEntry struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	CodeInput    string    `json:"code_input"`
	FeaturesUsed []string  `json:"features_used"`
	AIOutput     string    `json:"ai_output"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewHistoryEntry creates a history entry with generated ID and timestamp
func NewHistoryEntry(userID uuid.UUID, codeInput string, features []string, aiOutput string) *HistoryEntry {
	return &HistoryEntry{
		ID:           uuid.New(),
		UserID:       userID,
		CodeInput:    codeInput,
		FeaturesUsed: features,
		AIOutput:     aiOutput,
		CreatedAt:    time.Now().UTC(),
	}
}

// JoinFeatures encodes the ordered feature labels for storage
func JoinFeatures(features []string) string {
	return strings.Join(features, ",")
}

// SplitFeatures decodes a stored feature list
func SplitFeatures(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
