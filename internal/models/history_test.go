package models

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestJoinSplitFeatures(t *testing.T) {
	tests := []struct {
		name     string
		features []string
		encoded  string
	}{
		{"multiple", []string{"Find & Fix Bugs", "Explain Code"}, "Find & Fix Bugs,Explain Code"},
		{"single", []string{"Refactor Code"}, "Refactor Code"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JoinFeatures(tt.features)
			if got != tt.encoded {
				t.Errorf("JoinFeatures() = %q, want %q", got, tt.encoded)
			}
			back := SplitFeatures(got)
			if !reflect.DeepEqual(back, tt.features) {
				t.Errorf("SplitFeatures(%q) = %v, want %v", got, back, tt.features)
			}
		})
	}
}

func TestNewHistoryEntry(t *testing.T) {
	userID := uuid.New()
	e := NewHistoryEntry(userID, "print('hi')", []string{"Explain Code"}, "It prints hi.")

	if e.UserID != userID {
		t.Errorf("UserID = %s, want %s", e.UserID, userID)
	}
	if e.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
	if len(e.FeaturesUsed) != 1 || e.FeaturesUsed[0] != "Explain Code" {
		t.Errorf("FeaturesUsed = %v", e.FeaturesUsed)
	}
}
