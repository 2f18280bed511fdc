package handlers

import (
	"net/http"
	"time"

	"github.com/rsaiteja/codegpt/internal/middleware"
)

const historyPageLimit = 50

// HistoryPage renders the user's analysis history with summary stats
func (h *Handler) HistoryPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	entries, err := h.historyRepo.ListByUser(user.ID, historyPageLimit)
	if err != nil {
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	total, err := h.historyRepo.CountByUser(user.ID)
	if err != nil {
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	weekAgo := time.Now().UTC().Add(-7 * 24 * time.Hour)
	thisWeek, err := h.historyRepo.CountByUserSince(user.ID, weekAgo)
	if err != nil {
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	topFeature, err := h.historyRepo.TopFeature(user.ID)
	if err != nil {
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"Title":      "History - CodeGPT",
		"User":       user,
		"Entries":    entries,
		"Total":      total,
		"ThisWeek":   thisWeek,
		"TopFeature": topFeature,
	}
	h.render(w, "history.html", data)
}
