package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rsaiteja/codegpt/internal/middleware"
	"github.com/rsaiteja/codegpt/internal/services/auth"
)

// ProfilePage renders the account settings page
func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	data := map[string]interface{}{
		"Title":   "Profile - CodeGPT",
		"User":    user,
		"Error":   r.URL.Query().Get("error"),
		"Message": r.URL.Query().Get("message"),
	}
	h.render(w, "profile.html", data)
}

// ProfileUpdate handles the account settings form. Changing the password
// invalidates all existing sessions, so the user is sent back to login.
func (h *Handler) ProfileUpdate(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/profile?error=Invalid+request")
		return
	}

	input := auth.UpdateProfileInput{
		Username:        strings.TrimSpace(r.FormValue("username")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		CurrentPassword: r.FormValue("current_password"),
		NewPassword:     r.FormValue("new_password"),
	}

	if _, err := h.authService.UpdateProfile(user.ID, input); err != nil {
		h.redirect(w, r, "/profile?error="+url.QueryEscape(profileErrorMessage(err)))
		return
	}

	if input.NewPassword != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     "session",
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		h.redirect(w, r, "/login?message=Password+changed,+please+log+in+again")
		return
	}

	h.redirect(w, r, "/profile?message=Profile+updated")
}

func profileErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Current password is incorrect"
	case errors.Is(err, auth.ErrUsernameTaken):
		return "Username already registered"
	case errors.Is(err, auth.ErrEmailTaken):
		return "Email already registered"
	case errors.Is(err, auth.ErrInvalidInput):
		return "Invalid profile fields"
	default:
		return "Update failed"
	}
}
