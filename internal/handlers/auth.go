package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rsaiteja/codegpt/internal/middleware"
	"github.com/rsaiteja/codegpt/internal/services/auth"
	"github.com/rsaiteja/codegpt/internal/services/otp"
)

const pendingCookie = "pending_registration"

// LoginPage renders the login page
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if user := middleware.GetUser(r); user != nil {
		h.redirect(w, r, "/")
		return
	}

	data := map[string]interface{}{
		"Title":   "Login - CodeGPT",
		"Error":   r.URL.Query().Get("error"),
		"Message": r.URL.Query().Get("message"),
	}
	h.render(w, "login.html", data)
}

// Login handles login form submission
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/login?error=Invalid+request")
		return
	}

	identifier := strings.TrimSpace(r.FormValue("identifier"))
	password := r.FormValue("password")

	if identifier == "" || password == "" {
		h.redirect(w, r, "/login?error=Username+and+password+required")
		return
	}

	result, err := h.authService.Login(auth.LoginInput{
		Identifier: identifier,
		Password:   password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrNotVerified) {
			h.redirect(w, r, "/login?error=Please+verify+your+email+before+logging+in")
			return
		}
		h.redirect(w, r, "/login?error=Invalid+username%2Femail+or+password")
		return
	}

	h.setSessionCookie(w, result.Token, result.Expires)
	h.redirect(w, r, "/")
}

// SignupPage renders the registration page
func (h *Handler) SignupPage(w http.ResponseWriter, r *http.Request) {
	if user := middleware.GetUser(r); user != nil {
		h.redirect(w, r, "/")
		return
	}

	data := map[string]interface{}{
		"Title": "Sign Up - CodeGPT",
		"Error": r.URL.Query().Get("error"),
	}
	h.render(w, "signup.html", data)
}

// Signup handles registration form submission. On success the user holds a
// short-lived pending-registration cookie and is sent to the verify page;
// no account exists yet.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/signup?error=Invalid+request")
		return
	}

	input := auth.SignupInput{
		Username:        strings.TrimSpace(r.FormValue("username")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}

	pendingToken, err := h.authService.BeginRegistration(input)
	if err != nil {
		h.redirect(w, r, "/signup?error="+url.QueryEscape(signupErrorMessage(err)))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     pendingCookie,
		Value:    pendingToken,
		Path:     "/",
		Expires:  time.Now().Add(h.cfg.PendingDuration),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	h.redirect(w, r, "/verify?email="+url.QueryEscape(input.Email))
}

func signupErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		return "Username already registered"
	case errors.Is(err, auth.ErrEmailTaken):
		return "Email already registered"
	case errors.Is(err, auth.ErrPasswordMismatch):
		return "Passwords do not match"
	case errors.Is(err, auth.ErrInvalidInput):
		return "All fields are required and password must be at least 6 characters"
	case errors.Is(err, otp.ErrDelivery):
		return "Could not send verification email, please try again"
	default:
		return "Registration failed"
	}
}

// VerifyPage renders the OTP entry page
func (h *Handler) VerifyPage(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title": "Verify Email - CodeGPT",
		"Email": r.URL.Query().Get("email"),
		"Error": r.URL.Query().Get("error"),
	}
	h.render(w, "verify.html", data)
}

// Verify handles OTP submission and completes registration
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/verify?error=Invalid+request")
		return
	}

	cookie, err := r.Cookie(pendingCookie)
	if err != nil {
		h.redirect(w, r, "/signup?error=Registration+expired,+please+sign+up+again")
		return
	}

	code := strings.TrimSpace(r.FormValue("code"))
	if _, err := h.authService.CompleteRegistration(cookie.Value, code); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrSessionExpired) {
			h.redirect(w, r, "/signup?error=Registration+expired,+please+sign+up+again")
			return
		}
		h.redirect(w, r, "/verify?error=Invalid+or+expired+code")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     pendingCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})

	h.redirect(w, r, "/login?message=Email+verified,+please+log+in")
}

// Logout handles user logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user != nil {
		h.authService.Logout(user.ID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})

	h.redirect(w, r, "/login")
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
