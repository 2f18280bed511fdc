package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rsaiteja/codegpt/internal/config"
	"github.com/rsaiteja/codegpt/internal/services/auth"
	"github.com/rsaiteja/codegpt/internal/services/otp"
	"github.com/rsaiteja/codegpt/internal/storage"
)

// captureSender keeps the last email body so tests can read the OTP code
type captureSender struct {
	body string
}

func (c *captureSender) Send(to, subject, htmlBody string) error {
	c.body = htmlBody
	return nil
}

// extractCode pulls the 6-digit code out of the email body
func (c *captureSender) extractCode(t *testing.T) string {
	t.Helper()
	body := c.body
	for i := 0; i+otp.CodeLength <= len(body); i++ {
		all := true
		for j := i; j < i+otp.CodeLength; j++ {
			if body[j] < '0' || body[j] > '9' {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		if i+otp.CodeLength < len(body) && body[i+otp.CodeLength] >= '0' && body[i+otp.CodeLength] <= '9' {
			continue
		}
		return body[i : i+otp.CodeLength]
	}
	t.Fatal("No code found in email body")
	return ""
}

func testAuthService(t *testing.T) (*auth.Service, *captureSender) {
	t.Helper()
	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	cfg := &config.Config{
		SecretKey:       "test-secret",
		SessionDuration: time.Hour,
		PendingDuration: 15 * time.Minute,
	}
	sender := &captureSender{}
	svc := auth.NewService(cfg, storage.NewUserRepository(db), storage.NewSessionRepository(db),
		otp.NewService(storage.NewOTPRepository(db), sender))
	return svc, sender
}

func loginTestUser(t *testing.T, svc *auth.Service, sender *captureSender) string {
	t.Helper()
	pendingToken, err := svc.BeginRegistration(auth.SignupInput{
		Username:        "alice",
		Email:           "a@x.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	if _, err := svc.CompleteRegistration(pendingToken, sender.extractCode(t)); err != nil {
		t.Fatalf("CompleteRegistration failed: %v", err)
	}

	result, err := svc.Login(auth.LoginInput{Identifier: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return result.Token
}

func TestRequireAuth_Anonymous(t *testing.T) {
	svc, _ := testAuthService(t)
	mw := NewAuth(svc)

	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run for anonymous request")
	}))

	// API request gets 401
	req := httptest.NewRequest("GET", "/history", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", rec.Code)
	}

	// Browser request gets redirected to login
	req = httptest.NewRequest("GET", "/history", nil)
	req.Header.Set("Accept", "text/html")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("Status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %s, want /login", loc)
	}
}

func TestRequireAuth_ValidSession(t *testing.T) {
	svc, sender := testAuthService(t)
	token := loginTestUser(t, svc, sender)
	mw := NewAuth(svc)

	var gotUsername string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := GetUser(r); user != nil {
			gotUsername = user.Username
		}
	}))

	req := httptest.NewRequest("GET", "/history", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if gotUsername != "alice" {
		t.Errorf("Username = %q, want alice", gotUsername)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	svc, _ := testAuthService(t)
	mw := NewAuth(svc)

	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run for garbage token")
	}))

	req := httptest.NewRequest("GET", "/history", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", rec.Code)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	outer := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "outer")
			next.ServeHTTP(w, r)
		})
	}
	inner := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "inner")
			next.ServeHTTP(w, r)
		})
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), outer, inner)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"outer", "inner", "handler"}
	for i, step := range want {
		if i >= len(order) || order[i] != step {
			t.Fatalf("Order = %v, want %v", order, want)
		}
	}
}

func TestRecover(t *testing.T) {
	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("Expected X-Frame-Options header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected X-Content-Type-Options header")
	}
}
