package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/rsaiteja/codegpt/internal/config"
	"github.com/rsaiteja/codegpt/internal/models"
	"github.com/rsaiteja/codegpt/internal/services/otp"
	"github.com/rsaiteja/codegpt/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// fakeSender captures issued codes instead of dialing SMTP
type fakeSender struct {
	lastTo   string
	lastBody string
	fail     bool
}

func (f *fakeSender) Send(to, subject, htmlBody string) error {
	if f.fail {
		return errors.New("smtp unreachable")
	}
	f.lastTo = to
	f.lastBody = htmlBody
	return nil
}

type fixture struct {
	svc      *Service
	users    *storage.UserRepository
	sessions *storage.SessionRepository
	otps     *storage.OTPRepository
	sender   *fakeSender
}

func newFixture(t *testing.T) *fixture {
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

	sender := &fakeSender{}
	users := storage.NewUserRepository(db)
	sessions := storage.NewSessionRepository(db)
	otps := storage.NewOTPRepository(db)
	otpSvc := otp.NewService(otps, sender)

	return &fixture{
		svc:      NewService(cfg, users, sessions, otpSvc),
		users:    users,
		sessions: sessions,
		otps:     otps,
		sender:   sender,
	}
}

func validSignup() SignupInput {
	return SignupInput{
		Username:        "alice",
		Email:           "a@x.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

// extractCode pulls the 6-digit code out of the captured email body
func extractCode(t *testing.T, body string) string {
	t.Helper()
	for i := 0; i+otp.CodeLength <= len(body); i++ {
		all := true
		for j := i; j < i+otp.CodeLength; j++ {
			if body[j] < '0' || body[j] > '9' {
				all = false
				break
			}
		}
		if all {
			// Reject runs longer than the code length
			if i+otp.CodeLength < len(body) && body[i+otp.CodeLength] >= '0' && body[i+otp.CodeLength] <= '9' {
				continue
			}
			return body[i : i+otp.CodeLength]
		}
	}
	t.Fatal("No code found in email body")
	return ""
}

func TestBeginRegistration_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		mutate  func(*SignupInput)
		wantErr error
	}{
		{"missing username", func(in *SignupInput) { in.Username = "" }, ErrInvalidInput},
		{"missing email", func(in *SignupInput) { in.Email = "" }, ErrInvalidInput},
		{"bad email", func(in *SignupInput) { in.Email = "not-an-email" }, ErrInvalidInput},
		{"short password", func(in *SignupInput) { in.Password = "five!"; in.ConfirmPassword = "five!" }, ErrInvalidInput},
		{"mismatched confirmation", func(in *SignupInput) { in.ConfirmPassword = "other1" }, ErrPasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validSignup()
			tt.mutate(&in)
			_, err := f.svc.BeginRegistration(in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("BeginRegistration error = %v, want %v", err, tt.wantErr)
			}

			// Rejected signups issue no OTP
			live, _ := f.otps.CountLive(in.Email)
			if live != 0 {
				t.Errorf("Expected no live challenges, got %d", live)
			}
		})
	}
}

func TestRegistration_FullFlow(t *testing.T) {
	f := newFixture(t)

	pendingToken, err := f.svc.BeginRegistration(validSignup())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}

	// No account row exists until verification succeeds
	user, _ := f.users.GetByIdentifier("alice")
	if user != nil {
		t.Fatal("No account should exist before verification")
	}

	code := extractCode(t, f.sender.lastBody)

	// Wrong code first: uniform failure, no account
	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}
	_, err = f.svc.CompleteRegistration(pendingToken, wrong)
	if !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("CompleteRegistration error = %v, want ErrInvalidOTP", err)
	}

	// Correct code creates the verified account
	user, err = f.svc.CompleteRegistration(pendingToken, code)
	if err != nil {
		t.Fatalf("CompleteRegistration failed: %v", err)
	}
	if user.Username != "alice" || !user.Verified {
		t.Errorf("Created user = %+v, want verified alice", user)
	}

	stored, _ := f.users.GetByIdentifier("a@x.com")
	if stored == nil || !stored.Verified {
		t.Fatal("Verified account should be persisted")
	}

	// Replaying the consumed code fails
	_, err = f.svc.CompleteRegistration(pendingToken, code)
	if !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("Replay error = %v, want ErrInvalidOTP", err)
	}
}

func TestBeginRegistration_Conflicts(t *testing.T) {
	f := newFixture(t)

	pendingToken, err := f.svc.BeginRegistration(validSignup())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	code := extractCode(t, f.sender.lastBody)
	if _, err := f.svc.CompleteRegistration(pendingToken, code); err != nil {
		t.Fatalf("CompleteRegistration failed: %v", err)
	}

	in := validSignup()
	in.Email = "other@x.com"
	if _, err := f.svc.BeginRegistration(in); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Duplicate username error = %v, want ErrUsernameTaken", err)
	}

	in = validSignup()
	in.Username = "bob"
	if _, err := f.svc.BeginRegistration(in); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Duplicate email error = %v, want ErrEmailTaken", err)
	}
}

func TestBeginRegistration_DeliveryFailure(t *testing.T) {
	f := newFixture(t)
	f.sender.fail = true

	_, err := f.svc.BeginRegistration(validSignup())
	if !errors.Is(err, otp.ErrDelivery) {
		t.Fatalf("BeginRegistration error = %v, want ErrDelivery", err)
	}

	live, _ := f.otps.CountLive("a@x.com")
	if live != 0 {
		t.Errorf("Expected no live challenges after delivery failure, got %d", live)
	}
}

func registerUser(t *testing.T, f *fixture) {
	t.Helper()
	pendingToken, err := f.svc.BeginRegistration(validSignup())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	code := extractCode(t, f.sender.lastBody)
	if _, err := f.svc.CompleteRegistration(pendingToken, code); err != nil {
		t.Fatalf("CompleteRegistration failed: %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	registerUser(t, f)

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{"by username", "alice", "secret1", nil},
		{"by email", "a@x.com", "secret1", nil},
		{"wrong password", "alice", "wrong66", ErrInvalidCredentials},
		{"unknown identifier", "nobody", "secret1", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.svc.Login(LoginInput{Identifier: tt.identifier, Password: tt.password})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				if result.Token == "" {
					t.Error("Expected session token")
				}
				user, err := f.svc.ValidateToken(result.Token)
				if err != nil || user == nil || user.Username != "alice" {
					t.Errorf("ValidateToken = %v, %v", user, err)
				}
			}
		})
	}
}

func TestLogin_FailuresIndistinguishable(t *testing.T) {
	f := newFixture(t)
	registerUser(t, f)

	_, errUnknown := f.svc.Login(LoginInput{Identifier: "nobody", Password: "secret1"})
	_, errWrongPwd := f.svc.Login(LoginInput{Identifier: "alice", Password: "wrong66"})

	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrongPwd, ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials for both, got %v and %v", errUnknown, errWrongPwd)
	}
	if errUnknown.Error() != errWrongPwd.Error() {
		t.Error("Unknown-user and wrong-password failures must be indistinguishable")
	}
}

func TestLogin_Unverified(t *testing.T) {
	f := newFixture(t)

	// Force an unverified row into the store to exercise the gate; the
	// normal flow never persists one.
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	u := models.NewUser("alice", "a@x.com", string(hash))
	u.Verified = false
	if err := f.users.Create(u); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = f.svc.Login(LoginInput{Identifier: "alice", Password: "secret1"})
	if !errors.Is(err, ErrNotVerified) {
		t.Errorf("Login error = %v, want ErrNotVerified", err)
	}
}

func TestValidateToken_RejectsPendingToken(t *testing.T) {
	f := newFixture(t)

	pendingToken, err := f.svc.BeginRegistration(validSignup())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}

	// A pending-registration token must not authenticate a session
	if _, err := f.svc.ValidateToken(pendingToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken(pending) error = %v, want ErrInvalidToken", err)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	registerUser(t, f)

	result, err := f.svc.Login(LoginInput{Identifier: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := f.svc.Logout(result.User.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	session, _ := f.sessions.GetByToken(result.Token)
	if session != nil {
		t.Error("Sessions should be deleted on logout")
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	registerUser(t, f)

	user, _ := f.users.GetByIdentifier("alice")

	// Wrong current password is rejected
	_, err := f.svc.UpdateProfile(user.ID, UpdateProfileInput{
		Username:        "alice2",
		Email:           "a@x.com",
		CurrentPassword: "wrong66",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("UpdateProfile error = %v, want ErrInvalidCredentials", err)
	}

	// Correct current password updates username and password
	updated, err := f.svc.UpdateProfile(user.ID, UpdateProfileInput{
		Username:        "alice2",
		Email:           "a@x.com",
		CurrentPassword: "secret1",
		NewPassword:     "newsecret",
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Username != "alice2" {
		t.Errorf("Username = %s, want alice2", updated.Username)
	}

	if _, err := f.svc.Login(LoginInput{Identifier: "alice2", Password: "newsecret"}); err != nil {
		t.Errorf("Login with new password failed: %v", err)
	}
	if _, err := f.svc.Login(LoginInput{Identifier: "alice2", Password: "secret1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Old password should no longer work, got %v", err)
	}
}
