// Package auth provides authentication and registration services
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rsaiteja/codegpt/internal/config"
	"github.com/rsaiteja/codegpt/internal/models"
	"github.com/rsaiteja/codegpt/internal/services/otp"
	"github.com/rsaiteja/codegpt/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	ErrNotVerified        = errors.New("email not verified")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidInput       = errors.New("missing or invalid fields")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidToken       = errors.New("invalid token")
)

// Service handles authentication operations
type Service struct {
	cfg         *config.Config
	userRepo    *storage.UserRepository
	sessionRepo *storage.SessionRepository
	otpService  *otp.Service
	validate    *validator.Validate
}

// NewService creates a new auth service
func NewService(cfg *config.Config, userRepo *storage.UserRepository, sessionRepo *storage.SessionRepository, otpService *otp.Service) *Service {
	return &Service{
		cfg:         cfg,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		otpService:  otpService,
		validate:    validator.New(),
	}
}

// SignupInput contains signup form data
type SignupInput struct {
	Username        string `validate:"required,min=3,max=32"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required"`
}

// PendingRegistration is the transient state between signup submission and
// OTP verification. It is never persisted: it travels in a signed token
// held by the client and dies with that token.
type PendingRegistration struct {
	Username     string
	Email        string
	PasswordHash string
}

// BeginRegistration validates a signup submission, issues an OTP to the
// email, and returns a signed pending-registration token. No account row
// is created here; the account only materializes in CompleteRegistration.
func (s *Service) BeginRegistration(input SignupInput) (string, error) {
	if err := s.validate.Struct(input); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if input.Password != input.ConfirmPassword {
		return "", ErrPasswordMismatch
	}

	taken, err := s.userRepo.UsernameExists(input.Username)
	if err != nil {
		return "", fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return "", ErrUsernameTaken
	}

	taken, err = s.userRepo.EmailExists(input.Email)
	if err != nil {
		return "", fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	// Dispatch the code before advancing registration state; a delivery
	// failure halts the flow with nothing persisted.
	if _, err := s.otpService.Issue(input.Email); err != nil {
		return "", err
	}

	return s.createPendingToken(&PendingRegistration{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
	})
}

// CompleteRegistration verifies the submitted code against the pending
// registration and, on success, inserts the verified account. The failure
// is uniform: wrong, expired, and replayed codes are indistinguishable to
// the caller.
func (s *Service) CompleteRegistration(pendingToken, code string) (*models.User, error) {
	pending, err := s.ParsePendingToken(pendingToken)
	if err != nil {
		return nil, err
	}

	ok, err := s.otpService.Verify(pending.Email, code)
	if err != nil {
		return nil, fmt.Errorf("failed to verify code: %w", err)
	}
	if !ok {
		return nil, ErrInvalidOTP
	}

	user := models.NewUser(pending.Username, pending.Email, pending.PasswordHash)
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput contains login credentials. Identifier is a username or email.
type LoginInput struct {
	Identifier string
	Password   string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	User    *models.User
	Token   string
	Expires time.Time
}

// Login authenticates a user and creates a session. Unknown identifiers
// and wrong passwords fail identically; an unverified account fails with
// its own error so the caller can prompt for verification.
func (s *Service) Login(input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.GetByIdentifier(input.Identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		return nil, ErrNotVerified
	}

	token, err := s.createSessionToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	expires := time.Now().UTC().Add(s.cfg.SessionDuration)

	session := &models.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: expires,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &LoginResult{
		User:    user,
		Token:   token,
		Expires: expires,
	}, nil
}

// ValidateToken verifies a session JWT and returns the user
func (s *Service) ValidateToken(tokenString string) (*models.User, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	if purpose, _ := claims["purpose"].(string); purpose != "session" {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil || user == nil {
		return nil, ErrInvalidToken
	}

	return user, nil
}

// Logout invalidates all sessions for a user
func (s *Service) Logout(userID uuid.UUID) error {
	return s.sessionRepo.DeleteByUserID(userID)
}

// UpdateProfileInput contains profile edit form data
type UpdateProfileInput struct {
	Username        string `validate:"required,min=3,max=32"`
	Email           string `validate:"required,email"`
	CurrentPassword string `validate:"required"`
	NewPassword     string // optional; empty keeps the current password
}

// UpdateProfile changes username/email and optionally the password, gated
// on the current password.
func (s *Service) UpdateProfile(userID uuid.UUID, input UpdateProfileInput) (*models.User, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if input.Username != user.Username {
		taken, err := s.userRepo.UsernameExists(input.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}
	if input.Email != user.Email {
		taken, err := s.userRepo.EmailExists(input.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
	}

	user.Username = input.Username
	user.Email = input.Email

	if input.NewPassword != "" {
		if len(input.NewPassword) < 6 {
			return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	// Password change invalidates existing sessions
	if input.NewPassword != "" {
		if err := s.sessionRepo.DeleteByUserID(userID); err != nil {
			return nil, fmt.Errorf("failed to invalidate sessions: %w", err)
		}
	}

	return user, nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *Service) CleanupExpiredSessions() error {
	return s.sessionRepo.DeleteExpired()
}

func (s *Service) createSessionToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"purpose":  "session",
		"sub":      user.ID.String(),
		"username": user.Username,
		"exp":      time.Now().Add(s.cfg.SessionDuration).Unix(),
		"iat":      time.Now().Unix(),
		"jti":      generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.SecretKey))
}

func (s *Service) createPendingToken(pending *PendingRegistration) (string, error) {
	claims := jwt.MapClaims{
		"purpose":  "pending_registration",
		"username": pending.Username,
		"email":    pending.Email,
		"pwd_hash": pending.PasswordHash,
		"exp":      time.Now().Add(s.cfg.PendingDuration).Unix(),
		"iat":      time.Now().Unix(),
		"jti":      generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.SecretKey))
}

// ParsePendingToken extracts a pending registration from its signed token
func (s *Service) ParsePendingToken(tokenString string) (*PendingRegistration, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	if purpose, _ := claims["purpose"].(string); purpose != "pending_registration" {
		return nil, ErrInvalidToken
	}

	username, _ := claims["username"].(string)
	email, _ := claims["email"].(string)
	hash, _ := claims["pwd_hash"].(string)
	if username == "" || email == "" || hash == "" {
		return nil, ErrInvalidToken
	}

	return &PendingRegistration{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}, nil
}

func (s *Service) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	exp, ok := claims["exp"].(float64)
	if !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
		return nil, ErrSessionExpired
	}

	return claims, nil
}

func generateJTI() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
