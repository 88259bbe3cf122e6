package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Polvory/Easy-Plan-back/ledger"
	"github.com/Polvory/Easy-Plan-back/quota"
)

// Provisioner seeds a new user's quota row. Implemented by quota.Gate.
type Provisioner interface {
	Provision(ctx context.Context, userID int64, plan string) (*ledger.FeatureLimits, error)
}

// Service implements registration, login and token refresh on top of the
// store, the token manager and the quota provisioner.
type Service struct {
	store  ledger.TxStore
	tokens *Manager
	quota  Provisioner
	log    *logrus.Logger
}

func NewService(store ledger.TxStore, tokens *Manager, q Provisioner, log *logrus.Logger) *Service {
	return &Service{store: store, tokens: tokens, quota: q, log: log}
}

// HashPassword returns the bcrypt hash stored for a user.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword compares a stored hash against a login attempt.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Register creates a new user on the basic plan and returns the user with a
// fresh token pair. Email must be unused.
func (s *Service) Register(ctx context.Context, email, password string, language ledger.Language) (*ledger.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, fmt.Errorf("%w: invalid email", ledger.ErrInvalidArgument)
	}
	if len(password) < 6 {
		return nil, nil, fmt.Errorf("%w: password must be at least 6 characters", ledger.ErrInvalidArgument)
	}
	if language == "" {
		language = ledger.LanguageEN
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, nil, fmt.Errorf("email %s already registered: %w", email, ledger.ErrConflict)
	} else if !ledger.IsNotFound(err) {
		return nil, nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	user := &ledger.User{
		Email:        email,
		PasswordHash: hash,
		Role:         ledger.RoleUser,
		Language:     language,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}
	if _, err := s.quota.Provision(ctx, user.ID, "basic"); err != nil {
		return nil, nil, fmt.Errorf("provision feature limits: %w", err)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "email": email}).Info("user registered")
	return user, pair, nil
}

// Login verifies credentials and returns a fresh token pair. A wrong email
// and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*ledger.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, nil, fmt.Errorf("%w: bad credentials", ledger.ErrPermissionDenied)
		}
		return nil, nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, nil, fmt.Errorf("%w: bad credentials", ledger.ErrPermissionDenied)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	s.log.WithField("user_id", user.ID).Info("user logged in")
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. Claims are not
// trusted beyond the user id; role and language come from the current row.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", claims.UserID, ledger.ErrPermissionDenied)
	}
	return s.tokens.IssuePair(user)
}

// Upgrade switches the user's subscription and re-provisions quotas.
func (s *Service) Upgrade(ctx context.Context, caller ledger.Caller, plan string) (*ledger.FeatureLimits, error) {
	if _, ok := quota.Plans[plan]; !ok {
		return nil, fmt.Errorf("%w: unknown plan %q", ledger.ErrInvalidArgument, plan)
	}
	user, err := s.store.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", caller.UserID, err)
	}
	user.Premium = plan != "basic"
	user.PremiumType = plan
	user.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return s.quota.Provision(ctx, user.ID, plan)
}
