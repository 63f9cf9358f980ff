// Package auth signs staff in and out and resolves the session behind each
// staff request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wolfman30/dentalbook/internal/observability/metrics"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// Sign-in failures. The message is the opaque code returned to clients.
var (
	ErrInvalidCredential = errors.New("auth/invalid-credential")
	ErrUserDisabled      = errors.New("auth/user-disabled")
	ErrTooManyRequests   = errors.New("auth/too-many-requests")
	ErrUnauthenticated   = errors.New("auth/unauthenticated")
)

// Failed sign-ins allowed per email before ErrTooManyRequests, and how fast
// the allowance refills.
const (
	failureBurst  = 5
	failureRefill = time.Minute
	maxTracked    = 10000
)

// Service authenticates staff.
type Service struct {
	accounts    AccountStore
	tokens      *Tokens
	revocations Revocations
	metrics     *metrics.ClinicMetrics
	logger      *logging.Logger

	mu       sync.Mutex
	failures map[string]*rate.Limiter
}

func NewService(accounts AccountStore, tokens *Tokens, revocations Revocations, m *metrics.ClinicMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if revocations == nil {
		revocations = NewMemoryRevocations()
	}
	return &Service{
		accounts:    accounts,
		tokens:      tokens,
		revocations: revocations,
		metrics:     m,
		logger:      logger,
		failures:    make(map[string]*rate.Limiter),
	}
}

func (s *Service) failureLimiter(email string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.failures[email]
	if !ok {
		if len(s.failures) >= maxTracked {
			s.failures = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Every(failureRefill), failureBurst)
		s.failures[email] = lim
	}
	return lim
}

func (s *Service) clearFailures(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, email)
}

// Login checks the credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, Session, error) {
	token, sess, err := s.login(ctx, normalizeEmail(email), password)
	result := "ok"
	if err != nil {
		result = err.Error()
		if !errors.Is(err, ErrInvalidCredential) && !errors.Is(err, ErrUserDisabled) && !errors.Is(err, ErrTooManyRequests) {
			result = "error"
		}
	}
	s.metrics.ObserveLogin(result)
	return token, sess, err
}

func (s *Service) login(ctx context.Context, email, password string) (string, Session, error) {
	if email == "" || password == "" {
		return "", Session{}, ErrInvalidCredential
	}
	lim := s.failureLimiter(email)
	if lim.Tokens() < 1 {
		s.logger.Warn("auth: sign-in throttled", "email", email)
		return "", Session{}, ErrTooManyRequests
	}

	acct, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		lim.Allow()
		return "", Session{}, ErrInvalidCredential
	}
	if err != nil {
		return "", Session{}, err
	}
	if !CheckPassword(password, acct.PasswordHash) {
		lim.Allow()
		return "", Session{}, ErrInvalidCredential
	}
	if acct.Disabled {
		return "", Session{}, ErrUserDisabled
	}

	s.clearFailures(email)
	token, sess, err := s.tokens.Issue(acct)
	if err != nil {
		return "", Session{}, err
	}
	s.logger.Info("staff signed in", "staff_id", acct.ID, "email", acct.Email)
	return token, sess, nil
}

// Logout revokes the token. Failures are logged and never returned.
func (s *Service) Logout(ctx context.Context, token string) {
	sess, err := s.tokens.Parse(token)
	if err != nil {
		s.logger.Debug("auth: sign-out with unusable token", "error", err)
		return
	}
	if err := s.revocations.Revoke(ctx, sess.TokenID, sess.ExpiresAt); err != nil {
		s.logger.Warn("auth: revoke failed", "error", err, "staff_id", sess.StaffID)
		return
	}
	s.logger.Info("staff signed out", "staff_id", sess.StaffID)
}

// Authenticate resolves a bearer token to a session. When the revocation
// list cannot be read the signed token is trusted.
func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	sess, err := s.tokens.Parse(token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.revocations.IsRevoked(ctx, sess.TokenID)
	if err != nil {
		s.logger.Warn("auth: revocation check unavailable", "error", err)
		return sess, nil
	}
	if revoked {
		return Session{}, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}
	return sess, nil
}

// EnsureAccount creates the account when the email is not registered yet.
func (s *Service) EnsureAccount(ctx context.Context, email, password, name, role string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	_, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if role == "" {
		role = RoleAdmin
	}
	if err := s.accounts.Create(ctx, &Account{Email: email, Name: name, Role: role, PasswordHash: hash}); err != nil {
		return err
	}
	s.logger.Info("staff account bootstrapped", "email", email)
	return nil
}
