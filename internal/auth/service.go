// Package auth validates credentials against the customer record store and
// runs the password reset and security question flows.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/model"
	"github.com/iliyamo/bank-assistant/internal/queue"
	"github.com/iliyamo/bank-assistant/internal/repository"
	"github.com/iliyamo/bank-assistant/internal/utils"
)

// MinPasswordLength is the shortest password a reset accepts.
const MinPasswordLength = 6

// decoyQuestion is returned for unknown usernames so that the security
// question endpoint cannot be used to enumerate accounts.
const decoyQuestion = "What was the name of your first pet?"

var (
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthenticated, "Invalid username or password")
	// ErrInvalidResetToken is returned for a missing, wrong, used or expired token.
	ErrInvalidResetToken = apperr.New(apperr.ErrUnauthenticated, "Invalid or expired reset token")
	// ErrIncorrectAnswer is returned for a wrong answer or an unknown user.
	ErrIncorrectAnswer = apperr.New(apperr.ErrUnauthenticated, "Incorrect answer")
)

// Result is a successful credential check.
type Result struct {
	Username string
	Role     string
	Name     string
	Customer model.Customer
}

// Options tune the service; zero values pick the documented defaults.
type Options struct {
	PasswordScheme string        // sha256 (default) or bcrypt
	BcryptCost     int           // bcrypt cost, default 10
	ResetTokenTTL  time.Duration // default 1h
	Now            func() time.Time
	Audit          queue.Recorder
}

// Service bundles the record store with the credential policies.
type Service struct {
	store    repository.CustomerStore
	scheme   string
	cost     int
	resetTTL time.Duration
	now      func() time.Time
	audit    queue.Recorder
}

func NewService(store repository.CustomerStore, opts Options) *Service {
	s := &Service{
		store:    store,
		scheme:   opts.PasswordScheme,
		cost:     opts.BcryptCost,
		resetTTL: opts.ResetTokenTTL,
		now:      opts.Now,
		audit:    opts.Audit,
	}
	if s.scheme == "" {
		s.scheme = utils.SchemeSHA256
	}
	if s.cost == 0 {
		s.cost = 10
	}
	if s.resetTTL <= 0 {
		s.resetTTL = time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.audit == nil {
		s.audit = queue.Discard{}
	}
	return s
}

// Validate checks username and password. Besides bcrypt and sha256 hashes it
// accepts a password equal to the stored column verbatim, because the
// bundled demo data keeps plaintext there.
func (s *Service) Validate(ctx context.Context, username, password string) (Result, error) {
	c, err := s.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Warn().Str("username", username).Msg("login failed: unknown user")
			s.record(ctx, queue.EventLoginFailed, username, "", "unknown user")
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, err
	}

	switch utils.VerifyPassword(c.PasswordHash, password) {
	case utils.NoMatch:
		log.Warn().Str("username", username).Msg("login failed: wrong password")
		s.record(ctx, queue.EventLoginFailed, username, c.Role(), "wrong password")
		return Result{}, ErrInvalidCredentials
	case utils.MatchPlaintext:
		log.Warn().Str("username", username).Msg("password column holds plaintext; reset the password to store a hash")
	}

	res := Result{Username: c.Username, Role: c.Role(), Name: c.DisplayName(), Customer: c}
	log.Info().Str("username", username).Str("role", res.Role).Msg("login succeeded")
	s.record(ctx, queue.EventLoginSucceeded, username, res.Role, "")
	return res, nil
}

// IssueResetToken stores a fresh single-use token valid for the reset TTL
// and returns it. Unknown usernames yield apperr.ErrNotFound; callers must
// not reveal that to clients.
func (s *Service) IssueResetToken(ctx context.Context, username string) (string, error) {
	token := uuid.NewString()
	expiry := s.now().Add(s.resetTTL).UTC().Truncate(time.Second).Format(time.RFC3339)

	done := false
	n, err := s.store.Rewrite(ctx, func(c *model.Customer) bool {
		if done || c.Username != username {
			return false
		}
		c.ResetToken = token
		c.ResetTokenExpiry = expiry
		done = true
		return true
	})
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("username %q: %w", username, apperr.ErrNotFound)
	}
	log.Info().Str("username", username).Str("expires", expiry).Msg("reset token issued")
	s.record(ctx, queue.EventResetIssued, username, "", "")
	return token, nil
}

// ValidateResetToken reports whether token is the live token of username.
// Any doubt, including an unparseable expiry, yields false.
func (s *Service) ValidateResetToken(ctx context.Context, username, token string) bool {
	c, err := s.store.Get(ctx, username)
	if err != nil {
		return false
	}
	return s.tokenValid(c, token)
}

// ResetPassword checks token and, in the same store rewrite, replaces the
// password hash and clears the token. It is the only way a token is cleared,
// so a used token can never be replayed.
func (s *Service) ResetPassword(ctx context.Context, username, token, newPassword string) error {
	if username == "" || token == "" || newPassword == "" {
		return apperr.New(apperr.ErrValidation, "Username, token, and new password are required")
	}
	if len(newPassword) < MinPasswordLength {
		return apperr.Newf(apperr.ErrValidation, "Password must be at least %d characters long", MinPasswordLength)
	}
	hash, err := utils.HashPassword(newPassword, s.scheme, s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	matched, consumed := false, false
	_, err = s.store.Rewrite(ctx, func(c *model.Customer) bool {
		if matched || c.Username != username {
			return false
		}
		matched = true
		if !s.tokenValid(*c, token) {
			return false
		}
		c.PasswordHash = hash
		c.ResetToken = ""
		c.ResetTokenExpiry = ""
		consumed = true
		return true
	})
	if err != nil {
		return err
	}
	if !consumed {
		log.Warn().Str("username", username).Msg("password reset rejected")
		s.record(ctx, queue.EventResetRejected, username, "", "invalid or expired token")
		return ErrInvalidResetToken
	}
	log.Info().Str("username", username).Msg("password reset completed")
	s.record(ctx, queue.EventResetCompleted, username, "", "")
	return nil
}

func (s *Service) tokenValid(c model.Customer, token string) bool {
	if c.ResetToken == "" || c.ResetTokenExpiry == "" || token == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(c.ResetToken), []byte(token)) != 1 {
		return false
	}
	expiry, err := parseExpiry(c.ResetTokenExpiry)
	if err != nil {
		return false
	}
	return !s.now().After(expiry)
}

// parseExpiry accepts RFC3339 and, for rows written by older tooling, a
// zone-less ISO-8601 timestamp in local time.
func parseExpiry(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", v, time.Local)
}

// SecurityQuestion returns the user's security question, or a generic one
// for unknown users.
func (s *Service) SecurityQuestion(ctx context.Context, username string) (string, error) {
	c, err := s.store.Get(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return decoyQuestion, nil
	}
	if err != nil {
		return "", err
	}
	if c.SecurityQuestion == "" {
		return decoyQuestion, nil
	}
	return c.SecurityQuestion, nil
}

// VerifySecurityAnswer compares answer case-insensitively and returns the
// question on success. Unknown users and wrong answers are indistinguishable.
func (s *Service) VerifySecurityAnswer(ctx context.Context, username, answer string) (string, error) {
	c, err := s.store.Get(ctx, username)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}
	stored := strings.TrimSpace(c.SecurityAnswer)
	if err != nil || stored == "" || !strings.EqualFold(stored, strings.TrimSpace(answer)) {
		s.record(ctx, queue.EventSecurityAnswerWrong, username, "", "")
		return "", ErrIncorrectAnswer
	}
	s.record(ctx, queue.EventSecurityAnswerOK, username, c.Role(), "")
	return c.SecurityQuestion, nil
}

func (s *Service) record(ctx context.Context, typ, username, role, detail string) {
	meta := queue.MetaFrom(ctx)
	s.audit.Record(ctx, queue.AuditEvent{
		Type:       typ,
		Username:   username,
		Role:       role,
		RemoteIP:   meta.RemoteIP,
		RequestID:  meta.RequestID,
		Detail:     detail,
		OccurredAt: s.now().UTC().Format(time.RFC3339),
	})
}
