// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/threadboard/threadboard/pkg/errutil"
)

// DefaultResetURL is the link prefix a reset token is appended to.
const DefaultResetURL = "http://localhost:3000/change-password/"

// DefaultMailTimeout bounds a background reset email send.
const DefaultMailTimeout = 30 * time.Second

// Operation names reported to MetricsRecorder.
const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpLogout         = "logout"
	OpWhoAmI         = "who_am_i"
	OpForgotPassword = "forgot_password"
	OpChangePassword = "change_password"
)

// Deps are the collaborators a Service composes. All are required.
type Deps struct {
	Users       UserRepository
	Sessions    SessionStore
	ResetTokens ResetTokenStore
	Hasher      PasswordHasher
	Mailer      Mailer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for unexpected failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the recorder for operation outcomes.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithResetURL sets the link prefix used in password reset emails.
func WithResetURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.resetURL = url
		}
	}
}

// WithMailTimeout bounds how long a reset email may take to send.
func WithMailTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.mailTimeout = d
		}
	}
}

// WithHashConcurrency bounds how many hashes run at once.
func WithHashConcurrency(n int) Option {
	return func(s *Service) {
		s.hashWorkers = n
	}
}

// Service orchestrates registration, login, sessions and password resets.
// Expected failures are returned as FieldErrors; unexpected ones are logged
// and produce an empty result.
type Service struct {
	users       UserRepository
	sessions    SessionStore
	resetTokens ResetTokenStore
	hashes      *HashPool
	mailer      Mailer

	logger      *slog.Logger
	metrics     MetricsRecorder
	resetURL    string
	hashWorkers int
	mailTimeout time.Duration

	// sending tracks reset emails still in flight.
	sending sync.WaitGroup
}

// NewService creates a new Service.
func NewService(deps Deps, opts ...Option) (*Service, error) {
	if deps.Users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("users repository is required")
	}
	if deps.Sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("session store is required")
	}
	if deps.ResetTokens == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("reset token store is required")
	}
	if deps.Hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	if deps.Mailer == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("mailer is required")
	}

	s := &Service{
		users:       deps.Users,
		sessions:    deps.Sessions,
		resetTokens: deps.ResetTokens,
		mailer:      deps.Mailer,
		logger:      slog.Default(),
		metrics:     noopMetrics{},
		resetURL:    DefaultResetURL,
		mailTimeout: DefaultMailTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hashes = NewHashPool(deps.Hasher, s.hashWorkers)

	return s, nil
}

// Register validates the input, creates the account and opens a session.
func (s *Service) Register(ctx context.Context, in RegisterInput) UserResponse {
	if fe := in.Validate(); fe != nil {
		return s.fieldError(OpRegister, fe.Field, fe.Message)
	}

	hash, err := s.hashes.Hash(ctx, in.Password)
	if err != nil {
		return s.failure(ctx, OpRegister, "hash password failed", err)
	}

	user, err := s.users.Create(ctx, in.Username, in.Email, hash)
	if err != nil {
		if conflict, ok := AsConflict(err); ok {
			return s.fieldError(OpRegister, conflict.Field, takenMessage(conflict.Field))
		}
		return s.failure(ctx, OpRegister, "create user failed", err)
	}

	return s.authenticated(ctx, OpRegister, user)
}

// Login verifies credentials and opens a session. An identifier containing
// "@" is treated as an email address, anything else as a username.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) UserResponse {
	var (
		user *User
		err  error
	)
	if strings.Contains(usernameOrEmail, "@") {
		user, err = s.users.GetByEmail(ctx, usernameOrEmail)
	} else {
		user, err = s.users.GetByUsername(ctx, usernameOrEmail)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.fieldError(OpLogin, "usernameOrEmail", "That username doesn't exist")
		}
		return s.failure(ctx, OpLogin, "look up user failed", err)
	}

	valid, err := s.hashes.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return s.failure(ctx, OpLogin, "verify password failed", err)
	}
	if !valid {
		return s.fieldError(OpLogin, "password", "Incorrect password")
	}

	return s.authenticated(ctx, OpLogin, user)
}

// Logout destroys the session. Returns false if the store could not confirm
// the removal.
func (s *Service) Logout(ctx context.Context, sessionID string) bool {
	if sessionID == "" {
		s.metrics.RecordAuthOutcome(OpLogout, OutcomeSuccess)
		return true
	}

	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		s.failure(ctx, OpLogout, "destroy session failed", err)
		return false
	}

	s.metrics.RecordAuthOutcome(OpLogout, OutcomeSuccess)
	return true
}

// WhoAmI resolves the session to its user. Returns nil for anonymous
// callers, unknown sessions and sessions whose user no longer exists.
func (s *Service) WhoAmI(ctx context.Context, sessionID string) *User {
	if sessionID == "" {
		s.metrics.RecordAuthOutcome(OpWhoAmI, OutcomeSuccess)
		return nil
	}

	userID, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.failure(ctx, OpWhoAmI, "get session failed", err)
			return nil
		}
		s.metrics.RecordAuthOutcome(OpWhoAmI, OutcomeSuccess)
		return nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.failure(ctx, OpWhoAmI, "get user failed", err)
			return nil
		}
		s.metrics.RecordAuthOutcome(OpWhoAmI, OutcomeSuccess)
		return nil
	}

	s.metrics.RecordAuthOutcome(OpWhoAmI, OutcomeSuccess)
	return user
}

// ForgotPassword emails a reset link if an account uses email.
// It always returns true, and returns before the email is sent, so callers
// cannot tell which emails are registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) bool {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.failure(ctx, OpForgotPassword, "look up user failed", err)
			return true
		}
		s.metrics.RecordAuthOutcome(OpForgotPassword, OutcomeSuccess)
		return true
	}

	token, err := s.resetTokens.Issue(ctx, user.ID)
	if err != nil {
		s.failure(ctx, OpForgotPassword, "issue reset token failed", err)
		return true
	}

	body := fmt.Sprintf(`<a href="%s%s">Reset Password</a>`, s.resetURL, token)
	s.sendResetEmail(ctx, user, body)
	return true
}

// sendResetEmail hands body to the mailer on its own goroutine, so the reply
// for a registered address never waits on the relay. The send keeps the
// request's values but not its cancellation, and is bounded by mailTimeout.
// Its outcome is recorded when it finishes.
func (s *Service) sendResetEmail(ctx context.Context, user *User, body string) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.mailTimeout)
	userID, to := user.ID, user.Email

	s.sending.Add(1)
	go func() {
		defer s.sending.Done()
		defer cancel()

		if err := s.mailer.Send(sendCtx, to, body); err != nil {
			s.failure(sendCtx, OpForgotPassword, "send reset email failed",
				oops.With("user_id", userID).Wrap(err))
			return
		}
		s.metrics.RecordAuthOutcome(OpForgotPassword, OutcomeSuccess)
	}()
}

// Wait blocks until every reset email in flight has been sent or has
// failed, or until ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.sending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return oops.Code("AUTH_MAIL_DRAIN_INTERRUPTED").Wrap(ctx.Err())
	}
}

// ChangePassword spends a reset token, sets the new password and opens a
// session for the token's owner.
func (s *Service) ChangePassword(ctx context.Context, token, newPassword string) UserResponse {
	if fe := ValidatePassword("newPassword", newPassword); fe != nil {
		return s.fieldError(OpChangePassword, fe.Field, fe.Message)
	}

	userID, err := s.resetTokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.fieldError(OpChangePassword, "token", "Token Expired!")
		}
		return s.failure(ctx, OpChangePassword, "consume reset token failed", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.fieldError(OpChangePassword, "token", "User no longer exists")
		}
		return s.failure(ctx, OpChangePassword, "get user failed", err)
	}

	hash, err := s.hashes.Hash(ctx, newPassword)
	if err != nil {
		return s.failure(ctx, OpChangePassword, "hash password failed", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.fieldError(OpChangePassword, "token", "User no longer exists")
		}
		return s.failure(ctx, OpChangePassword, "update password failed", err)
	}
	user.PasswordHash = hash

	return s.authenticated(ctx, OpChangePassword, user)
}

// authenticated opens a session for user and builds the success response.
func (s *Service) authenticated(ctx context.Context, op string, user *User) UserResponse {
	sessionID, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return s.failure(ctx, op, "create session failed",
			oops.With("user_id", user.ID).Wrap(err))
	}

	s.metrics.RecordAuthOutcome(op, OutcomeSuccess)
	return UserResponse{User: user, SessionID: sessionID}
}

func (s *Service) fieldError(op, field, message string) UserResponse {
	s.metrics.RecordAuthOutcome(op, OutcomeFieldError)
	return fieldErrorResponse(field, message)
}

// failure logs an unexpected error and returns the empty result.
func (s *Service) failure(ctx context.Context, op, msg string, err error) UserResponse {
	s.metrics.RecordAuthOutcome(op, OutcomeFailure)
	errutil.LogErrorContext(ctx, s.logger, msg, oops.With("operation", op).Wrap(err))
	return UserResponse{}
}

func takenMessage(field string) string {
	switch field {
	case "email":
		return "Email has already been taken!"
	default:
		return "Username has already been taken!"
	}
}
