package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

var (
	ErrAccountNotFound    = errors.New("account_not_found")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountDisabled    = errors.New("account_disabled")
	ErrNoPermissions      = errors.New("no_permissions")
)

// Login outcomes, as reported to LoginRecorder.
const (
	OutcomeSuccess       = "success"
	OutcomeNotFound      = "not_found"
	OutcomeBadPassword   = "bad_password"
	OutcomeDisabled      = "disabled"
	OutcomeThrottled     = "throttled"
	OutcomeNoPermissions = "no_permissions"
	OutcomeError         = "error"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(id int64, username string, permissions []string) (string, error)
}

// LoginRecorder observes login attempts. *metricsx.Metrics satisfies it.
type LoginRecorder interface {
	RecordLogin(outcome string, took time.Duration)
}

type LoginService struct {
	Store       store.Store
	Hasher      *cryptox.Hasher
	Tokens      TokenIssuer
	Throttle    *LoginThrottle
	Permissions *PermissionResolver
	Recorder    LoginRecorder // optional
}

type LoginResult struct {
	Token       string
	UserID      int64
	UserName    string
	Permissions []string
}

// Login authenticates mobile/password and returns a signed session token
// carrying the user's API permissions.
func (s *LoginService) Login(ctx context.Context, mobile, password string) (res LoginResult, err error) {
	l := slogx.FromContext(ctx).With(slog.String("mobile", mobile))

	if s.Recorder != nil {
		start := time.Now()
		defer func() { s.Recorder.RecordLogin(loginOutcome(err), time.Since(start)) }()
	}

	// 1. Throttle before touching storage
	tries, err := s.Throttle.Check(ctx, mobile)
	if err != nil {
		if errors.Is(err, ErrTooManyAttempts) {
			l.Warn("login throttled", slog.Any("error", err))
		}
		return LoginResult{}, err
	}

	// 2. Look up the account
	user, err := s.Store.Users().GetUserByMobile(ctx, mobile)
	if errors.Is(err, store.ErrNotFound) {
		l.Info("login for unknown account")
		if _, rerr := s.Throttle.RecordFailure(ctx, mobile); rerr != nil {
			return LoginResult{}, rerr
		}
		return LoginResult{}, ErrAccountNotFound
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}

	// 3. Verify the password
	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			l.Error("stored password hash unreadable", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
		n, rerr := s.Throttle.RecordFailure(ctx, mobile)
		if rerr != nil {
			return LoginResult{}, rerr
		}
		l.Info("login with wrong password", slog.Int64("user_id", user.ID), slog.Int("failures", n))
		return LoginResult{}, ErrInvalidCredentials
	}

	if tries > 0 {
		if err := s.Throttle.Clear(ctx, mobile); err != nil {
			return LoginResult{}, err
		}
	}

	if !user.Enabled() {
		l.Info("login for disabled account", slog.Int64("user_id", user.ID))
		return LoginResult{}, ErrAccountDisabled
	}

	// 4. Resolve permissions; none means the account cannot use the API
	perms, err := s.Permissions.Resolve(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	if len(perms) == 0 {
		l.Warn("login for account without permissions", slog.Int64("user_id", user.ID))
		return LoginResult{}, ErrNoPermissions
	}

	token, err := s.Tokens.Issue(user.ID, user.UserName, perms)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	l.Info("login succeeded", slog.Int64("user_id", user.ID), slog.Int("permissions", len(perms)))
	return LoginResult{
		Token:       token,
		UserID:      user.ID,
		UserName:    user.UserName,
		Permissions: perms,
	}, nil
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrTooManyAttempts):
		return OutcomeThrottled
	case errors.Is(err, ErrAccountNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeBadPassword
	case errors.Is(err, ErrAccountDisabled):
		return OutcomeDisabled
	case errors.Is(err, ErrNoPermissions):
		return OutcomeNoPermissions
	default:
		return OutcomeError
	}
}
