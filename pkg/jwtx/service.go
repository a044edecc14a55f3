package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken wraps every verification failure. Callers that only
	// need to reject can match on it alone.
	ErrInvalidToken = errors.New("jwtx: invalid token")

	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrMissingClaim = errors.New("jwtx: required claim missing")

	ErrNoSecret = errors.New("jwtx: signing secret is empty")
	ErrBadTTL   = errors.New("jwtx: token ttl must be at least one second")
)

// Config configures a Service.
type Config struct {
	// Secret is the HS256 key shared by issuer and verifier.
	Secret []byte

	// TTL is the validity window of issued tokens. Defaults to DefaultTTL.
	TTL time.Duration

	// RefreshThreshold: a verified token with less than this much validity
	// left is re-issued by RefreshIfNearExpiry. Zero disables refresh.
	RefreshThreshold time.Duration

	// Audience defaults to the package Audience constant.
	Audience string

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Service issues, verifies and refreshes HS256 session tokens. It holds no
// mutable state and is safe for concurrent use.
type Service struct {
	secret    []byte
	ttl       time.Duration
	threshold time.Duration
	audience  string
	now       func() time.Time
	parser    *jwt.Parser
}

func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrNoSecret
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < time.Second {
		return nil, ErrBadTTL
	}
	if cfg.Audience == "" {
		cfg.Audience = Audience
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RefreshThreshold < 0 {
		cfg.RefreshThreshold = 0
	}

	s := &Service{
		secret:    cfg.Secret,
		ttl:       cfg.TTL,
		threshold: cfg.RefreshThreshold,
		audience:  cfg.Audience,
		now:       cfg.Now,
	}

	// No leeway: a token is dead the second its exp passes.
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(cfg.Audience),
		jwt.WithTimeFunc(cfg.Now),
	)
	return s, nil
}

// TTL returns the configured token validity window.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a new token for the identity with the given permission set.
func (s *Service) Issue(id int64, username string, permissions []string) (string, error) {
	now := s.now().Truncate(time.Second)

	claims := Claims{
		ID:          id,
		Username:    username,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign token: %w", err)
	}
	return token, nil
}

// Verify checks the signature, the presence of exp and aud, the audience
// value and the expiry. Any failure is reported as ErrInvalidToken wrapping
// the specific cause.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	token, err := s.parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, classify(err))
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMalformed)
	}
	return claims, nil
}

// RefreshIfNearExpiry re-issues the token when its remaining validity has
// dropped below the refresh threshold. The new token carries the same
// identity and permissions with a fresh expiry. ok is false when no refresh
// was needed.
func (s *Service) RefreshIfNearExpiry(c *Claims) (token string, ok bool, err error) {
	if s.threshold <= 0 || c == nil {
		return "", false, nil
	}
	if c.ExpiresAt == nil {
		return "", false, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingClaim)
	}
	if c.Remaining(s.now()) >= s.threshold {
		return "", false, nil
	}

	token, err = s.Issue(c.ID, c.Username, c.Permissions)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrMissingClaim
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudience
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return err
	}
}
