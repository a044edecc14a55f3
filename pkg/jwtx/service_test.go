package jwtx_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/backoffice/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newService(t *testing.T, clk *clock, refresh time.Duration) *jwtx.Service {
	t.Helper()
	svc, err := jwtx.NewService(jwtx.Config{
		Secret:           []byte("test-secret"),
		TTL:              time.Hour,
		RefreshThreshold: refresh,
		Now:              clk.Now,
	})
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	t.Run("requires secret", func(t *testing.T) {
		_, err := jwtx.NewService(jwtx.Config{})
		require.ErrorIs(t, err, jwtx.ErrNoSecret)
	})

	t.Run("rejects sub-second ttl", func(t *testing.T) {
		_, err := jwtx.NewService(jwtx.Config{Secret: []byte("s"), TTL: time.Millisecond})
		require.ErrorIs(t, err, jwtx.ErrBadTTL)
	})

	t.Run("defaults ttl", func(t *testing.T) {
		svc, err := jwtx.NewService(jwtx.Config{Secret: []byte("s")})
		require.NoError(t, err)
		require.Equal(t, jwtx.DefaultTTL, svc.TTL())
	})
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	clk := &clock{t: time.Now()}
	svc := newService(t, clk, 0)

	perms := []string{"/api/menu_list", "/api/user_list"}
	token, err := svc.Issue(42, "alice", perms)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.ID)
	require.Equal(t, "alice", claims.Username)
	require.ElementsMatch(t, perms, claims.Permissions)
	require.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
	require.Equal(t, jwt.ClaimStrings{jwtx.Audience}, claims.Audience)
	require.NotEmpty(t, claims.RegisteredClaims.ID)
}

func TestIssue_WireClaims(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 500)}
	svc := newService(t, clk, 0)

	token, err := svc.Issue(7, "bob", []string{"/api/role_list"})
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(strings.Split(token, ".")[1])
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.EqualValues(t, 7, payload["id"])
	require.Equal(t, "bob", payload["username"])
	require.Equal(t, []any{"/api/role_list"}, payload["permissions"])
	require.EqualValues(t, 1_700_000_000, payload["iat"])
	require.EqualValues(t, 1_700_003_600, payload["exp"])
	require.Contains(t, payload, "aud")
	require.Contains(t, payload, "jti")
}

func TestVerify_Rejects(t *testing.T) {
	clk := &clock{t: time.Now()}
	svc := newService(t, clk, 0)

	valid, err := svc.Issue(1, "admin", []string{"/api/user_list"})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := &clock{t: clk.t.Add(time.Hour + time.Second)}
		_, err := newService(t, later, 0).Verify(valid)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("different secret", func(t *testing.T) {
		other, err := jwtx.NewService(jwtx.Config{Secret: []byte("other"), TTL: time.Hour, Now: clk.Now})
		require.NoError(t, err)
		_, err = other.Verify(valid)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("different audience", func(t *testing.T) {
		foreign, err := jwtx.NewService(jwtx.Config{Secret: []byte("test-secret"), TTL: time.Hour, Audience: "someone_else", Now: clk.Now})
		require.NoError(t, err)
		token, err := foreign.Issue(1, "admin", nil)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("missing exp", func(t *testing.T) {
		claims := jwtx.Claims{
			ID: 1,
			RegisteredClaims: jwt.RegisteredClaims{
				Audience: jwt.ClaimStrings{jwtx.Audience},
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = svc.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
		require.ErrorIs(t, err, jwtx.ErrMissingClaim)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		claims := jwtx.Claims{
			ID: 1,
			RegisteredClaims: jwt.RegisteredClaims{
				Audience:  jwt.ClaimStrings{jwtx.Audience},
				ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = svc.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		for _, tok := range []string{"", "abc", "a.b.c", strings.Repeat(".", 5)} {
			_, err := svc.Verify(tok)
			require.ErrorIs(t, err, jwtx.ErrInvalidToken, tok)
		}
	})
}

func TestRefreshIfNearExpiry(t *testing.T) {
	clk := &clock{t: time.Now().Truncate(time.Second)}
	svc := newService(t, clk, 10*time.Minute)

	token, err := svc.Issue(9, "carol", []string{"/api/query_user_menu"})
	require.NoError(t, err)
	claims, err := svc.Verify(token)
	require.NoError(t, err)

	t.Run("plenty of time left", func(t *testing.T) {
		_, ok, err := svc.RefreshIfNearExpiry(claims)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("inside the threshold", func(t *testing.T) {
		clk.t = clk.t.Add(55 * time.Minute)
		fresh, ok, err := svc.RefreshIfNearExpiry(claims)
		require.NoError(t, err)
		require.True(t, ok)
		require.NotEqual(t, token, fresh)

		refreshed, err := svc.Verify(fresh)
		require.NoError(t, err)
		require.Equal(t, claims.ID, refreshed.ID)
		require.Equal(t, claims.Username, refreshed.Username)
		require.Equal(t, claims.Permissions, refreshed.Permissions)
		require.True(t, refreshed.ExpiresAt.After(claims.ExpiresAt.Time))
	})

	t.Run("disabled", func(t *testing.T) {
		noRefresh := newService(t, clk, 0)
		_, ok, err := noRefresh.RefreshIfNearExpiry(claims)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestClaims_HasPermission(t *testing.T) {
	c := &jwtx.Claims{Permissions: []string{"/api/user_list", "/api/role_list"}}

	require.True(t, c.HasPermission("/api/user_list"))
	require.False(t, c.HasPermission("/api/user_list/"))
	require.False(t, c.HasPermission("/api/user"))
	require.False(t, c.HasPermission("/API/USER_LIST"))
	require.False(t, c.HasPermission(""))
}
