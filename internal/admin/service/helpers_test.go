package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/internal/admin/store/drivers/sqlite"
	"github.com/aussiebroadwan/backoffice/pkg/cachex"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/jwtx"
)

const (
	adminMobile   = "+10000000000"
	adminPassword = "correct horse"
)

// Cheap parameters keep the suite fast.
var testParams = cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 16, SaltLength: 8}

// clock is a settable time source shared by the cache and token service.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	store    *sqlite.Store
	cache    *cachex.MemoryCache
	clock    *clock
	hasher   *cryptox.Hasher
	tokens   *jwtx.Service
	throttle *service.LoginThrottle
	perms    *service.PermissionResolver
	login    *service.LoginService
	users    *service.UserService
	roles    *service.RoleService
	menus    *service.MenuService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clk := newClock()
	cache := cachex.NewMemory(cachex.WithClock(clk.Now))
	t.Cleanup(func() { _ = cache.Close() })

	tokens, err := jwtx.NewService(jwtx.Config{
		Secret: []byte("service-test-secret"),
		TTL:    time.Hour,
		Now:    clk.Now,
	})
	require.NoError(t, err)

	e := &env{
		store:  st,
		cache:  cache,
		clock:  clk,
		hasher: cryptox.NewHasher("pepper", cryptox.WithParams(testParams)),
		tokens: tokens,
	}
	e.throttle = service.NewLoginThrottle(cache, service.ThrottleConfig{
		MaxAttempts: 3,
		Cooldown:    60 * time.Second,
	})
	e.perms = &service.PermissionResolver{Store: st}
	e.login = &service.LoginService{
		Store:       st,
		Hasher:      e.hasher,
		Tokens:      tokens,
		Throttle:    e.throttle,
		Permissions: e.perms,
	}
	e.users = &service.UserService{Store: st, Hasher: e.hasher}
	e.roles = &service.RoleService{Store: st}
	e.menus = &service.MenuService{Store: st}
	return e
}

// bootstrap creates the super admin with adminMobile/adminPassword.
func (e *env) bootstrap(t *testing.T) {
	t.Helper()

	b := &service.BootstrapService{Store: e.store, Hasher: e.hasher}
	_, err := b.Bootstrap(context.Background(), service.BootstrapRequest{
		Mobile:   adminMobile,
		Password: adminPassword,
	})
	require.NoError(t, err)
}

func (e *env) createUser(t *testing.T, mobile, password string) int64 {
	t.Helper()

	id, err := e.users.Create(context.Background(), service.NewUser{
		Mobile:   mobile,
		UserName: "user " + mobile,
		Password: password,
		StatusID: domain.StatusEnabled,
	})
	require.NoError(t, err)
	// The first row takes the protected super admin id.
	require.NotEqual(t, domain.SuperAdminUserID, id, "bootstrap before creating users")
	return id
}

// roleSeven creates roles until id 7 is reached and grants it the Users page
// (/api/user_list) and its View roles button (/api/query_user_role).
func (e *env) roleSeven(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	for i := 2; i <= 7; i++ {
		var err error
		id, err = e.roles.Create(ctx, domain.Role{RoleName: fmt.Sprintf("role-%d", i), StatusID: domain.StatusEnabled})
		require.NoError(t, err)
	}
	require.EqualValues(t, 7, id)
	require.NoError(t, e.roles.SetMenus(ctx, id, []int64{3, 7}))
	return id
}
