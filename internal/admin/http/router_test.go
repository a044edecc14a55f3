package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	adminhttp "github.com/aussiebroadwan/backoffice/internal/admin/http"
	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/internal/admin/store/drivers/sqlite"
	"github.com/aussiebroadwan/backoffice/pkg/cachex"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
	"github.com/aussiebroadwan/backoffice/pkg/jwtx"
	"github.com/aussiebroadwan/backoffice/pkg/metricsx"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

const (
	adminMobile   = "+10000000000"
	adminPassword = "correct horse"
)

type envelope struct {
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Total   int64           `json:"total"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	handler http.Handler
	users   *service.UserService
	roles   *service.RoleService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	cache := cachex.NewMemory()
	hasher := cryptox.NewHasher("pepper", cryptox.WithParams(cryptox.Params{
		Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 16, SaltLength: 8,
	}))
	tokens, err := jwtx.NewService(jwtx.Config{Secret: []byte("router-test-secret"), TTL: time.Hour})
	require.NoError(t, err)

	b := &service.BootstrapService{Store: st, Hasher: hasher}
	_, err = b.Bootstrap(ctx, service.BootstrapRequest{Mobile: adminMobile, Password: adminPassword})
	require.NoError(t, err)

	throttle := service.NewLoginThrottle(cache, service.ThrottleConfig{MaxAttempts: 3, Cooldown: time.Minute})
	perms := &service.PermissionResolver{Store: st}
	metrics := metricsx.New()

	r := adminhttp.NewRouter(tokens, st, cache, metrics, "test", slogx.Discard())
	r.LoginLimit = httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
	r.LoginService = &service.LoginService{
		Store:       st,
		Hasher:      hasher,
		Tokens:      tokens,
		Throttle:    throttle,
		Permissions: perms,
		Recorder:    metrics,
	}
	r.UserService = &service.UserService{Store: st, Hasher: hasher}
	r.RoleService = &service.RoleService{Store: st}
	r.MenuService = &service.MenuService{Store: st}
	r.ApplyRoutes()

	return &testServer{handler: r, users: r.UserService, roles: r.RoleService}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *testServer) login(t *testing.T, mobile, password string) string {
	t.Helper()

	rec, env := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"mobile": mobile, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, httpx.CodeOK, env.Code)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestLoginAndUserMenu(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, adminMobile, adminPassword)

	rec, env := s.do(t, http.MethodGet, "/api/query_user_menu", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var menu struct {
		Name    string           `json:"name"`
		SysMenu []map[string]any `json:"sys_menu"`
		BtnMenu []string         `json:"btn_menu"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &menu))
	require.Equal(t, "admin", menu.Name)
	require.NotEmpty(t, menu.SysMenu)
	require.Contains(t, menu.BtnMenu, "/api/user_list")
}

func TestLoginErrors(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"mobile": "+19999999999", "password": "x"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, httpx.CodeError, env.Code)
	unknownMsg := env.Msg

	for range 3 {
		rec, env = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"mobile": adminMobile, "password": "wrong"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, unknownMsg, env.Msg)
	}

	rec, env = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"mobile": adminMobile, "password": adminPassword})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, env.Msg, "retry after")

	rec, _ = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"mobile": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGate(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	roleID, err := s.roles.Create(ctx, domain.Role{RoleName: "viewer", StatusID: domain.StatusEnabled})
	require.NoError(t, err)
	require.NoError(t, s.roles.SetMenus(ctx, roleID, []int64{3}))

	uid, err := s.users.Create(ctx, service.NewUser{Mobile: "+10000000007", UserName: "viewer", Password: "secret", StatusID: domain.StatusEnabled})
	require.NoError(t, err)
	require.NoError(t, s.users.SetRoles(ctx, uid, []int64{roleID}))

	noRoles, err := s.users.Create(ctx, service.NewUser{Mobile: "+10000000008", UserName: "nobody", Password: "secret", StatusID: domain.StatusEnabled})
	require.NoError(t, err)
	require.NotZero(t, noRoles)

	token := s.login(t, "+10000000007", "secret")

	rec, env := s.do(t, http.MethodPost, "/api/user_list", token, map[string]any{"current": 1, "pageSize": 10, "status_id": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	require.EqualValues(t, 3, env.Total)

	t.Run("path outside permissions", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/role_list", token, map[string]any{})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "unauthorized", env.Msg)
	})

	t.Run("missing token", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/api/user_list", "", map[string]any{})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("garbage token", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/api/user_list", "not.a.token", map[string]any{})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no permissions login", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"mobile": "+10000000008", "password": "secret"})
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, env.Msg, "no permissions")
	})
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, adminMobile, adminPassword)

	// Create a user and a role, then link them.
	rec, env := s.do(t, http.MethodPost, "/api/user_save", token, map[string]any{
		"mobile": "+10000000001", "user_name": "ops", "password": "secret", "status_id": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, env.Msg)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, env = s.do(t, http.MethodPost, "/api/user_save", token, map[string]any{
		"mobile": "+10000000001", "user_name": "dup", "password": "secret",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/api/role_save", token, map[string]any{"role_name": "ops", "status_id": 1})
	require.Equal(t, http.StatusOK, rec.Code, env.Msg)
	var role struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &role))

	rec, _ = s.do(t, http.MethodPost, "/api/update_user_role", token, map[string]any{"user_id": created.ID, "role_ids": []int64{role.ID}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/api/query_user_role", token, map[string]any{"user_id": created.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var userRoles struct {
		SysRoleList []map[string]any `json:"sys_role_list"`
		UserRoleIDs []int64          `json:"user_role_ids"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &userRoles))
	require.Len(t, userRoles.SysRoleList, 2)
	require.Equal(t, []int64{role.ID}, userRoles.UserRoleIDs)

	t.Run("super admin roles are fixed", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/api/update_user_role", token, map[string]any{"user_id": 1, "role_ids": []int64{}})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("role in use", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/api/role_delete", token, map[string]any{"ids": []int64{role.ID}})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("role menus", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/api/update_role_menu", token, map[string]any{"role_id": role.ID, "menu_ids": []int64{3, 4}})
		require.Equal(t, http.StatusOK, rec.Code)

		rec, env := s.do(t, http.MethodPost, "/api/query_role_menu", token, map[string]any{"role_id": role.ID})
		require.Equal(t, http.StatusOK, rec.Code)
		var data struct {
			RoleMenus []int64 `json:"role_menus"`
			MenuList  []struct {
				ID            int64  `json:"id"`
				Key           string `json:"key"`
				IsPenultimate bool   `json:"isPenultimate"`
			} `json:"menu_list"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.Equal(t, []int64{3, 4}, data.RoleMenus)
		require.Len(t, data.MenuList, 20)
		require.Equal(t, "1", data.MenuList[0].Key)
	})

	t.Run("menus", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/menu_save", token, map[string]any{
			"parent_id": 2, "menu_name": "Audit", "menu_url": "/system/audit", "api_url": "/api/audit_list", "menu_type": 2, "status_id": 1,
		})
		require.Equal(t, http.StatusOK, rec.Code, env.Msg)

		rec, _ = s.do(t, http.MethodPost, "/api/menu_delete", token, map[string]any{"ids": []int64{2}})
		require.Equal(t, http.StatusConflict, rec.Code)

		rec, env = s.do(t, http.MethodPost, "/api/menu_list", token, map[string]any{"menu_name": "Audit"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.EqualValues(t, 1, env.Total)
	})

	t.Run("change password", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/api/update_user_password", token, map[string]any{"password": "wrong", "new_password": "next"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec, _ = s.do(t, http.MethodPost, "/api/update_user_password", token, map[string]any{"password": adminPassword, "new_password": "next"})
		require.Equal(t, http.StatusOK, rec.Code)
		s.login(t, adminMobile, "next")
	})

	t.Run("delete skips super admin", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/user_delete", token, map[string]any{"ids": []int64{1, created.ID}})
		require.Equal(t, http.StatusOK, rec.Code)
		var data struct {
			Affected int64 `json:"affected"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.EqualValues(t, 1, data.Affected)
	})
}

func TestSystemEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"database":"ok"`)

	// Generate a gate decision so the counter has a sample.
	s.do(t, http.MethodGet, "/api/query_user_menu", "", nil)

	rec, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "backoffice_gate_decisions_total")

	// Every response carries a request id.
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSwaggerDocs(t *testing.T) {
	s := newTestServer(t)

	// Served outside the Gate.
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Swagger string                    `json:"swagger"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, "2.0", doc.Swagger)
	require.Contains(t, doc.Paths, "/api/login")
	require.Contains(t, doc.Paths["/api/query_user_menu"], "get")
	require.Contains(t, doc.Paths["/api/user_list"], "post")
}
