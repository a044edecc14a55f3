//go:build integration

package admin_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGateRejections(t *testing.T) {
	base := setupAdmin(t, setupRedis(t), defaultOptions())
	token := login(t, base, adminMobile, adminPassword)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage", "garbage"},
		{"tampered signature", token[:strings.LastIndex(token, ".")+1] + "AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := call(t, http.MethodPost, base+"/api/user_list", tt.token, map[string]any{})
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.Equal(t, "unauthorized", env.Msg)
		})
	}
}

// TestPermissionsFollowRoles grants a role one menu and checks that a member
// reaches exactly that endpoint.
func TestPermissionsFollowRoles(t *testing.T) {
	base := setupAdmin(t, setupRedis(t), defaultOptions())
	admin := login(t, base, adminMobile, adminPassword)

	resp, env := call(t, http.MethodPost, base+"/api/role_save", admin, map[string]any{"role_name": "auditor", "status_id": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Msg)
	var role struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &role))

	resp, _ = call(t, http.MethodPost, base+"/api/update_role_menu", admin, map[string]any{"role_id": role.ID, "menu_ids": []int64{3}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = call(t, http.MethodPost, base+"/api/user_save", admin, map[string]any{
		"mobile": "+61411111111", "user_name": "auditor", "password": "Audit123!", "status_id": 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Msg)
	var user struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))

	resp, _ = call(t, http.MethodPost, base+"/api/update_user_role", admin, map[string]any{"user_id": user.ID, "role_ids": []int64{role.ID}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	auditor := login(t, base, "+61411111111", "Audit123!")

	resp, env = call(t, http.MethodPost, base+"/api/user_list", auditor, map[string]any{"current": 1, "pageSize": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, env.Total)

	resp, _ = call(t, http.MethodPost, base+"/api/user_delete", auditor, map[string]any{"ids": []int64{user.ID}})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	base := setupAdmin(t, setupRedis(t), defaultOptions())

	resp, err := http.Get(base + "/livez")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body.Checks["database"])
	require.Equal(t, "ok", body.Checks["cache"])
}
