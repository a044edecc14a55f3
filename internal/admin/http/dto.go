package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
)

// timeLayout is how record timestamps are rendered.
const timeLayout = "2006-01-02 15:04:05"

// optionalInt accepts a JSON number, a numeric string, "" or null. The admin
// UI sends select values as strings and "" for "any".
type optionalInt struct {
	Value int
	Set   bool
}

func (o *optionalInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*o = optionalInt{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*o = optionalInt{}
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("expected an integer, got %s", b)
	}
	*o = optionalInt{Value: n, Set: true}
	return nil
}

func (o optionalInt) ptr() *int {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

type pageReq struct {
	Current  int `json:"current"`
	PageSize int `json:"pageSize"`
}

func (p pageReq) toStore() store.PageRequest {
	return store.PageRequest{PageNo: p.Current, PageSize: p.PageSize}
}

type idsReq struct {
	IDs []int64 `json:"ids"`
}

type idResp struct {
	ID int64 `json:"id"`
}

type affectedResp struct {
	Affected int64 `json:"affected"`
}

// Login

type loginReq struct {
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type loginResp struct {
	Token string `json:"token"`
}

// Users

type userListReq struct {
	pageReq
	Mobile   string      `json:"mobile"`
	StatusID optionalInt `json:"status_id" swaggertype:"integer"`
}

type userData struct {
	ID         int64  `json:"id"`
	Mobile     string `json:"mobile"`
	UserName   string `json:"user_name"`
	StatusID   int    `json:"status_id"`
	Sort       int    `json:"sort"`
	Remark     string `json:"remark"`
	CreateTime string `json:"create_time"`
	UpdateTime string `json:"update_time"`
}

func newUserData(u domain.User) userData {
	return userData{
		ID:         u.ID,
		Mobile:     u.Mobile,
		UserName:   u.UserName,
		StatusID:   u.StatusID,
		Sort:       u.Sort,
		Remark:     u.Remark,
		CreateTime: formatTime(u.CreatedAt),
		UpdateTime: formatTime(u.UpdatedAt),
	}
}

type userSaveReq struct {
	Mobile   string `json:"mobile"`
	UserName string `json:"user_name"`
	Password string `json:"password"`
	StatusID int    `json:"status_id"`
	Sort     int    `json:"sort"`
	Remark   string `json:"remark"`
}

type userUpdateReq struct {
	ID       int64  `json:"id"`
	Mobile   string `json:"mobile"`
	UserName string `json:"user_name"`
	StatusID int    `json:"status_id"`
	Sort     int    `json:"sort"`
	Remark   string `json:"remark"`
}

type queryUserRoleReq struct {
	UserID int64 `json:"user_id"`
}

type queryUserRoleResp struct {
	SysRoleList []roleData `json:"sys_role_list"`
	UserRoleIDs []int64    `json:"user_role_ids"`
}

type updateUserRoleReq struct {
	UserID  int64   `json:"user_id"`
	RoleIDs []int64 `json:"role_ids"`
}

type updatePasswordReq struct {
	// ID defaults to the signed-in user.
	ID          int64  `json:"id"`
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

type userMenuItem struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	APIURL   string `json:"api_url"`
	MenuType int    `json:"menu_type"`
	Icon     string `json:"icon"`
}

type queryUserMenuResp struct {
	SysMenu []userMenuItem `json:"sys_menu"`
	BtnMenu []string       `json:"btn_menu"`
	Name    string         `json:"name"`
}

// Roles

type roleListReq struct {
	pageReq
	RoleName string      `json:"role_name"`
	StatusID optionalInt `json:"status_id" swaggertype:"integer"`
}

type roleData struct {
	ID         int64  `json:"id"`
	Sort       int    `json:"sort"`
	StatusID   int    `json:"status_id"`
	RoleName   string `json:"role_name"`
	Remark     string `json:"remark"`
	CreateTime string `json:"create_time"`
	UpdateTime string `json:"update_time"`
}

func newRoleData(r domain.Role) roleData {
	return roleData{
		ID:         r.ID,
		Sort:       r.Sort,
		StatusID:   r.StatusID,
		RoleName:   r.RoleName,
		Remark:     r.Remark,
		CreateTime: formatTime(r.CreatedAt),
		UpdateTime: formatTime(r.UpdatedAt),
	}
}

type roleSaveReq struct {
	RoleName string `json:"role_name"`
	Sort     int    `json:"sort"`
	StatusID int    `json:"status_id"`
	Remark   string `json:"remark"`
}

type roleUpdateReq struct {
	ID int64 `json:"id"`
	roleSaveReq
}

type queryRoleMenuReq struct {
	RoleID int64 `json:"role_id"`
}

// roleMenuNode is one entry of the permission tree shown when editing a role.
type roleMenuNode struct {
	ID            int64  `json:"id"`
	ParentID      int64  `json:"parent_id"`
	Title         string `json:"title"`
	Key           string `json:"key"`
	IsPenultimate bool   `json:"isPenultimate"`
}

type queryRoleMenuResp struct {
	RoleMenus []int64        `json:"role_menus"`
	MenuList  []roleMenuNode `json:"menu_list"`
}

type updateRoleMenuReq struct {
	RoleID  int64   `json:"role_id"`
	MenuIDs []int64 `json:"menu_ids"`
}

// Menus

type menuListReq struct {
	MenuName string `json:"menu_name"`
}

type menuData struct {
	ID         int64  `json:"id"`
	Sort       int    `json:"sort"`
	StatusID   int    `json:"status_id"`
	ParentID   int64  `json:"parent_id"`
	MenuName   string `json:"menu_name"`
	MenuURL    string `json:"menu_url"`
	Icon       string `json:"icon"`
	APIURL     string `json:"api_url"`
	Remark     string `json:"remark"`
	MenuType   int    `json:"menu_type"`
	CreateTime string `json:"create_time"`
	UpdateTime string `json:"update_time"`
}

func newMenuData(m domain.Menu) menuData {
	return menuData{
		ID:         m.ID,
		Sort:       m.Sort,
		StatusID:   m.StatusID,
		ParentID:   m.ParentID,
		MenuName:   m.MenuName,
		MenuURL:    m.MenuURL,
		Icon:       m.MenuIcon,
		APIURL:     m.APIURL,
		Remark:     m.Remark,
		MenuType:   int(m.MenuType),
		CreateTime: formatTime(m.CreatedAt),
		UpdateTime: formatTime(m.UpdatedAt),
	}
}

type menuSaveReq struct {
	Sort     int    `json:"sort"`
	StatusID int    `json:"status_id"`
	ParentID int64  `json:"parent_id"`
	MenuName string `json:"menu_name"`
	MenuURL  string `json:"menu_url"`
	Icon     string `json:"icon"`
	APIURL   string `json:"api_url"`
	Remark   string `json:"remark"`
	MenuType int    `json:"menu_type"`
}

func (m menuSaveReq) toDomain(id int64) domain.Menu {
	return domain.Menu{
		ID:       id,
		ParentID: m.ParentID,
		MenuName: m.MenuName,
		MenuURL:  m.MenuURL,
		MenuIcon: m.Icon,
		APIURL:   m.APIURL,
		MenuType: domain.MenuType(m.MenuType),
		StatusID: m.StatusID,
		Sort:     m.Sort,
		Remark:   m.Remark,
	}
}

type menuUpdateReq struct {
	ID int64 `json:"id"`
	menuSaveReq
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
