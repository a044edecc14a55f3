package http

import (
	"net/http"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
)

type UserHandler struct {
	UserService *service.UserService
}

// List handles POST /api/user_list.
//
//	@Summary		List users
//	@Description	Paginated, filtered by mobile prefix and status.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		userListReq	true	"Request body"
//	@Success		200	{object}	httpx.Page{data=[]userData}	"One page of users"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/user_list [post]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var req userListReq
	if !decode(w, r, &req) {
		return
	}

	users, total, err := h.UserService.List(r.Context(), store.UserFilter{
		PageRequest: req.toStore(),
		Mobile:      req.Mobile,
		StatusID:    req.StatusID.ptr(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	data := make([]userData, len(users))
	for i, u := range users {
		data[i] = newUserData(u)
	}
	httpx.WritePage(w, total, data)
}

// Save handles POST /api/user_save.
//
//	@Summary		Create user
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		userSaveReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope{data=idResp}	"New user id"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		409	{object}	httpx.Envelope	"Mobile already registered"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/user_save [post]
func (h *UserHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req userSaveReq
	if !decode(w, r, &req) {
		return
	}

	id, err := h.UserService.Create(r.Context(), service.NewUser{
		Mobile:   req.Mobile,
		UserName: req.UserName,
		Password: req.Password,
		StatusID: req.StatusID,
		Sort:     req.Sort,
		Remark:   req.Remark,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteOK(w, idResp{ID: id})
}

// Update handles POST /api/user_update.
//
//	@Summary		Update user
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		userUpdateReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope	"Updated"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		403	{object}	httpx.Envelope	"Super admin is protected"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Failure		409	{object}	httpx.Envelope	"Mobile already registered"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/user_update [post]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req userUpdateReq
	if !decode(w, r, &req) {
		return
	}

	err := h.UserService.Update(r.Context(), domain.User{
		ID:       req.ID,
		Mobile:   req.Mobile,
		UserName: req.UserName,
		StatusID: req.StatusID,
		Sort:     req.Sort,
		Remark:   req.Remark,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteOK(w, nil)
}

// Delete handles POST /api/user_delete.
//
//	@Summary		Delete users
//	@Description	The super admin is skipped silently.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		idsReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope{data=affectedResp}	"Number of users deleted"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/user_delete [post]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req idsReq
	if !decode(w, r, &req) {
		return
	}

	n, err := h.UserService.Delete(r.Context(), req.IDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteOK(w, affectedResp{Affected: n})
}

// QueryRoles handles POST /api/query_user_role.
//
//	@Summary		Roles of a user
//	@Description	All roles plus the ids assigned to the user.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		queryUserRoleReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope{data=queryUserRoleResp}	"Roles"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/query_user_role [post]
func (h *UserHandler) QueryRoles(w http.ResponseWriter, r *http.Request) {
	var req queryUserRoleReq
	if !decode(w, r, &req) {
		return
	}

	got, err := h.UserService.Roles(r.Context(), req.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := queryUserRoleResp{
		SysRoleList: make([]roleData, len(got.Roles)),
		UserRoleIDs: got.RoleIDs,
	}
	for i, role := range got.Roles {
		resp.SysRoleList[i] = newRoleData(role)
	}
	httpx.WriteOK(w, resp)
}

// UpdateRoles handles POST /api/update_user_role.
//
//	@Summary		Replace roles of a user
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		updateUserRoleReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope	"Updated"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		403	{object}	httpx.Envelope	"Super admin is protected"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/update_user_role [post]
func (h *UserHandler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	var req updateUserRoleReq
	if !decode(w, r, &req) {
		return
	}

	if err := h.UserService.SetRoles(r.Context(), req.UserID, req.RoleIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteOK(w, nil)
}

// UpdatePassword handles POST /api/update_user_password.
//
//	@Summary		Change password
//	@Description	Defaults to the signed-in user when id is omitted.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		updatePasswordReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope	"Changed"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body, invalid input or wrong current password"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/update_user_password [post]
func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordReq
	if !decode(w, r, &req) {
		return
	}

	if req.ID == 0 {
		req.ID, _ = httpx.UserIDFromContext(r.Context())
	}

	if err := h.UserService.ChangePassword(r.Context(), req.ID, req.Password, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteOK(w, nil)
}

// QueryMenu handles GET /api/query_user_menu for the signed-in user.
//
//	@Summary		Menu of the signed-in user
//	@Description	Navigation tree and permitted API paths.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Envelope{data=queryUserMenuResp}	"Menu"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/query_user_menu [get]
func (h *UserHandler) QueryMenu(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	menu, err := h.UserService.Menu(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := queryUserMenuResp{
		SysMenu: make([]userMenuItem, len(menu.Menus)),
		BtnMenu: menu.APIs,
		Name:    menu.UserName,
	}
	for i, m := range menu.Menus {
		resp.SysMenu[i] = userMenuItem{
			ID:       m.ID,
			ParentID: m.ParentID,
			Name:     m.MenuName,
			Path:     m.MenuURL,
			APIURL:   m.APIURL,
			MenuType: int(m.MenuType),
			Icon:     m.MenuIcon,
		}
	}
	httpx.WriteOK(w, resp)
}
