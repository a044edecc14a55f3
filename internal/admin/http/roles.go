package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
)

// penultimateParentID marks tree nodes directly under the System directory;
// the role editor renders them as the last expandable level.
const penultimateParentID = 2

type RoleHandler struct {
	RoleService *service.RoleService
}

// List handles POST /api/role_list.
//
//	@Summary		List roles
//	@Tags			Roles
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		roleListReq	true	"Request body"
//	@Success		200	{object}	httpx.Page{data=[]roleData}	"One page of roles"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/role_list [post]
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	var req roleListReq
	if !decode(w, r, &req) {
		return
	}

	roles, total, err := h.RoleService.List(r.Context(), store.RoleFilter{
		PageRequest: req.toStore(),
		RoleName:    req.RoleName,
		StatusID:    req.StatusID.ptr(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	data := make([]roleData, len(roles))
	for i, role := range roles {
		data[i] = newRoleData(role)
	}
	httpx.WritePage(w, total, data)
}

// Save handles POST /api/role_save.
//
//	@Summary		Create role
//	@Tags			Roles
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		roleSaveReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope{data=idResp}	"New role id"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		409	{object}	httpx.Envelope	"Role name taken"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/role_save [post]
func (h *RoleHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req roleSaveReq
	if !decode(w, r, &req) {
		return
	}

	id, err := h.RoleService.Create(r.Context(), domain.Role{
		RoleName: req.RoleName,
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

// Update handles POST /api/role_update.
//
//	@Summary		Update role
//	@Tags			Roles
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		roleUpdateReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope	"Updated"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Failure		409	{object}	httpx.Envelope	"Role name taken"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/role_update [post]
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req roleUpdateReq
	if !decode(w, r, &req) {
		return
	}

	err := h.RoleService.Update(r.Context(), domain.Role{
		ID:       req.ID,
		RoleName: req.RoleName,
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

// Delete handles POST /api/role_delete.
//
//	@Summary		Delete roles
//	@Description	Fails as a whole when any role is still assigned or protected.
//	@Tags			Roles
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		idsReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope{data=affectedResp}	"Number of roles deleted"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		403	{object}	httpx.Envelope	"Super admin is protected"
//	@Failure		409	{object}	httpx.Envelope	"Role in use"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/role_delete [post]
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req idsReq
	if !decode(w, r, &req) {
		return
	}

	n, err := h.RoleService.Delete(r.Context(), req.IDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteOK(w, affectedResp{Affected: n})
}

// QueryMenus handles POST /api/query_role_menu.
//
//	@Summary		Menus of a role
//	@Description	Permission tree plus the menu ids granted to the role.
//	@Tags			Roles
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		queryRoleMenuReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope{data=queryRoleMenuResp}	"Menus"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/query_role_menu [post]
func (h *RoleHandler) QueryMenus(w http.ResponseWriter, r *http.Request) {
	var req queryRoleMenuReq
	if !decode(w, r, &req) {
		return
	}

	got, err := h.RoleService.Menus(r.Context(), req.RoleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := queryRoleMenuResp{
		RoleMenus: got.MenuIDs,
		MenuList:  make([]roleMenuNode, len(got.Menus)),
	}
	for i, m := range got.Menus {
		resp.MenuList[i] = roleMenuNode{
			ID:            m.ID,
			ParentID:      m.ParentID,
			Title:         m.MenuName,
			Key:           strconv.FormatInt(m.ID, 10),
			IsPenultimate: m.ParentID == penultimateParentID,
		}
	}
	httpx.WriteOK(w, resp)
}

// UpdateMenus handles POST /api/update_role_menu.
//
//	@Summary		Replace menus of a role
//	@Tags			Roles
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		updateRoleMenuReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope	"Updated"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/update_role_menu [post]
func (h *RoleHandler) UpdateMenus(w http.ResponseWriter, r *http.Request) {
	var req updateRoleMenuReq
	if !decode(w, r, &req) {
		return
	}

	if err := h.RoleService.SetMenus(r.Context(), req.RoleID, req.MenuIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteOK(w, nil)
}
