package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
)

type MenuHandler struct {
	MenuService *service.MenuService
}

// List handles POST /api/menu_list. The body is optional; menu_name filters
// by substring.
//
//	@Summary		List menus
//	@Tags			Menus
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		menuListReq	false	"Optional name filter"
//	@Success		200	{object}	httpx.Page{data=[]menuData}	"All matching menus"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/menu_list [post]
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	var req menuListReq
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	menus, err := h.MenuService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	data := make([]menuData, 0, len(menus))
	for _, m := range menus {
		if req.MenuName != "" && !strings.Contains(m.MenuName, req.MenuName) {
			continue
		}
		data = append(data, newMenuData(m))
	}
	httpx.WritePage(w, int64(len(data)), data)
}

// Save handles POST /api/menu_save.
//
//	@Summary		Create menu
//	@Tags			Menus
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		menuSaveReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope{data=idResp}	"New menu id"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body, invalid input or unknown parent"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/menu_save [post]
func (h *MenuHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req menuSaveReq
	if !decode(w, r, &req) {
		return
	}

	id, err := h.MenuService.Create(r.Context(), req.toDomain(0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteOK(w, idResp{ID: id})
}

// Update handles POST /api/menu_update.
//
//	@Summary		Update menu
//	@Tags			Menus
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		menuUpdateReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope	"Updated"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/menu_update [post]
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req menuUpdateReq
	if !decode(w, r, &req) {
		return
	}

	if err := h.MenuService.Update(r.Context(), req.toDomain(req.ID)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteOK(w, nil)
}

// Delete handles POST /api/menu_delete.
//
//	@Summary		Delete menus
//	@Description	Fails when a menu still has children.
//	@Tags			Menus
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		idsReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope{data=affectedResp}	"Number of menus deleted"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing, invalid or unpermitted token"
//	@Failure		409	{object}	httpx.Envelope	"Menu has children"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/menu_delete [post]
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req idsReq
	if !decode(w, r, &req) {
		return
	}

	n, err := h.MenuService.Delete(r.Context(), req.IDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteOK(w, affectedResp{Affected: n})
}
