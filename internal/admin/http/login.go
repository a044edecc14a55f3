package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
)

type LoginHandler struct {
	LoginService *service.LoginService
}

// ServeHTTP handles POST /api/login. The only /api route reachable without
// a token.
//
//	@Summary		Log in
//	@Description	Exchanges mobile and password for a bearer token. Repeated failures lock the account for a cool-down period.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginReq	true	"Request body"
//	@Success		200	{object}	httpx.Envelope{data=loginResp}	"Token issued"
//	@Failure		400	{object}	httpx.Envelope	"Malformed body or invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Wrong mobile or password"
//	@Failure		403	{object}	httpx.Envelope	"Account disabled or without permissions"
//	@Failure		429	{object}	httpx.Envelope	"Too many attempts, see Retry-After"
//	@Failure		500	{object}	httpx.Envelope	"Internal error"
//	@Router			/api/login [post]
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decode(w, r, &req) {
		return
	}

	req.Mobile = strings.TrimSpace(req.Mobile)
	if req.Mobile == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "mobile and password are required")
		return
	}

	res, err := h.LoginService.Login(r.Context(), req.Mobile, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteOK(w, loginResp{Token: res.Token})
}
