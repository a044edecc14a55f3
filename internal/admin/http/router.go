package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/cachex"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
	"github.com/aussiebroadwan/backoffice/pkg/metricsx"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"

	_ "github.com/aussiebroadwan/backoffice/api/admin" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// DefaultLoginPath is the only /api path served without a token.
const DefaultLoginPath = "/api/login"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	tokens       httpx.TokenService
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store   store.Store
	cache   cachex.Cache
	metrics *metricsx.Metrics // optional

	LoginPath  string
	LoginLimit httpx.RateLimitConfig
	APILimit   httpx.RateLimitConfig

	LoginService *service.LoginService
	UserService  *service.UserService
	RoleService  *service.RoleService
	MenuService  *service.MenuService
}

func NewRouter(
	tokens httpx.TokenService,
	st store.Store,
	cache cachex.Cache,
	metrics *metricsx.Metrics,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		tokens:       tokens,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		cache:        cache,
		metrics:      metrics,
		LoginPath:    DefaultLoginPath,
		LoginLimit:   httpx.LoginLimit,
		APILimit:     httpx.APILimit,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAPI()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			BarTab Back Office API
//	@version		0.1.0
//	@description	Users, roles and menus for the admin console. Every /api route except login requires a bearer token whose permission list contains the route path.
//	@description
//	@description				Tokens close to expiry are re-issued in the Authorization response header.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/backoffice
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// registerAPI mounts the /api subtree behind the Request Gate. Only the
// login path is let through without a token.
func (r *Router) registerAPI() {
	api := http.NewServeMux()

	login := &LoginHandler{LoginService: r.LoginService}
	api.Handle("POST "+r.LoginPath,
		httpx.Chain(login,
			httpx.RateLimitByIP(r.LoginLimit),
		),
	)

	users := &UserHandler{UserService: r.UserService}
	api.HandleFunc("POST /api/user_list", users.List)
	api.HandleFunc("POST /api/user_save", users.Save)
	api.HandleFunc("POST /api/user_update", users.Update)
	api.HandleFunc("POST /api/user_delete", users.Delete)
	api.HandleFunc("POST /api/query_user_role", users.QueryRoles)
	api.HandleFunc("POST /api/update_user_role", users.UpdateRoles)
	api.HandleFunc("POST /api/update_user_password", users.UpdatePassword)
	api.HandleFunc("GET /api/query_user_menu", users.QueryMenu)

	roles := &RoleHandler{RoleService: r.RoleService}
	api.HandleFunc("POST /api/role_list", roles.List)
	api.HandleFunc("POST /api/role_save", roles.Save)
	api.HandleFunc("POST /api/role_update", roles.Update)
	api.HandleFunc("POST /api/role_delete", roles.Delete)
	api.HandleFunc("POST /api/query_role_menu", roles.QueryMenus)
	api.HandleFunc("POST /api/update_role_menu", roles.UpdateMenus)

	menus := &MenuHandler{MenuService: r.MenuService}
	api.HandleFunc("POST /api/menu_list", menus.List)
	api.HandleFunc("POST /api/menu_save", menus.Save)
	api.HandleFunc("POST /api/menu_update", menus.Update)
	api.HandleFunc("POST /api/menu_delete", menus.Delete)

	gate := httpx.GateConfig{
		Tokens:    r.tokens,
		LoginPath: r.LoginPath,
	}
	if r.metrics != nil {
		gate.OnDecision = func(d httpx.Decision, refreshed bool) {
			r.metrics.RecordGate(string(d), refreshed)
		}
	}

	r.Mux.Handle("/api/", httpx.Chain(api,
		httpx.Gate(gate),
		httpx.RateLimitByUser(r.APILimit),
	))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /status", StatusHandler(r.startTime, r.buildVersion, r.store, r.cache))
	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
