package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	// ErrBadReference is returned when a link points at a missing row.
	ErrBadReference = errors.New("store: referenced record does not exist")
)

// Store is the root data access interface. Sub-repositories keep concerns
// tidy and make it awkward to open a transaction inside a transaction.
type Store interface {
	Users() Users
	Roles() Roles
	Menus() Menus

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// PageRequest is 1-based. A zero PageSize means DefaultPageSize.
type PageRequest struct {
	PageNo   int
	PageSize int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 500
)

// Normalize clamps the request into a valid range.
func (p PageRequest) Normalize() PageRequest {
	if p.PageNo < 1 {
		p.PageNo = 1
	}
	switch {
	case p.PageSize <= 0:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int { return (p.PageNo - 1) * p.PageSize }

type UserFilter struct {
	PageRequest
	Mobile   string // exact match when set
	StatusID *int
}

type RoleFilter struct {
	PageRequest
	RoleName string // substring match when set
	StatusID *int
}

type Users interface {
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByMobile is the login lookup.
	GetUserByMobile(ctx context.Context, mobile string) (domain.User, error)

	// ListUsers returns one page and the total number of matches.
	ListUsers(ctx context.Context, f UserFilter) ([]domain.User, int64, error)

	// CreateUser inserts u and returns its id. Duplicate mobiles fail with
	// ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) (int64, error)

	// UpdateUser changes profile fields; the password hash is left alone.
	UpdateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error

	// DeleteUsers removes the given users and their role links.
	DeleteUsers(ctx context.Context, ids []int64) (int64, error)

	IsEmpty(ctx context.Context) (bool, error)

	RoleIDs(ctx context.Context, userID int64) ([]int64, error)

	// ReplaceRoles swaps the user's role set. Call it inside a transaction.
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error

	// IsSuperAdmin reports membership of domain.SuperAdminRoleID.
	IsSuperAdmin(ctx context.Context, userID int64) (bool, error)

	// APIPaths returns the distinct non-empty menu API paths reachable
	// through any of the user's roles.
	APIPaths(ctx context.Context, userID int64) ([]string, error)

	// Menus returns the distinct menus reachable through the user's roles.
	Menus(ctx context.Context, userID int64) ([]domain.Menu, error)
}

type Roles interface {
	GetRoleByID(ctx context.Context, id int64) (domain.Role, error)
	ListRoles(ctx context.Context, f RoleFilter) ([]domain.Role, int64, error)
	ListAllRoles(ctx context.Context) ([]domain.Role, error)
	CreateRole(ctx context.Context, r domain.Role) (int64, error)
	UpdateRole(ctx context.Context, r domain.Role) error
	DeleteRoles(ctx context.Context, ids []int64) (int64, error)

	// CountUsers counts user links to any of the given roles.
	CountUsers(ctx context.Context, roleIDs []int64) (int64, error)

	MenuIDs(ctx context.Context, roleID int64) ([]int64, error)

	// ReplaceMenus swaps the role's menu set. Call it inside a transaction.
	ReplaceMenus(ctx context.Context, roleID int64, menuIDs []int64) error
}

type Menus interface {
	GetMenuByID(ctx context.Context, id int64) (domain.Menu, error)

	// ListAllMenus returns every menu ordered by sort then id.
	ListAllMenus(ctx context.Context) ([]domain.Menu, error)
	ListMenusByIDs(ctx context.Context, ids []int64) ([]domain.Menu, error)
	CreateMenu(ctx context.Context, m domain.Menu) (int64, error)
	UpdateMenu(ctx context.Context, m domain.Menu) error
	DeleteMenu(ctx context.Context, id int64) error
	CountChildren(ctx context.Context, id int64) (int64, error)

	// AllAPIPaths returns every distinct non-empty API path on any menu.
	AllAPIPaths(ctx context.Context) ([]string, error)
}
