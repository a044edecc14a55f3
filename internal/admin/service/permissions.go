package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/aussiebroadwan/backoffice/internal/admin/store"
)

// PermissionResolver computes the API paths a user may call. The result is
// embedded in the session token at login and not re-read per request.
type PermissionResolver struct {
	Store store.Store
}

// Resolve returns the sorted, distinct, non-empty API paths for userID.
// Members of the super admin role get every path registered on a menu.
func (r *PermissionResolver) Resolve(ctx context.Context, userID int64) ([]string, error) {
	super, err := r.Store.Users().IsSuperAdmin(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check super admin: %w", err)
	}

	var paths []string
	if super {
		paths, err = r.Store.Menus().AllAPIPaths(ctx)
	} else {
		paths, err = r.Store.Users().APIPaths(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load api paths: %w", err)
	}
	return normalizePaths(paths), nil
}

func normalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
