package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

type UserService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
}

// NewUser is the input for UserService.Create.
type NewUser struct {
	Mobile   string
	UserName string
	Password string
	StatusID int
	Sort     int
	Remark   string
}

// UserRoles lists every role alongside the ids held by one user.
type UserRoles struct {
	Roles   []domain.Role
	RoleIDs []int64
}

// UserMenu is the navigation for the signed-in user: the visible menu tree
// (pages and directories plus their parents) and every API path reachable.
type UserMenu struct {
	UserName string
	Menus    []domain.Menu
	APIs     []string
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *UserService) List(ctx context.Context, f store.UserFilter) ([]domain.User, int64, error) {
	return s.Store.Users().ListUsers(ctx, f)
}

func (s *UserService) Create(ctx context.Context, in NewUser) (int64, error) {
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.UserName = strings.TrimSpace(in.UserName)
	switch {
	case in.Mobile == "":
		return 0, fmt.Errorf("%w: mobile is required", ErrInvalidInput)
	case in.UserName == "":
		return 0, fmt.Errorf("%w: user_name is required", ErrInvalidInput)
	case in.Password == "":
		return 0, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.Store.Users().CreateUser(ctx, domain.User{
		Mobile:       in.Mobile,
		UserName:     in.UserName,
		PasswordHash: hash,
		StatusID:     in.StatusID,
		Sort:         in.Sort,
		Remark:       in.Remark,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return 0, ErrMobileTaken
	}
	if err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("user created", slog.Int64("user_id", id))
	return id, nil
}

// Update changes profile fields. Passwords go through ChangePassword.
func (s *UserService) Update(ctx context.Context, u domain.User) error {
	u.Mobile = strings.TrimSpace(u.Mobile)
	u.UserName = strings.TrimSpace(u.UserName)
	if u.Mobile == "" || u.UserName == "" {
		return fmt.Errorf("%w: mobile and user_name are required", ErrInvalidInput)
	}
	if u.ID == domain.SuperAdminUserID && u.StatusID != domain.StatusEnabled {
		return ErrSuperAdminProtected
	}

	err := s.Store.Users().UpdateUser(ctx, u)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrMobileTaken
	}
	return err
}

// Delete removes the given users. The super admin account is silently
// skipped.
func (s *UserService) Delete(ctx context.Context, ids []int64) (int64, error) {
	ids = slices.DeleteFunc(slices.Clone(ids), func(id int64) bool {
		return id == domain.SuperAdminUserID
	})
	n, err := s.Store.Users().DeleteUsers(ctx, ids)
	if err != nil {
		return 0, err
	}
	slogx.FromContext(ctx).Info("users deleted", slog.Any("ids", ids), slog.Int64("deleted", n))
	return n, nil
}

func (s *UserService) Roles(ctx context.Context, userID int64) (UserRoles, error) {
	roles, err := s.Store.Roles().ListAllRoles(ctx)
	if err != nil {
		return UserRoles{}, err
	}
	ids, err := s.Store.Users().RoleIDs(ctx, userID)
	if err != nil {
		return UserRoles{}, err
	}
	return UserRoles{Roles: roles, RoleIDs: ids}, nil
}

// SetRoles replaces the user's roles. The super admin account is refused.
func (s *UserService) SetRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if userID == domain.SuperAdminUserID {
		return ErrSuperAdminProtected
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByID(ctx, userID); err != nil {
			return err
		}
		return tx.Users().ReplaceRoles(ctx, userID, roleIDs)
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrBadReference):
		return ErrUnknownReference
	case err != nil:
		return err
	}

	slogx.FromContext(ctx).Info("user roles replaced", slog.Int64("user_id", userID), slog.Any("role_ids", roleIDs))
	return nil
}

// ChangePassword checks the current password before storing the new one.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}

	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Hasher.Verify(current, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return ErrWrongPassword
		}
		return err
	}

	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password changed", slog.Int64("user_id", userID))
	return nil
}

// Menu builds the navigation for userID. Super admins see every menu.
func (s *UserService) Menu(ctx context.Context, userID int64) (UserMenu, error) {
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return UserMenu{}, err
	}

	super, err := s.Store.Users().IsSuperAdmin(ctx, userID)
	if err != nil {
		return UserMenu{}, err
	}

	var reachable []domain.Menu
	if super {
		reachable, err = s.Store.Menus().ListAllMenus(ctx)
	} else {
		reachable, err = s.Store.Users().Menus(ctx, userID)
	}
	if err != nil {
		return UserMenu{}, err
	}

	var (
		visible []int64
		apis    []string
	)
	for _, m := range reachable {
		if m.MenuType != domain.MenuTypeButton {
			visible = append(visible, m.ID)
			if m.ParentID != 0 {
				visible = append(visible, m.ParentID)
			}
		}
		apis = append(apis, m.APIURL)
	}
	slices.Sort(visible)
	visible = slices.Compact(visible)

	menus, err := s.Store.Menus().ListMenusByIDs(ctx, visible)
	if err != nil {
		return UserMenu{}, err
	}

	return UserMenu{
		UserName: u.UserName,
		Menus:    menus,
		APIs:     normalizePaths(apis),
	}, nil
}
