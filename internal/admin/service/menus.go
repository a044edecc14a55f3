package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

type MenuService struct {
	Store store.Store
}

func (s *MenuService) List(ctx context.Context) ([]domain.Menu, error) {
	return s.Store.Menus().ListAllMenus(ctx)
}

func (s *MenuService) Create(ctx context.Context, m domain.Menu) (int64, error) {
	if err := s.validate(ctx, m); err != nil {
		return 0, err
	}

	id, err := s.Store.Menus().CreateMenu(ctx, m)
	if err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("menu created", slog.Int64("menu_id", id), slog.String("api_url", m.APIURL))
	return id, nil
}

func (s *MenuService) Update(ctx context.Context, m domain.Menu) error {
	if m.ParentID == m.ID {
		return fmt.Errorf("%w: a menu cannot be its own parent", ErrInvalidInput)
	}
	if err := s.validate(ctx, m); err != nil {
		return err
	}

	err := s.Store.Menus().UpdateMenu(ctx, m)
	if errors.Is(err, store.ErrNotFound) {
		return ErrMenuNotFound
	}
	return err
}

// Delete removes leaf menus. A menu with children stops the whole batch.
// Unknown ids are ignored.
func (s *MenuService) Delete(ctx context.Context, ids []int64) (int64, error) {
	var deleted int64
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, id := range ids {
			children, err := tx.Menus().CountChildren(ctx, id)
			if err != nil {
				return err
			}
			if children > 0 {
				return fmt.Errorf("%w: menu %d", ErrMenuHasChildren, id)
			}

			err = tx.Menus().DeleteMenu(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("menus deleted", slog.Any("ids", ids), slog.Int64("deleted", deleted))
	return deleted, nil
}

func (s *MenuService) validate(ctx context.Context, m domain.Menu) error {
	if strings.TrimSpace(m.MenuName) == "" {
		return fmt.Errorf("%w: menu_name is required", ErrInvalidInput)
	}
	switch m.MenuType {
	case domain.MenuTypeDirectory, domain.MenuTypePage, domain.MenuTypeButton:
	default:
		return fmt.Errorf("%w: menu_type must be 1, 2 or 3", ErrInvalidInput)
	}
	if m.APIURL != "" && !strings.HasPrefix(m.APIURL, "/") {
		return fmt.Errorf("%w: api_url must be an absolute path", ErrInvalidInput)
	}
	if m.ParentID != 0 {
		if _, err := s.Store.Menus().GetMenuByID(ctx, m.ParentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrParentNotFound
			}
			return err
		}
	}
	return nil
}
