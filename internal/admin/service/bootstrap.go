package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

var ErrBootstrapAlready = errors.New("system already bootstrapped")

// generatedPasswordSize is the byte length of a generated admin password
// before encoding.
const generatedPasswordSize = 18

// BootstrapService creates the reserved super admin account on an empty
// database.
type BootstrapService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
}

type BootstrapRequest struct {
	Mobile   string
	UserName string

	// Password may be empty, in which case one is generated and returned.
	Password string
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates user domain.SuperAdminUserID holding the super admin role
// and returns the password it was given.
func (s *BootstrapService) Bootstrap(ctx context.Context, req BootstrapRequest) (string, error) {
	l := slogx.FromContext(ctx)

	if done, err := s.IsBootstrapped(ctx); err != nil {
		return "", err
	} else if done {
		return "", ErrBootstrapAlready
	}

	req.Mobile = strings.TrimSpace(req.Mobile)
	if req.Mobile == "" {
		return "", fmt.Errorf("%w: admin mobile is required", ErrInvalidInput)
	}
	if req.UserName == "" {
		req.UserName = "admin"
	}

	password := req.Password
	if password == "" {
		generated, err := cryptox.RandomString(generatedPasswordSize)
		if err != nil {
			return "", fmt.Errorf("generate admin password: %w", err)
		}
		password = generated
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		id, err := tx.Users().CreateUser(ctx, domain.User{
			ID:           domain.SuperAdminUserID,
			Mobile:       req.Mobile,
			UserName:     req.UserName,
			PasswordHash: hash,
			StatusID:     domain.StatusEnabled,
			Sort:         1,
			Remark:       "created at bootstrap",
		})
		if err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
		return tx.Users().ReplaceRoles(ctx, id, []int64{domain.SuperAdminRoleID})
	})
	if err != nil {
		return "", err
	}

	l.Info("bootstrapped super admin",
		slog.Int64("user_id", domain.SuperAdminUserID),
		slog.String("mobile", req.Mobile),
	)
	return password, nil
}
