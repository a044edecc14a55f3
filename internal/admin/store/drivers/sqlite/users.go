package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
)

type usersRepo struct {
	db DBTX
}

const userColumns = `id, mobile, user_name, password_hash, status_id, sort, remark, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Mobile,
		&u.UserName,
		&u.PasswordHash,
		&u.StatusID,
		&u.Sort,
		&u.Remark,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM sys_user WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByMobile(ctx context.Context, mobile string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM sys_user WHERE mobile = ?`, mobile)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) ListUsers(ctx context.Context, f store.UserFilter) ([]domain.User, int64, error) {
	page := f.PageRequest.Normalize()

	var (
		conds []string
		args  []any
	)
	if f.Mobile != "" {
		conds = append(conds, "mobile = ?")
		args = append(args, f.Mobile)
	}
	if f.StatusID != nil {
		conds = append(conds, "status_id = ?")
		args = append(args, *f.StatusID)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sys_user`+where(conds), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM sys_user`+where(conds)+` ORDER BY sort, id LIMIT ? OFFSET ?`,
		append(args, page.PageSize, page.Offset())...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	now := time.Now().UTC()

	// An explicit id is honoured so bootstrap can claim the reserved account.
	var id any
	if u.ID != 0 {
		id = u.ID
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sys_user (id, mobile, user_name, password_hash, status_id, sort, remark, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, u.Mobile, u.UserName, u.PasswordHash, u.StatusID, u.Sort, u.Remark, now, now,
	)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE sys_user SET mobile = ?, user_name = ?, status_id = ?, sort = ?, remark = ?, updated_at = ?
		 WHERE id = ?`,
		u.Mobile, u.UserName, u.StatusID, u.Sort, u.Remark, time.Now().UTC(), u.ID,
	))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE sys_user SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), userID,
	))
}

func (r *usersRepo) DeleteUsers(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inArgs(ids)
	res, err := r.db.ExecContext(ctx, `DELETE FROM sys_user WHERE id IN (`+in+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sys_user`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

func (r *usersRepo) RoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role_id FROM sys_user_role WHERE user_id = ? ORDER BY role_id`, userID)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

func (r *usersRepo) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sys_user_role WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO sys_user_role (user_id, role_id) VALUES (?, ?)`, userID, roleID,
		); err != nil {
			return mapConstraint(err)
		}
	}
	return nil
}

func (r *usersRepo) IsSuperAdmin(ctx context.Context, userID int64) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sys_user_role WHERE user_id = ? AND role_id = ?`,
		userID, domain.SuperAdminRoleID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *usersRepo) APIPaths(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT m.api_url
		   FROM sys_user_role ur
		   JOIN sys_role_menu rm ON rm.role_id = ur.role_id
		   JOIN sys_menu m ON m.id = rm.menu_id
		  WHERE ur.user_id = ? AND m.api_url <> ''
		  ORDER BY m.api_url`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func (r *usersRepo) Menus(ctx context.Context, userID int64) ([]domain.Menu, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+prefixed("m.", menuColumns)+`
		   FROM sys_menu m
		  WHERE m.id IN (
		        SELECT rm.menu_id
		          FROM sys_user_role ur
		          JOIN sys_role_menu rm ON rm.role_id = ur.role_id
		         WHERE ur.user_id = ?)
		  ORDER BY m.sort, m.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return scanMenus(rows)
}
