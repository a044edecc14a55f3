package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
)

type rolesRepo struct {
	db DBTX
}

const roleColumns = `id, role_name, status_id, sort, remark, created_at, updated_at`

func scanRole(row interface{ Scan(...any) error }) (domain.Role, error) {
	var r domain.Role
	err := row.Scan(&r.ID, &r.RoleName, &r.StatusID, &r.Sort, &r.Remark, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id int64) (domain.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM sys_role WHERE id = ?`, id))
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func (r *rolesRepo) ListRoles(ctx context.Context, f store.RoleFilter) ([]domain.Role, int64, error) {
	page := f.PageRequest.Normalize()

	var (
		conds []string
		args  []any
	)
	if f.RoleName != "" {
		conds = append(conds, "role_name LIKE ?")
		args = append(args, "%"+f.RoleName+"%")
	}
	if f.StatusID != nil {
		conds = append(conds, "status_id = ?")
		args = append(args, *f.StatusID)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sys_role`+where(conds), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM sys_role`+where(conds)+` ORDER BY sort, id LIMIT ? OFFSET ?`,
		append(args, page.PageSize, page.Offset())...,
	)
	if err != nil {
		return nil, 0, err
	}
	roles, err := collectRoles(rows)
	return roles, total, err
}

func (r *rolesRepo) ListAllRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM sys_role ORDER BY sort, id`)
	if err != nil {
		return nil, err
	}
	return collectRoles(rows)
}

func collectRoles(rows *sql.Rows) ([]domain.Role, error) {
	defer rows.Close()

	roles := []domain.Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sys_role (role_name, status_id, sort, remark, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		role.RoleName, role.StatusID, role.Sort, role.Remark, now, now,
	)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func (r *rolesRepo) UpdateRole(ctx context.Context, role domain.Role) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE sys_role SET role_name = ?, status_id = ?, sort = ?, remark = ?, updated_at = ? WHERE id = ?`,
		role.RoleName, role.StatusID, role.Sort, role.Remark, time.Now().UTC(), role.ID,
	))
}

func (r *rolesRepo) DeleteRoles(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inArgs(ids)
	res, err := r.db.ExecContext(ctx, `DELETE FROM sys_role WHERE id IN (`+in+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *rolesRepo) CountUsers(ctx context.Context, roleIDs []int64) (int64, error) {
	if len(roleIDs) == 0 {
		return 0, nil
	}
	in, args := inArgs(roleIDs)
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sys_user_role WHERE role_id IN (`+in+`)`, args...).Scan(&n)
	return n, err
}

func (r *rolesRepo) MenuIDs(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT menu_id FROM sys_role_menu WHERE role_id = ? ORDER BY menu_id`, roleID)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

func (r *rolesRepo) ReplaceMenus(ctx context.Context, roleID int64, menuIDs []int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sys_role_menu WHERE role_id = ?`, roleID); err != nil {
		return err
	}
	for _, menuID := range menuIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO sys_role_menu (role_id, menu_id) VALUES (?, ?)`, roleID, menuID,
		); err != nil {
			return mapConstraint(err)
		}
	}
	return nil
}
