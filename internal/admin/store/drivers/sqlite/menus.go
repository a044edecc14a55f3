package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
)

type menusRepo struct {
	db DBTX
}

const menuColumns = `id, parent_id, menu_name, menu_url, menu_icon, api_url, menu_type, status_id, sort, remark, created_at, updated_at`

// prefixed qualifies every column in a comma separated list.
func prefixed(prefix, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = prefix + c
	}
	return strings.Join(cols, ", ")
}

func scanMenu(row interface{ Scan(...any) error }) (domain.Menu, error) {
	var m domain.Menu
	err := row.Scan(
		&m.ID,
		&m.ParentID,
		&m.MenuName,
		&m.MenuURL,
		&m.MenuIcon,
		&m.APIURL,
		&m.MenuType,
		&m.StatusID,
		&m.Sort,
		&m.Remark,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func scanMenus(rows *sql.Rows) ([]domain.Menu, error) {
	defer rows.Close()

	menus := []domain.Menu{}
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

func (r *menusRepo) GetMenuByID(ctx context.Context, id int64) (domain.Menu, error) {
	m, err := scanMenu(r.db.QueryRowContext(ctx, `SELECT `+menuColumns+` FROM sys_menu WHERE id = ?`, id))
	if err != nil {
		return domain.Menu{}, mapNotFound(err)
	}
	return m, nil
}

func (r *menusRepo) ListAllMenus(ctx context.Context) ([]domain.Menu, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+menuColumns+` FROM sys_menu ORDER BY sort, id`)
	if err != nil {
		return nil, err
	}
	return scanMenus(rows)
}

func (r *menusRepo) ListMenusByIDs(ctx context.Context, ids []int64) ([]domain.Menu, error) {
	if len(ids) == 0 {
		return []domain.Menu{}, nil
	}
	in, args := inArgs(ids)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+menuColumns+` FROM sys_menu WHERE id IN (`+in+`) ORDER BY sort, id`, args...)
	if err != nil {
		return nil, err
	}
	return scanMenus(rows)
}

func (r *menusRepo) CreateMenu(ctx context.Context, m domain.Menu) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sys_menu (parent_id, menu_name, menu_url, menu_icon, api_url, menu_type, status_id, sort, remark, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ParentID, m.MenuName, m.MenuURL, m.MenuIcon, m.APIURL, int(m.MenuType), m.StatusID, m.Sort, m.Remark, now, now,
	)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func (r *menusRepo) UpdateMenu(ctx context.Context, m domain.Menu) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE sys_menu
		    SET parent_id = ?, menu_name = ?, menu_url = ?, menu_icon = ?, api_url = ?, menu_type = ?,
		        status_id = ?, sort = ?, remark = ?, updated_at = ?
		  WHERE id = ?`,
		m.ParentID, m.MenuName, m.MenuURL, m.MenuIcon, m.APIURL, int(m.MenuType),
		m.StatusID, m.Sort, m.Remark, time.Now().UTC(), m.ID,
	))
}

func (r *menusRepo) DeleteMenu(ctx context.Context, id int64) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM sys_menu WHERE id = ?`, id))
}

func (r *menusRepo) CountChildren(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sys_menu WHERE parent_id = ?`, id).Scan(&n)
	return n, err
}

func (r *menusRepo) AllAPIPaths(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT api_url FROM sys_menu WHERE api_url <> '' ORDER BY api_url`)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}
