package domain

import "time"

// SuperAdminRoleID is the reserved role whose members may call every API
// path registered on a menu, regardless of role-menu links.
const SuperAdminRoleID int64 = 1

type Role struct {
	ID        int64
	RoleName  string
	StatusID  int
	Sort      int
	Remark    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
