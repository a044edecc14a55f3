package domain

import "time"

// SuperAdminUserID is the account created at bootstrap. Its roles cannot be
// changed and it cannot be deleted.
const SuperAdminUserID int64 = 1

// Status values shared by users, roles and menus.
const (
	StatusDisabled = 0
	StatusEnabled  = 1
)

type User struct {
	ID           int64
	Mobile       string // login key
	UserName     string
	PasswordHash string // argon2id, PHC encoded
	StatusID     int
	Sort         int
	Remark       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) Enabled() bool { return u.StatusID == StatusEnabled }
