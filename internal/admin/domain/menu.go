package domain

import "time"

type MenuType int

const (
	MenuTypeDirectory MenuType = 1
	MenuTypePage      MenuType = 2
	MenuTypeButton    MenuType = 3
)

// Menu is a node in the navigation tree. APIURL, when set, is the API path a
// holder of the menu may call; it is what ends up in a token's permissions.
type Menu struct {
	ID        int64
	ParentID  int64 // 0 for roots
	MenuName  string
	MenuURL   string
	MenuIcon  string
	APIURL    string
	MenuType  MenuType
	StatusID  int
	Sort      int
	Remark    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
