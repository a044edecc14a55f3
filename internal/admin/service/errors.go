package service

import "errors"

var (
	// ErrInvalidInput wraps every request validation failure.
	ErrInvalidInput = errors.New("invalid_input")

	ErrUserNotFound        = errors.New("user not found")
	ErrMobileTaken         = errors.New("mobile already registered")
	ErrSuperAdminProtected = errors.New("the super admin account cannot be modified")
	ErrWrongPassword       = errors.New("old password is incorrect")

	ErrRoleNotFound  = errors.New("role not found")
	ErrRoleNameTaken = errors.New("role name already in use")
	ErrRoleInUse     = errors.New("role is assigned to users")
	ErrRoleProtected = errors.New("the super admin role cannot be deleted")

	ErrMenuNotFound    = errors.New("menu not found")
	ErrMenuHasChildren = errors.New("menu has child menus")
	ErrParentNotFound  = errors.New("parent menu not found")

	// ErrUnknownReference is returned when an assignment names a role or
	// menu that does not exist.
	ErrUnknownReference = errors.New("unknown role or menu id")
)
