package auth

import "errors"

var (
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrUserIDRequired        = errors.New("token has no user_id claim")
	ErrEmployeeIDRequired    = errors.New("token has no employee_id claim")
	ErrManagerAccessRequired = errors.New("manager access required")
	ErrForbidden             = errors.New("not allowed to access this resource")
)
