package auth

import "strings"

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Identity is the caller as asserted by the external identity provider.
// EmployeeID is empty for approvers without their own attendance.
type Identity struct {
	UserID     string
	EmployeeID string
	Role       Role
}

// IsManager reports whether the caller may approve corrections and read
// other employees' records.
func (i Identity) IsManager() bool {
	return i.Role == RoleManager || i.Role == RoleAdmin
}

// CanAccessEmployee reports whether the caller may read employeeID's data.
func (i Identity) CanAccessEmployee(employeeID string) bool {
	return i.IsManager() || (i.EmployeeID != "" && i.EmployeeID == employeeID)
}

// IdentityFromClaims reads user_id, employee_id and role from decoded token claims.
func IdentityFromClaims(claims map[string]any) (Identity, error) {
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return Identity{}, ErrUserIDRequired
	}

	employeeID, _ := claims["employee_id"].(string)

	role := RoleEmployee
	if r, ok := claims["role"].(string); ok && r != "" {
		role = Role(strings.ToLower(r))
	}

	return Identity{UserID: userID, EmployeeID: employeeID, Role: role}, nil
}
