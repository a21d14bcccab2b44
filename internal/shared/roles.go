package shared

import (
	"fmt"
	"strings"
)

// Role is the closed set of staff roles.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleBillHandler  Role = "bill_handler"
	RoleMeterHandler Role = "meter_handler"
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleBillHandler, RoleMeterHandler}
}

// ParseRole normalises separators and case ("Bill Handler", "bill-handler") and
// rejects anything outside the enum.
func ParseRole(raw string) (Role, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, r := range Roles() {
		if string(r) == norm {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil && string(r) == strings.ToLower(string(r))
}

// Label returns a human readable name.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleBillHandler:
		return "Bill handler"
	case RoleMeterHandler:
		return "Meter handler"
	default:
		return string(r)
	}
}

// Principal describes the authenticated staff member for one request.
type Principal struct {
	ID    int64
	Name  string
	Email string
	Role  Role
}

// HasRole reports whether the principal holds any of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
