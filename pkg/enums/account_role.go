package enums

import "fmt"

// AccountRole distinguishes panel administrators from regular players.
type AccountRole string

const (
	AccountRoleAdmin  AccountRole = "admin"
	AccountRolePlayer AccountRole = "player"
)

var validAccountRoles = []AccountRole{
	AccountRoleAdmin,
	AccountRolePlayer,
}

// String implements fmt.Stringer.
func (r AccountRole) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r AccountRole) IsValid() bool {
	for _, candidate := range validAccountRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseAccountRole converts raw input into an AccountRole.
func ParseAccountRole(value string) (AccountRole, error) {
	for _, candidate := range validAccountRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account role %q", value)
}
