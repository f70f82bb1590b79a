package enums

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
	RoleFounder   Role = "founder"
)

var rolePrivilege = map[Role]int{
	RoleUser:      0,
	RoleModerator: 1,
	RoleAdmin:     2,
	RoleFounder:   3,
}

func ParseRole(value string) Role {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := rolePrivilege[role]; ok {
		return role
	}
	return RoleUser
}

// AtLeast reports whether r carries the privilege of required or higher.
// Privilege is strictly ordered: founder > admin > moderator > user.
func (r Role) AtLeast(required Role) bool {
	return rolePrivilege[r] >= rolePrivilege[required]
}
