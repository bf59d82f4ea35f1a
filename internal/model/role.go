package model

// Role is the closed set of capability tiers a user can hold. Keeping it a
// distinct type forces every authorization call site through an exhaustive
// switch instead of comparing loose strings.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAuthor Role = "author"
	RoleUser   Role = "user"
)

// ParseRole maps a client-supplied user_type string onto a Role. The empty
// string falls back to RoleUser, matching the registration default. Any
// other value is rejected so unknown roles can never reach the policy layer.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleAuthor:
		return RoleAuthor, true
	case RoleUser, "":
		return RoleUser, true
	}
	return "", false
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAuthor, RoleUser:
		return true
	}
	return false
}
