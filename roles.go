package accounts

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleStandard, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	roleHierarchy := map[Role]int{
		RoleStandard: 0,
		RoleAdmin:    1,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

func (r Role) String() string {
	return string(r)
}

// GetAllRoles returns all roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleStandard,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// IsValid checks if the token type is known
func (t TokenType) IsValid() bool {
	switch t {
	case TokenVerification, TokenPasswordReset:
		return true
	default:
		return false
	}
}
