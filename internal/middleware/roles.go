package middleware

const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleStudent    = "student"
	RoleCouncil    = "council"
	RoleCompany    = "company"
)

var allowedRoles = map[string]struct{}{
	RoleAdmin:      {},
	RoleSupervisor: {},
	RoleStudent:    {},
	RoleCouncil:    {},
	RoleCompany:    {},
}

func IsValidRole(role string) bool {
	_, ok := allowedRoles[role]
	return ok
}
