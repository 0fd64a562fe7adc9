// internal/domain/models/user.go
package models

// User roles. Sessions are issued elsewhere; the role carried by the
// session decides which categories a user may manage.
const (
	RoleAdmin              = "admin"
	RoleDemographicAdmin   = "demographic_admin"
	RoleEconomicAdmin      = "economic_admin"
	RoleEnvironmentalAdmin = "environmental_admin"
)

// AllRoles returns all valid user roles.
func AllRoles() []string {
	return []string{
		RoleAdmin,
		RoleDemographicAdmin,
		RoleEconomicAdmin,
		RoleEnvironmentalAdmin,
	}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// CategoryRole returns the admin role scoped to one category.
func CategoryRole(c Category) string {
	return string(c) + "_admin"
}

// CanManageCategory reports whether role may see and edit data in c.
// The global admin manages every category.
func CanManageCategory(role string, c Category) bool {
	if role == RoleAdmin {
		return true
	}
	return IsValidCategory(string(c)) && role == CategoryRole(c)
}

// ManagedCategories lists the categories role may manage.
func ManagedCategories(role string) []Category {
	var out []Category
	for _, c := range AllCategories() {
		if CanManageCategory(role, c) {
			out = append(out, c)
		}
	}
	return out
}
