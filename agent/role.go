package agent

// Role 专科角色 id
type Role string

const (
	RoleCardiologist        Role = "cardiologist"
	RoleNeurologist         Role = "neurologist"
	RoleNutritionist        Role = "nutritionist"
	RolePharmacologist      Role = "pharmacologist"
	RoleFitness             Role = "fitness"
	RoleSleep               Role = "sleep"
	RoleDermatologist       Role = "dermatologist"
	RoleGeneralPractitioner Role = "general_practitioner"
)

func (r Role) String() string { return string(r) }

// Roles 将字符串列表转换为 Role
func Roles(ids ...string) []Role {
	out := make([]Role, 0, len(ids))
	for _, id := range ids {
		out = append(out, Role(id))
	}
	return out
}

// Strings 将 Role 列表转换为字符串
func Strings(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
