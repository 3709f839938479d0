package enums

type Role string

const (
	RoleStudent Role = "student"
	RoleCompany Role = "company"
	RoleCenter  Role = "scenter"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleCompany, RoleCenter:
		return true
	}
	return false
}
