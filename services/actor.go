package services

// Actor roles. Authentication itself is an upstream concern; the booking core
// only checks role and ownership.
const (
	RoleGuest = "guest"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsStaff reports whether the actor may run front-desk operations.
func (a Actor) IsStaff() bool { return a.Role == RoleStaff || a.Role == RoleAdmin }
