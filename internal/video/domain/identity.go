package domain

const (
	//RoleTeacher may own courses and upload lesson videos
	RoleTeacher = "teacher"
	//RoleStudent may only see ready assets
	RoleStudent = "student"
)

// Identity the caller as supplied by the external auth subsystem
type Identity struct {
	UserID string
	Role   string
}

// IsTeacher check the caller role
func (i Identity) IsTeacher() bool {
	return i.Role == RoleTeacher
}
