package auth

// Principal is the authenticated caller handed to every service call that needs one
type Principal struct {
	UserID   uint
	Username string
	Role     string
}

func (p Principal) IsStudent() bool { return p.Role == "student" }
func (p Principal) IsTeacher() bool { return p.Role == "teacher" }
func (p Principal) IsAdmin() bool   { return p.Role == "admin" }
