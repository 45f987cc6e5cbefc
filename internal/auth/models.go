package auth

// User is an entry of users.json. Only the fields the notification
// subsystem needs are decoded.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type usersFile struct {
	Users []User `json:"users"`
}

const (
	RoleProfessor = "professor"
	RoleStudent   = "aluno"
)
