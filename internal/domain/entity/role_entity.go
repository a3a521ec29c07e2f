package entity

// Role represents an authorization role carried in the identity token.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RolePremium Role = "premium"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RolePremium:
		return true
	}
	return false
}

// Subject is the authenticated principal making a request.
type Subject struct {
	ID    string
	Role  Role
	Email string
	Name  string
}

func (s Subject) IsAdmin() bool { return s.Role == RoleAdmin }

// Authenticated reports whether the subject carries an identity.
func (s Subject) Authenticated() bool { return s.ID != "" }
