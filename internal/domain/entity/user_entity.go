package entity

import (
	"strings"
	"time"
)

// MaxDocuments is the number of documents a user may keep on file.
const MaxDocuments = 20

// User is the aggregate root for the user domain.
// Password holds a bcrypt hash; Pets is the owned-set, a projection maintained
// only by the adoption engine.
type User struct {
	ID                  string
	FirstName           string
	LastName            string
	Email               string
	Password            string
	Role                Role
	Pets                []string
	Documents           []Document
	LastConnection      *time.Time
	FailedLoginAttempts int
	LockUntil           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) OwnsPet(petID string) bool {
	for _, p := range u.Pets {
		if p == petID {
			return true
		}
	}
	return false
}

// Document is a file uploaded by a user.
type Document struct {
	ID         string
	Name       string
	Reference  string
	FileType   string
	FileSize   int64
	UploadedAt time.Time
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
