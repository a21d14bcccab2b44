// Package staff manages back-office accounts and their profile pictures.
package staff

import (
	"time"

	"github.com/hydrobill/hydrobill/internal/shared"
)

// Staff is a back-office account.
type Staff struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	PasswordHash   string      `json:"-"`
	Role           shared.Role `json:"role"`
	IsActive       bool        `json:"is_active"`
	ProfilePicture string      `json:"profile_picture,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Principal converts the account into the request-scoped identity.
func (s Staff) Principal() shared.Principal {
	return shared.Principal{ID: s.ID, Name: s.Name, Email: s.Email, Role: s.Role}
}
