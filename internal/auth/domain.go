package auth

import (
	"time"

	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
)

// User represents a studio account. Email is stored lowercased.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         rbac.Role
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionUser projects the user for the session boundary, dropping the hash.
func (u User) SessionUser() shared.SessionUser {
	return shared.SessionUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role.String(),
		AvatarURL: u.AvatarURL,
	}
}

// NewUser is the input for provisioning an account.
type NewUser struct {
	Email     string `validate:"required,email"`
	Name      string `validate:"required,max=120"`
	Password  string `validate:"required,min=8"`
	Role      string `validate:"required"`
	AvatarURL string `validate:"omitempty,url"`
}
