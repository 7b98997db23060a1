package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	FamilyRole   string    `json:"family_role"`
	FamilyCode   string    `json:"family_code,omitempty"`
	AvatarURL    *string   `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasFamily reports whether the user belongs to a family. A blank code means
// "no family yet": such a user shares daily content with nobody but themselves.
func (u *User) HasFamily() bool {
	return u.FamilyCode != ""
}
