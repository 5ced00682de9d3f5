package models

import "time"

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Profile returns the user's public representation. Keys are snake_case; the
// response formatter rewrites them to camelCase on the way out.
func (u *User) Profile() map[string]any {
	return map[string]any{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"created_at": u.CreatedAt,
	}
}
