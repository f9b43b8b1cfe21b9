package domain

import (
	"strings"
	"time"
)

// User это учётная запись покупателя.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DateJoined   time.Time `json:"date_joined"`
}

func (u *User) Identity() *int64 { return &u.ID }

func (u *User) Validate() error {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return Invalid("username is required")
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return Invalid("email %q is not an address", u.Email)
	}
	return nil
}
