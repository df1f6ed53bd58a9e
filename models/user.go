package models

import (
	"strings"
	"time"
)

// User represents a registered author
// PasswordHash is a bcrypt hash; never returned in JSON responses
type User struct {
	ID           string    `json:"_id" db:"id"`
	FullName     string    `json:"fullName" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	AvatarURL    string    `json:"avatarUrl,omitempty" db:"avatar_url"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	FullName  string `json:"fullName" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=5"` // Plaintext; hashed before storing
	AvatarURL string `json:"avatarUrl" validate:"omitempty,urlorpath"`
}

// Normalize trims and lowercases the email before it is validated
func (r *RegisterRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

// NormalizeEmail is the stored and looked-up form of an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthResponse is returned by register and login: public user fields plus a fresh token
type AuthResponse struct {
	User
	Token string `json:"token"`
}
