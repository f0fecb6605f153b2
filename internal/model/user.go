// Package model defines data structures for the chat backend.
package model

// User is a registered account, keyed by email.
type User struct {
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	HashedPassword string `json:"-"`
}

// StoredUser is the persisted form of a User, including the bcrypt hash.
// It is never returned over HTTP.
type StoredUser struct {
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	HashedPassword string `json:"hashed_password"`
}

// Public strips the password hash for API responses.
func (u StoredUser) Public() User {
	return User{Email: u.Email, FullName: u.FullName}
}

// RegisterRequest is the request to create an account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginRequest is the request to authenticate.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}
