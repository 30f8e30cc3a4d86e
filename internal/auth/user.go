// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// MinCredentialLength is the shortest accepted username or password length,
// counted in characters rather than bytes.
const MinCredentialLength = 3

// User represents a board account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FieldError is an expected failure tied to a named input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// UserResponse is the result of an operation that may authenticate a user.
// At most one of Errors and User is set. Both are empty when the operation
// failed for a reason the caller cannot act on.
type UserResponse struct {
	Errors []FieldError `json:"errors,omitempty"`
	User   *User        `json:"user,omitempty"`

	// SessionID is the session created for User, for the transport to place
	// in the client cookie.
	SessionID string `json:"-"`
}

func fieldErrorResponse(field, message string) UserResponse {
	return UserResponse{Errors: []FieldError{{Field: field, Message: message}}}
}

// RegisterInput carries the fields submitted for a new account.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the input in a fixed order and returns the first failure.
// Returns nil when every rule passes.
func (in RegisterInput) Validate() *FieldError {
	if !strings.Contains(in.Email, "@") {
		return &FieldError{Field: "email", Message: "Invalid Email"}
	}
	if utf8.RuneCountInString(in.Username) < MinCredentialLength {
		return &FieldError{Field: "username", Message: "Length must be greater than 2"}
	}
	if strings.Contains(in.Username, "@") {
		return &FieldError{Field: "username", Message: "Cannot have @ symbol"}
	}
	if utf8.RuneCountInString(in.Password) < MinCredentialLength {
		return &FieldError{Field: "password", Message: "Length must be greater than 2"}
	}
	return nil
}

// ValidatePassword checks a replacement password under the same rule as
// registration.
func ValidatePassword(field, password string) *FieldError {
	if utf8.RuneCountInString(password) < MinCredentialLength {
		return &FieldError{Field: field, Message: "Length must be greater than 2"}
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create inserts a new user. Returns a *ConflictError naming the field
	// when the username or email is already taken.
	Create(ctx context.Context, username, email, passwordHash string) (*User, error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by exact email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the password hash and refreshes UpdatedAt.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
