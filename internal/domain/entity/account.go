// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is the identity record of a registered person.
// It is created on registration and not modified afterwards.
type Account struct {
	ID           uuid.UUID // Assigned by the store on creation.
	FirstName    string
	LastName     string
	Email        string // Unique across accounts, enforced by the store.
	PasswordHash string // bcrypt digest. Never the plaintext.
	PhoneNumber  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WithoutCredentials returns a copy of the account with the password hash cleared,
// suitable for handing to callers outside the service layer.
func (a *Account) WithoutCredentials() *Account {
	if a == nil {
		return nil
	}

	clone := *a
	clone.PasswordHash = ""

	return &clone
}

// NormalizeEmail canonicalises an email address for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
