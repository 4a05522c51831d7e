// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"accounts/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrAccountNotFound is a domain-specific error returned when an account is not found.
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository defines the standard operations for account persistence.
// Implementations enforce email uniqueness themselves and report a conflict as
// domainerrors.ErrDuplicateEmail; any other storage failure is a domainerrors.StoreError.
type AccountRepository interface {
	// Create persists a new account and fills in its ID and timestamps.
	Create(ctx context.Context, account *entity.Account) error

	// FindByEmail retrieves a single account by its normalised email address.
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)

	// FindByID retrieves a single account by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// List returns every account ordered by creation time.
	List(ctx context.Context) ([]*entity.Account, error)
}
