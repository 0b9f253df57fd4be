package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/budgetwise/internal/money"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Used for login and
	// for adding the user to groups.
	Email string

	// DisplayName is shown next to balances and settlements.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Total is earnings minus expenses across all of the user's
	// transactions. The store keeps it in sync on every write.
	Total money.Cents

	CreatedAt int64
	UpdatedAt int64
}

// NewUser returns a User with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
