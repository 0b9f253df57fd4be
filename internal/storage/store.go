// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/budgetwise/internal/models"
)

// ErrNotFound is wrapped by every lookup that finds no row.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is wrapped when a unique constraint would be violated.
var ErrAlreadyExists = errors.New("already exists")

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns ErrNotFound if no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs returns the users that exist, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// GroupStore persists expense groups and their membership.
type GroupStore interface {
	// CreateGroup populates group.ID and group.CreatedAt when unset.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsForUser returns the groups userID is a member of, newest first.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)
	AddGroupMember(ctx context.Context, groupID, userID string) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error

	// DeleteGroup removes the group, its settlements and detaches its transactions.
	DeleteGroup(ctx context.Context, groupID string) error
}

// TransactionStore persists expenses and earnings. Every write keeps the
// owner's denormalized User.Total in sync within the same database transaction.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	// ListTransactions returns matching transactions, most recent first.
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error)

	// CategoryTotals aggregates matching transactions by kind and category.
	CategoryTotals(ctx context.Context, filter models.TransactionFilter) ([]models.CategoryAmount, error)
}

// SettlementStore persists payments recorded between group members.
type SettlementStore interface {
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)
	DeleteSettlement(ctx context.Context, settlementID string) error

	// GroupContributions returns one entry per current member of the group.
	GroupContributions(ctx context.Context, groupID string) ([]models.MemberContribution, error)
}

// Store aggregates every storage concern.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	GroupStore
	TransactionStore
	SettlementStore

	// Close releases any resources held by the store.
	Close() error
}
