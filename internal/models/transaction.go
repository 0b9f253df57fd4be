package models

import (
	"fmt"

	"github.com/mmynk/budgetwise/internal/money"
)

// Kind distinguishes money going out from money coming in.
type Kind string

const (
	KindExpense Kind = "expense"
	KindEarning Kind = "earning"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindExpense, KindEarning:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

// Transaction is a single expense or earning.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string

	// UserID is the user who paid (expense) or received (earning) the money.
	UserID string

	// GroupID is the expense group the transaction is shared with.
	// Empty for personal transactions. Earnings are always personal.
	GroupID string

	Kind Kind

	// Amount is always positive; Kind carries the sign.
	Amount money.Cents

	// Category is a free-form label such as "Groceries" or "Salary".
	Category string

	Description string

	// OccurredAt is the Unix timestamp of the day the money moved.
	OccurredAt int64

	CreatedAt int64
}

// Signed returns the transaction's effect on the owner's running total.
func (t *Transaction) Signed() money.Cents {
	if t.Kind == KindEarning {
		return t.Amount
	}
	return -t.Amount
}

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	UserID  string
	GroupID string
	Kind    Kind

	// From and To bound OccurredAt as a half-open range [From, To).
	From int64
	To   int64

	Limit int
}
