package models

import "github.com/mmynk/budgetwise/internal/money"

// CategoryAmount is an amount aggregated by category and kind.
type CategoryAmount struct {
	Category string
	Kind     Kind
	Amount   money.Cents
	Count    int
}

// Summary is the aggregate of transactions over a month or a year.
type Summary struct {
	Year int

	// Month is 1-12 for monthly summaries and 0 for yearly ones.
	Month int

	Expenses money.Cents
	Earnings money.Cents

	ByCategory []CategoryAmount

	// Months holds the per-month breakdown of a yearly summary.
	Months []Summary
}

// Net is earnings minus expenses.
func (s *Summary) Net() money.Cents {
	return s.Earnings - s.Expenses
}

// MemberContribution is a group member's net share of the group pool:
// expenses paid for the group, plus settlements paid, minus settlements received.
type MemberContribution struct {
	UserID string
	Paid   money.Cents
	Total  money.Cents
}
