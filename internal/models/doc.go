// Package models defines the core domain models for Budgetwise.
//
// # Models
//
//   - User: a registered account with a denormalized running total
//   - Transaction: an expense or an earning recorded by one user
//   - Group: an expense group whose members share costs
//   - Settlement: a recorded payment between two group members
//   - Summary: monthly or yearly totals derived from transactions
//
// Money is always stored as money.Cents. Relationships use ID strings
// rather than pointers.
package models
