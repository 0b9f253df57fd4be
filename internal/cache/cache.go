// Package cache stores computed summaries so repeated dashboard loads do not
// re-aggregate every transaction.
//
// Entries live under a scope (one user, or one group). Writes that touch a
// scope call Invalidate, which bumps the scope's generation so every entry
// written under an older generation is unreachable and ages out with its TTL.
package cache

import (
	"context"

	"github.com/mmynk/budgetwise/internal/models"
)

// Key addresses one cached summary. Month is 0 for yearly summaries.
type Key struct {
	Scope string
	Year  int
	Month int
}

// UserScope is the scope of a user's personal summaries.
func UserScope(userID string) string { return "user:" + userID }

// GroupScope is the scope of a group's summaries.
func GroupScope(groupID string) string { return "group:" + groupID }

// SummaryCache is implemented by Redis and Nop.
type SummaryCache interface {
	// Get returns the cached summary, or nil on a miss, along with the
	// scope's current generation. Pass the generation back to Set so a
	// summary computed before an invalidation is never stored under the
	// newer generation.
	Get(ctx context.Context, key Key) (*models.Summary, int64, error)
	Set(ctx context.Context, key Key, gen int64, summary *models.Summary) error
	Invalidate(ctx context.Context, scopes ...string) error
}

// Nop caches nothing.
type Nop struct{}

var _ SummaryCache = Nop{}

func (Nop) Get(context.Context, Key) (*models.Summary, int64, error) { return nil, 0, nil }

func (Nop) Set(context.Context, Key, int64, *models.Summary) error { return nil }

func (Nop) Invalidate(context.Context, ...string) error { return nil }
