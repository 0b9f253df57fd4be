package models

import "slices"

// Group is an expense group: a set of users who share costs and settle
// balances with each other.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Household", "Trip").
	Name string

	// OwnerID is the user who created the group. Only the owner may delete it.
	OwnerID string

	// Members are the user IDs in the group, owner included.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}
