// Package social resolves user profiles and follow relationships from the
// social-graph service that owns them. The chat server never stores follower
// data; it only asks whether two users may open a conversation and fetches
// display profiles for conversation listings.
package social

import (
	"context"

	"sparkchat/pkg/models"
)

// Directory answers profile and follow-graph queries.
type Directory interface {
	// User returns the profile for id, or ErrUnknownUser.
	User(ctx context.Context, id string) (models.UserRef, error)
	// MutualFollow reports whether a and b follow each other.
	MutualFollow(ctx context.Context, a, b string) (bool, error)
}
