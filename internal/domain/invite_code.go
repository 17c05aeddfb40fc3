package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InviteCode is a short-lived one-time secret that promotes a pending
// connection to active. Codes are stored canonically upper-case; at most one
// unconsumed code exists per connection.
type InviteCode struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConnectionID primitive.ObjectID `bson:"connectionId" json:"connectionId"`
	Code         string             `bson:"code" json:"-"` // Bearer credential, never exposed via JSON
	IssuedAt     time.Time          `bson:"issuedAt" json:"issuedAt"`
	ExpiresAt    time.Time          `bson:"expiresAt" json:"expiresAt"`
	// Stored as an explicit null while unconsumed so the partial unique index
	// on live codes can match it.
	ConsumedAt *time.Time `bson:"consumedAt" json:"consumedAt,omitempty"`
}

// IsExpired reports whether the code is past its TTL at the given instant.
// Expiry is evaluated lazily at verification time; there is no sweeper.
func (c *InviteCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
