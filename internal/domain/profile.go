package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish the two sides of a connection.
type Role string

const (
	RoleCoach  Role = "coach"
	RoleClient Role = "client"
)

// Profile is the identity directory's view of a user: a verified email
// address and a display name. Account credentials and sessions are managed by
// the platform's account system, not this service.
type Profile struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"` // Unique, verified upstream
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
