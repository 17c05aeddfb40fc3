package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscriptionTier determines a coach's base client capacity.
type SubscriptionTier string

const (
	TierStarter SubscriptionTier = "starter"
	TierGrowth  SubscriptionTier = "growth"
	TierPro     SubscriptionTier = "pro"
)

// Coach is a paying coaching account. Exactly one coach exists per owning
// profile; the profile itself (name, email) lives in the identity directory.
type Coach struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerProfileID   primitive.ObjectID `bson:"ownerProfileId" json:"ownerProfileId"` // Unique per coach
	Tier             SubscriptionTier   `bson:"tier" json:"tier"`
	ExtraClientCount int                `bson:"extraClientCount" json:"extraClientCount"` // Purchased overflow seats
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}
