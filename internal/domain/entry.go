package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MealEntry is a client's logged meal. Entries are owned by the client-facing
// logging feature; coaches only ever see them through the sharing gate.
type MealEntry struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID       primitive.ObjectID `bson:"clientId" json:"clientId"`
	Name           string             `bson:"name" json:"name"`
	Calories       int                `bson:"calories" json:"calories"`
	ProteinGrams   float64            `bson:"proteinGrams" json:"proteinGrams"`
	CarbsGrams     float64            `bson:"carbsGrams" json:"carbsGrams"`
	FatGrams       float64            `bson:"fatGrams" json:"fatGrams"`
	PhotoObjectKey string             `bson:"photoObjectKey,omitempty" json:"-"` // Object storage key, resolved to a presigned URL on read
	LoggedAt       time.Time          `bson:"loggedAt" json:"loggedAt"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

// WeightEntry is a client's logged body-weight measurement.
type WeightEntry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID   primitive.ObjectID `bson:"clientId" json:"clientId"`
	WeightKg   float64            `bson:"weightKg" json:"weightKg"`
	RecordedAt time.Time          `bson:"recordedAt" json:"recordedAt"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
