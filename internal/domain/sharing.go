package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SharingSettings are a client's per-category visibility toggles. One row per
// client profile, independent of which coach (if any) the client is connected
// to. Both flags default to false and are never enabled automatically.
type SharingSettings struct {
	ClientID        primitive.ObjectID `bson:"_id" json:"clientId"`
	ShareMealsAuto  bool               `bson:"shareMealsAuto" json:"shareMealsAuto"`
	ShareWeightAuto bool               `bson:"shareWeightAuto" json:"shareWeightAuto"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
