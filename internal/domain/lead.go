package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeadStatus type for back-office processing of a coaching lead.
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadConverted LeadStatus = "converted"
)

// CoachingLead is a client's self-service "match me with a coach" submission.
// It is independent of any specific coach or connection.
type CoachingLead struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	Goal              string             `bson:"goal" json:"goal"`
	WeightRange       string             `bson:"weightRange" json:"weightRange"`
	ContactPreference []string           `bson:"contactPreference" json:"contactPreference"`
	BestTime          string             `bson:"bestTime" json:"bestTime"`
	Message           string             `bson:"message,omitempty" json:"message,omitempty"`
	Status            LeadStatus         `bson:"status" json:"status"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}
