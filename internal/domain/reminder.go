package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderKind type for the nudge a coach can send a client.
type ReminderKind string

const (
	ReminderWeighIn  ReminderKind = "weigh_in"
	ReminderLogMeals ReminderKind = "log_meals"
)

// Valid reports whether the kind is one of the known reminder kinds.
func (k ReminderKind) Valid() bool {
	return k == ReminderWeighIn || k == ReminderLogMeals
}

// ReminderStatus type for the reminder lifecycle.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderCompleted ReminderStatus = "completed" // Set by the client-side logging action, never the coach
)

// ReminderRequest is a one-way nudge from coach to client against an active
// connection. It has no effect on the sharing gate.
type ReminderRequest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID   primitive.ObjectID `bson:"coachId" json:"coachId"`
	ClientID  primitive.ObjectID `bson:"clientId" json:"clientId"`
	Kind      ReminderKind       `bson:"kind" json:"kind"`
	Status    ReminderStatus     `bson:"status" json:"status"`
	Message   string             `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
