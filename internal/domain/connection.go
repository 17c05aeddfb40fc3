package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConnectionStatus type for the coach-client connection lifecycle.
type ConnectionStatus string

const (
	StatusPendingRequest ConnectionStatus = "pending_request" // Client asked, coach has not acted
	StatusPendingCode    ConnectionStatus = "pending_code"    // Coach approved, invite code outstanding
	StatusActive         ConnectionStatus = "active"
	StatusDeclined       ConnectionStatus = "declined"     // Terminal
	StatusDisconnected   ConnectionStatus = "disconnected" // Terminal; row kept for audit history
)

// IsTerminal reports whether the status permits no further transitions.
// Terminal rows do not count against the one-connection-per-pair rule.
func (s ConnectionStatus) IsTerminal() bool {
	return s == StatusDeclined || s == StatusDisconnected
}

// NonTerminalStatuses are the statuses of which at most one may exist
// per (coach, client) pair at any time.
func NonTerminalStatuses() []ConnectionStatus {
	return []ConnectionStatus{StatusPendingRequest, StatusPendingCode, StatusActive}
}

// Connection links a coach to a client profile. Rows are logically deleted
// (status -> disconnected), never physically removed.
type Connection struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`
	ClientID    primitive.ObjectID `bson:"clientId" json:"clientId"` // Client's profile ID
	Status      ConnectionStatus   `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	ConnectedAt *time.Time         `bson:"connectedAt,omitempty" json:"connectedAt,omitempty"` // Set when the invite code is verified
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
