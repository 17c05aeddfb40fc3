package service

import "errors"

// Shared error taxonomy for the connection and sharing core. Handlers map
// these onto HTTP statuses; verification failures deliberately collapse into
// one user-facing message at the API boundary.
var (
	ErrCoachNotFound       = errors.New("no coach account exists for that email")
	ErrConnectionNotFound  = errors.New("connection not found")
	ErrConnectionConflict  = errors.New("a connection for this coach and client already exists")
	ErrCapacityExceeded    = errors.New("coach is at client capacity")
	ErrInvalidCode         = errors.New("invalid code")
	ErrCodeExpired         = errors.New("code expired")
	ErrNotParticipant      = errors.New("caller is not a party to this connection")
	ErrConnectionNotActive = errors.New("connection is not active")
	ErrReminderNotFound    = errors.New("reminder not found")
	ErrEntryNotFound       = errors.New("entry not found")
	ErrLeadNotFound        = errors.New("lead not found")
	ErrRateLimited         = errors.New("a recent submission already exists")
)
