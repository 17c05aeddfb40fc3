package repository

import (
	"context"
	"time"

	"mealcoach/coaching-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound    = RepositoryError("not found")
	ErrConflict    = RepositoryError("conflict")
	ErrStaleStatus = RepositoryError("status changed since read")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// CoachRepository defines the interface for interacting with coach accounts.
type CoachRepository interface {
	Create(ctx context.Context, coach *domain.Coach) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Coach, error)
	GetByOwnerProfileID(ctx context.Context, profileID primitive.ObjectID) (*domain.Coach, error)
}

// ConnectionRepository defines the interface for interacting with
// coach-client connection rows. All status mutations are conditional on the
// expected pre-state; a write that matches no row because the status moved
// underneath it returns ErrStaleStatus.
type ConnectionRepository interface {
	Create(ctx context.Context, conn *domain.Connection) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Connection, error)
	// FindNonTerminal returns the single live (pending or active) connection
	// for the pair, or ErrNotFound.
	FindNonTerminal(ctx context.Context, coachID, clientID primitive.ObjectID) (*domain.Connection, error)
	// FindActive returns the pair's connection only if it is active.
	FindActive(ctx context.Context, coachID, clientID primitive.ObjectID) (*domain.Connection, error)
	// TransitionStatus moves the connection from one of the expected statuses
	// to the target status. Compare-and-swap on the status column.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, to domain.ConnectionStatus, from ...domain.ConnectionStatus) error
	// Activate is the pending_code -> active transition; it also records the
	// connection time atomically with the status change.
	Activate(ctx context.Context, id primitive.ObjectID, connectedAt time.Time) error
	CountActiveByCoach(ctx context.Context, coachID primitive.ObjectID) (int64, error)
	ListByCoach(ctx context.Context, coachID primitive.ObjectID, status domain.ConnectionStatus) ([]domain.Connection, error)
	ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.Connection, error)
}

// InviteCodeRepository defines the interface for invite code storage. The
// connection lifecycle manager is the only writer.
type InviteCodeRepository interface {
	Create(ctx context.Context, code *domain.InviteCode) (primitive.ObjectID, error)
	// GetUnconsumed returns the connection's live code regardless of expiry;
	// expiry is the caller's concern.
	GetUnconsumed(ctx context.Context, connectionID primitive.ObjectID) (*domain.InviteCode, error)
	// DeleteUnconsumed removes any live code for the connection so a fresh
	// issue leaves at most one unconsumed code. Missing rows are not an error.
	DeleteUnconsumed(ctx context.Context, connectionID primitive.ObjectID) error
	// Consume marks the matching unconsumed code as used. Conditional on the
	// code still being unconsumed; a lost race returns ErrStaleStatus.
	Consume(ctx context.Context, connectionID primitive.ObjectID, code string, consumedAt time.Time) error
}

// SharingSettingsRepository defines the interface for client visibility
// toggles. Rows are keyed by client profile ID.
type SharingSettingsRepository interface {
	Get(ctx context.Context, clientID primitive.ObjectID) (*domain.SharingSettings, error)
	// EnsureDefaults creates the row with both flags false if it does not
	// exist yet. Existing toggles are never touched.
	EnsureDefaults(ctx context.Context, clientID primitive.ObjectID) error
	Update(ctx context.Context, settings *domain.SharingSettings) error
}

// ReminderRepository defines the interface for coach-to-client nudges.
type ReminderRepository interface {
	Create(ctx context.Context, reminder *domain.ReminderRequest) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ReminderRequest, error)
	// Complete is the pending -> completed transition for a single reminder.
	Complete(ctx context.Context, id primitive.ObjectID) error
	// CompletePendingByKind completes every pending reminder of the kind for
	// the client. Used by the logging flow when a matching entry lands.
	CompletePendingByKind(ctx context.Context, clientID primitive.ObjectID, kind domain.ReminderKind) error
	ListByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.ReminderRequest, error)
	ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ReminderRequest, error)
}

// LeadRepository defines the interface for coaching lead intake.
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.CoachingLead) (primitive.ObjectID, error)
	// CountByUserSince is the range query backing the intake throttle.
	CountByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error)
	// UpdateStatus is a data-only write; lead statuses have no transition
	// rules.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.LeadStatus) error
	List(ctx context.Context) ([]domain.CoachingLead, error)
}

// MealEntryRepository defines the interface for the meal record store.
type MealEntryRepository interface {
	Create(ctx context.Context, entry *domain.MealEntry) (primitive.ObjectID, error)
	ListByClientAndRange(ctx context.Context, clientID primitive.ObjectID, from, to time.Time) ([]domain.MealEntry, error)
	// Delete removes the client's own entry and returns it so the caller can
	// release any attached photo object. Missing or foreign entry IDs return
	// ErrNotFound.
	Delete(ctx context.Context, clientID, entryID primitive.ObjectID) (*domain.MealEntry, error)
}

// WeightEntryRepository defines the interface for the body-weight record store.
type WeightEntryRepository interface {
	Create(ctx context.Context, entry *domain.WeightEntry) (primitive.ObjectID, error)
	ListByClientAndRange(ctx context.Context, clientID primitive.ObjectID, from, to time.Time) ([]domain.WeightEntry, error)
}
