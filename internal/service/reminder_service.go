package service

import (
	"context"
	"errors"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderService is the one-way nudge channel from coach to client. A
// reminder requires an active connection but is otherwise independent of the
// data-sharing state; sending one changes nothing else.
type ReminderService interface {
	SendReminder(ctx context.Context, coachID, clientID primitive.ObjectID, kind domain.ReminderKind, message string) (*domain.ReminderRequest, error)
	// CompleteReminder marks the reminder done on behalf of the client it was
	// addressed to; the client-side action the reminder prompted completes it,
	// never the coach.
	CompleteReminder(ctx context.Context, clientID, requestID primitive.ObjectID) error
	ListByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.ReminderRequest, error)
	ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ReminderRequest, error)
}

type reminderService struct {
	reminderRepo   repository.ReminderRepository
	connectionRepo repository.ConnectionRepository
}

// NewReminderService creates a new instance of reminderService.
func NewReminderService(reminderRepo repository.ReminderRepository, connectionRepo repository.ConnectionRepository) ReminderService {
	return &reminderService{
		reminderRepo:   reminderRepo,
		connectionRepo: connectionRepo,
	}
}

// SendReminder creates a pending reminder against an active connection.
func (s *reminderService) SendReminder(ctx context.Context, coachID, clientID primitive.ObjectID, kind domain.ReminderKind, message string) (*domain.ReminderRequest, error) {
	if coachID == primitive.NilObjectID || clientID == primitive.NilObjectID {
		return nil, errors.New("coach ID and client ID are required")
	}
	if !kind.Valid() {
		return nil, errors.New("unknown reminder kind")
	}

	if _, err := s.connectionRepo.FindActive(ctx, coachID, clientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConnectionNotActive
		}
		return nil, err
	}

	reminder := &domain.ReminderRequest{
		CoachID:  coachID,
		ClientID: clientID,
		Kind:     kind,
		Status:   domain.ReminderPending,
		Message:  message,
	}
	reminderID, err := s.reminderRepo.Create(ctx, reminder)
	if err != nil {
		return nil, err
	}
	reminder.ID = reminderID
	return reminder, nil
}

// CompleteReminder marks a single reminder completed. Only the addressed
// client may complete it; anyone else gets the same answer as for a missing
// ID. Completing an already-completed reminder is a no-op.
func (s *reminderService) CompleteReminder(ctx context.Context, clientID, requestID primitive.ObjectID) error {
	reminder, err := s.reminderRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReminderNotFound
		}
		return err
	}
	if reminder.ClientID != clientID {
		return ErrReminderNotFound
	}
	if reminder.Status == domain.ReminderCompleted {
		return nil
	}

	if err := s.reminderRepo.Complete(ctx, requestID); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			// Lost a race with the logging flow; the reminder is done either way.
			return nil
		}
		return err
	}
	return nil
}

// ListByCoach retrieves reminders the coach has sent.
func (s *reminderService) ListByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.ReminderRequest, error) {
	return s.reminderRepo.ListByCoach(ctx, coachID)
}

// ListByClient retrieves reminders addressed to the client.
func (s *reminderService) ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ReminderRequest, error) {
	return s.reminderRepo.ListByClient(ctx, clientID)
}
