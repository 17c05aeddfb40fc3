package service

import (
	"context"
	"errors"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CoachService resolves the acting profile to its coach account and exposes
// the coach's view of the capacity ledger.
type CoachService interface {
	// GetOwnCoach returns the coach account owned by the authenticated
	// profile, or ErrCoachNotFound when the profile has none.
	GetOwnCoach(ctx context.Context, profileID primitive.ObjectID) (*domain.Coach, error)
	Capacity(ctx context.Context, profileID primitive.ObjectID) (CapacitySnapshot, error)
}

type coachService struct {
	coachRepo repository.CoachRepository
	capacity  CapacityService
}

// NewCoachService creates a new instance of coachService.
func NewCoachService(coachRepo repository.CoachRepository, capacity CapacityService) CoachService {
	return &coachService{
		coachRepo: coachRepo,
		capacity:  capacity,
	}
}

// GetOwnCoach resolves the profile's coach account.
func (s *coachService) GetOwnCoach(ctx context.Context, profileID primitive.ObjectID) (*domain.Coach, error) {
	if profileID == primitive.NilObjectID {
		return nil, errors.New("profile ID is required")
	}

	coach, err := s.coachRepo.GetByOwnerProfileID(ctx, profileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCoachNotFound
		}
		return nil, err
	}
	return coach, nil
}

// Capacity returns the ledger snapshot for the profile's coach account.
func (s *coachService) Capacity(ctx context.Context, profileID primitive.ObjectID) (CapacitySnapshot, error) {
	coach, err := s.GetOwnCoach(ctx, profileID)
	if err != nil {
		return CapacitySnapshot{}, err
	}
	return s.capacity.Snapshot(ctx, coach)
}
