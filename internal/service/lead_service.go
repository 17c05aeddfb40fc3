package service

import (
	"context"
	"errors"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeadInput carries a client's self-service "match me with a coach" form.
type LeadInput struct {
	Goal              string
	WeightRange       string
	ContactPreference []string
	BestTime          string
	Message           string
}

// LeadService is the intake throttle in front of the coaching lead store. No
// coach is party to a lead; it is matched by the back office later.
type LeadService interface {
	SubmitLead(ctx context.Context, userID primitive.ObjectID, input LeadInput) (*domain.CoachingLead, error)
	ListLeads(ctx context.Context) ([]domain.CoachingLead, error)
	UpdateLeadStatus(ctx context.Context, leadID primitive.ObjectID, status domain.LeadStatus) error
}

type leadService struct {
	leadRepo repository.LeadRepository
	interval time.Duration
}

// NewLeadService creates a new instance of leadService with the configured
// minimum interval between submissions per user.
func NewLeadService(leadRepo repository.LeadRepository, interval time.Duration) LeadService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &leadService{
		leadRepo: leadRepo,
		interval: interval,
	}
}

// SubmitLead stores the form unless the user already submitted one within
// the interval. The throttle is a range query over createdAt, not a stored
// next-eligible timestamp.
func (s *leadService) SubmitLead(ctx context.Context, userID primitive.ObjectID, input LeadInput) (*domain.CoachingLead, error) {
	if userID == primitive.NilObjectID {
		return nil, errors.New("user ID is required")
	}
	if input.Goal == "" {
		return nil, errors.New("goal is required")
	}

	since := time.Now().UTC().Add(-s.interval)
	recent, err := s.leadRepo.CountByUserSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	if recent > 0 {
		return nil, ErrRateLimited
	}

	lead := &domain.CoachingLead{
		UserID:            userID,
		Goal:              input.Goal,
		WeightRange:       input.WeightRange,
		ContactPreference: input.ContactPreference,
		BestTime:          input.BestTime,
		Message:           input.Message,
		Status:            domain.LeadNew,
	}
	leadID, err := s.leadRepo.Create(ctx, lead)
	if err != nil {
		return nil, err
	}
	lead.ID = leadID
	return lead, nil
}

// ListLeads retrieves all leads for back-office review.
func (s *leadService) ListLeads(ctx context.Context) ([]domain.CoachingLead, error) {
	return s.leadRepo.List(ctx)
}

// UpdateLeadStatus records back-office progress on a lead. Statuses are
// plain data; any known status may be set at any time.
func (s *leadService) UpdateLeadStatus(ctx context.Context, leadID primitive.ObjectID, status domain.LeadStatus) error {
	switch status {
	case domain.LeadNew, domain.LeadContacted, domain.LeadConverted:
	default:
		return errors.New("unknown lead status")
	}

	err := s.leadRepo.UpdateStatus(ctx, leadID, status)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrLeadNotFound
	}
	return err
}
