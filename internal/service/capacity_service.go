package service

import (
	"context"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/logger"
	"mealcoach/coaching-app/internal/repository"

	"go.uber.org/zap"
)

// CapacitySnapshot is the ledger's answer for one coach. ActiveClients is
// never clamped; a coach can legitimately sit over capacity when overflow
// seats are reduced after the fact.
type CapacitySnapshot struct {
	ActiveClients int64   `json:"activeClients"`
	TotalCapacity int     `json:"totalCapacity"`
	Utilization   float64 `json:"utilization"` // Clamped to [0,1], display only
}

// AtCapacity reports whether the coach has no free seat.
func (s CapacitySnapshot) AtCapacity() bool {
	return s.ActiveClients >= int64(s.TotalCapacity)
}

// CapacityService is the capacity ledger: pure arithmetic over a coach's plan
// tier and purchased overflow seats, plus a count of active connections.
type CapacityService interface {
	TierBaseLimit(tier domain.SubscriptionTier) int
	TotalCapacity(coach *domain.Coach) int
	Snapshot(ctx context.Context, coach *domain.Coach) (CapacitySnapshot, error)
}

type capacityService struct {
	connectionRepo  repository.ConnectionRepository
	tierLimits      map[string]int
	maxExtraClients int
}

// NewCapacityService creates the ledger from the configured tier limits.
func NewCapacityService(connectionRepo repository.ConnectionRepository, tierLimits map[string]int, maxExtraClients int) CapacityService {
	if maxExtraClients < 0 {
		maxExtraClients = 0
	}
	return &capacityService{
		connectionRepo:  connectionRepo,
		tierLimits:      tierLimits,
		maxExtraClients: maxExtraClients,
	}
}

// TierBaseLimit returns the configured base seat count for a tier. An
// unconfigured tier yields zero capacity rather than a guess.
func (s *capacityService) TierBaseLimit(tier domain.SubscriptionTier) int {
	limit, ok := s.tierLimits[string(tier)]
	if !ok {
		logger.Warn("no base limit configured for tier", zap.String("tier", string(tier)))
		return 0
	}
	return limit
}

// TotalCapacity is tierBaseLimit(tier) + extraClientCount, with the extra
// seats capped at the configured maximum.
func (s *capacityService) TotalCapacity(coach *domain.Coach) int {
	extra := coach.ExtraClientCount
	if extra < 0 {
		extra = 0
	}
	if extra > s.maxExtraClients {
		extra = s.maxExtraClients
	}
	return s.TierBaseLimit(coach.Tier) + extra
}

// Snapshot reads the coach's live utilization from the connection store.
func (s *capacityService) Snapshot(ctx context.Context, coach *domain.Coach) (CapacitySnapshot, error) {
	active, err := s.connectionRepo.CountActiveByCoach(ctx, coach.ID)
	if err != nil {
		return CapacitySnapshot{}, err
	}

	total := s.TotalCapacity(coach)
	snapshot := CapacitySnapshot{
		ActiveClients: active,
		TotalCapacity: total,
	}

	if total > 0 {
		utilization := float64(active) / float64(total)
		if utilization > 1 {
			utilization = 1
		}
		snapshot.Utilization = utilization
	} else if active > 0 {
		snapshot.Utilization = 1
	}
	return snapshot, nil
}
