package service

import (
	"context"
	"errors"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/logger"
	"mealcoach/coaching-app/internal/repository"
	"mealcoach/coaching-app/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MealRecord is a meal entry as the coach sees it: the entry plus a
// short-lived URL for its photo, when one exists.
type MealRecord struct {
	domain.MealEntry
	PhotoURL *string `json:"photoUrl,omitempty"`
}

// SharingService is the sharing gate plus the coach-facing reads it guards.
// Every coach read of client data goes through the gate; a denied read
// returns an empty result set, never an error, so a coach cannot tell
// "sharing disabled" apart from "no data yet".
type SharingService interface {
	CanReadMeals(ctx context.Context, coachID, clientID primitive.ObjectID) (bool, error)
	CanReadWeight(ctx context.Context, coachID, clientID primitive.ObjectID) (bool, error)

	GetClientMeals(ctx context.Context, coachID, clientID primitive.ObjectID, from, to time.Time) ([]MealRecord, error)
	GetClientWeightEntries(ctx context.Context, coachID, clientID primitive.ObjectID, from, to time.Time) ([]domain.WeightEntry, error)

	// Settings are owned by the client; coaches never write them.
	GetSettings(ctx context.Context, clientID primitive.ObjectID) (*domain.SharingSettings, error)
	UpdateSettings(ctx context.Context, clientID primitive.ObjectID, shareMeals, shareWeight bool) (*domain.SharingSettings, error)
}

type sharingService struct {
	connectionRepo repository.ConnectionRepository
	sharingRepo    repository.SharingSettingsRepository
	mealRepo       repository.MealEntryRepository
	weightRepo     repository.WeightEntryRepository
	photos         storage.PhotoStorage
}

// NewSharingService creates a new instance of sharingService.
func NewSharingService(
	connectionRepo repository.ConnectionRepository,
	sharingRepo repository.SharingSettingsRepository,
	mealRepo repository.MealEntryRepository,
	weightRepo repository.WeightEntryRepository,
	photos storage.PhotoStorage,
) SharingService {
	return &sharingService{
		connectionRepo: connectionRepo,
		sharingRepo:    sharingRepo,
		mealRepo:       mealRepo,
		weightRepo:     weightRepo,
		photos:         photos,
	}
}

// CanReadMeals is connectionIsActive AND shareMealsAuto, in that order.
func (s *sharingService) CanReadMeals(ctx context.Context, coachID, clientID primitive.ObjectID) (bool, error) {
	return s.canRead(ctx, coachID, clientID, func(settings *domain.SharingSettings) bool {
		return settings.ShareMealsAuto
	})
}

// CanReadWeight is connectionIsActive AND shareWeightAuto.
func (s *sharingService) CanReadWeight(ctx context.Context, coachID, clientID primitive.ObjectID) (bool, error) {
	return s.canRead(ctx, coachID, clientID, func(settings *domain.SharingSettings) bool {
		return settings.ShareWeightAuto
	})
}

// canRead checks the connection status first: a non-active connection grants
// zero visibility regardless of the toggles, which is why disconnect never
// needs to clear them.
func (s *sharingService) canRead(ctx context.Context, coachID, clientID primitive.ObjectID, allowed func(*domain.SharingSettings) bool) (bool, error) {
	if coachID == primitive.NilObjectID || clientID == primitive.NilObjectID {
		return false, nil
	}

	if _, err := s.connectionRepo.FindActive(ctx, coachID, clientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	settings, err := s.sharingRepo.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// No row yet means never shared anything.
			return false, nil
		}
		return false, err
	}
	return allowed(settings), nil
}

// GetClientMeals returns the client's meals in range if the gate allows, and
// an empty slice otherwise.
func (s *sharingService) GetClientMeals(ctx context.Context, coachID, clientID primitive.ObjectID, from, to time.Time) ([]MealRecord, error) {
	ok, err := s.CanReadMeals(ctx, coachID, clientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []MealRecord{}, nil
	}

	entries, err := s.mealRepo.ListByClientAndRange(ctx, clientID, from, to)
	if err != nil {
		return nil, err
	}

	records := make([]MealRecord, 0, len(entries))
	for _, entry := range entries {
		record := MealRecord{MealEntry: entry}
		if entry.PhotoObjectKey != "" {
			url, err := s.photos.GeneratePresignedDownloadURL(ctx, entry.PhotoObjectKey, storage.DefaultPresignedURLExpiry)
			if err != nil {
				// The meal data is still useful without its photo.
				logger.Warn("failed to presign meal photo",
					zap.String("entryId", entry.ID.Hex()),
					zap.Error(err),
				)
			} else {
				record.PhotoURL = &url
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// GetClientWeightEntries returns the client's weight entries in range if the
// gate allows, and an empty slice otherwise.
func (s *sharingService) GetClientWeightEntries(ctx context.Context, coachID, clientID primitive.ObjectID, from, to time.Time) ([]domain.WeightEntry, error) {
	ok, err := s.CanReadWeight(ctx, coachID, clientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.WeightEntry{}, nil
	}
	return s.weightRepo.ListByClientAndRange(ctx, clientID, from, to)
}

// GetSettings returns the client's toggles, defaulting to private when no row
// exists yet.
func (s *sharingService) GetSettings(ctx context.Context, clientID primitive.ObjectID) (*domain.SharingSettings, error) {
	settings, err := s.sharingRepo.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.SharingSettings{ClientID: clientID}, nil
		}
		return nil, err
	}
	return settings, nil
}

// UpdateSettings overwrites the client's toggles, creating the row first if
// the client has never had one.
func (s *sharingService) UpdateSettings(ctx context.Context, clientID primitive.ObjectID, shareMeals, shareWeight bool) (*domain.SharingSettings, error) {
	if clientID == primitive.NilObjectID {
		return nil, errors.New("client ID is required")
	}

	if err := s.sharingRepo.EnsureDefaults(ctx, clientID); err != nil {
		return nil, err
	}

	settings := &domain.SharingSettings{
		ClientID:        clientID,
		ShareMealsAuto:  shareMeals,
		ShareWeightAuto: shareWeight,
	}
	if err := s.sharingRepo.Update(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
