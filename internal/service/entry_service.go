package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/logger"
	"mealcoach/coaching-app/internal/repository"
	"mealcoach/coaching-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PhotoUploadResponse carries the presigned URL and the object key the client
// reports back when logging the meal.
type PhotoUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// EntryService is the client-side logging flow for meals and weight. Logging
// an entry completes any pending reminder of the matching kind, which is how
// the reminder channel's completion hook gets driven in practice.
type EntryService interface {
	LogMeal(ctx context.Context, clientID primitive.ObjectID, entry *domain.MealEntry) (*domain.MealEntry, error)
	LogWeight(ctx context.Context, clientID primitive.ObjectID, entry *domain.WeightEntry) (*domain.WeightEntry, error)
	// DeleteMeal removes the client's own entry and releases its photo object.
	DeleteMeal(ctx context.Context, clientID, entryID primitive.ObjectID) error
	GetMyMeals(ctx context.Context, clientID primitive.ObjectID, from, to time.Time) ([]domain.MealEntry, error)
	GetMyWeightEntries(ctx context.Context, clientID primitive.ObjectID, from, to time.Time) ([]domain.WeightEntry, error)
	// RequestPhotoUploadURL presigns a direct-to-storage PUT for a meal photo.
	RequestPhotoUploadURL(ctx context.Context, clientID primitive.ObjectID, contentType string) (*PhotoUploadResponse, error)
}

type entryService struct {
	mealRepo     repository.MealEntryRepository
	weightRepo   repository.WeightEntryRepository
	reminderRepo repository.ReminderRepository
	photos       storage.PhotoStorage
}

// NewEntryService creates a new instance of entryService.
func NewEntryService(
	mealRepo repository.MealEntryRepository,
	weightRepo repository.WeightEntryRepository,
	reminderRepo repository.ReminderRepository,
	photos storage.PhotoStorage,
) EntryService {
	return &entryService{
		mealRepo:     mealRepo,
		weightRepo:   weightRepo,
		reminderRepo: reminderRepo,
		photos:       photos,
	}
}

// LogMeal stores a meal entry and completes pending log_meals reminders.
func (s *entryService) LogMeal(ctx context.Context, clientID primitive.ObjectID, entry *domain.MealEntry) (*domain.MealEntry, error) {
	if clientID == primitive.NilObjectID {
		return nil, errors.New("client ID is required")
	}
	entry.ClientID = clientID

	entryID, err := s.mealRepo.Create(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry.ID = entryID

	s.completeReminders(ctx, clientID, domain.ReminderLogMeals)
	return entry, nil
}

// LogWeight stores a weight entry and completes pending weigh_in reminders.
func (s *entryService) LogWeight(ctx context.Context, clientID primitive.ObjectID, entry *domain.WeightEntry) (*domain.WeightEntry, error) {
	if clientID == primitive.NilObjectID {
		return nil, errors.New("client ID is required")
	}
	entry.ClientID = clientID

	entryID, err := s.weightRepo.Create(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry.ID = entryID

	s.completeReminders(ctx, clientID, domain.ReminderWeighIn)
	return entry, nil
}

// DeleteMeal removes the client's own meal entry. The attached photo object,
// if any, is deleted best-effort so uploads do not orphan; the entry is gone
// either way.
func (s *entryService) DeleteMeal(ctx context.Context, clientID, entryID primitive.ObjectID) error {
	entry, err := s.mealRepo.Delete(ctx, clientID, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEntryNotFound
		}
		return err
	}

	if entry.PhotoObjectKey != "" {
		if err := s.photos.DeleteObject(ctx, entry.PhotoObjectKey); err != nil {
			logger.Warn("failed to delete meal photo object",
				zap.String("clientId", clientID.Hex()),
				zap.String("objectKey", entry.PhotoObjectKey),
				zap.Error(err),
			)
		}
	}
	return nil
}

// completeReminders is best-effort: a failure here must not fail the log.
func (s *entryService) completeReminders(ctx context.Context, clientID primitive.ObjectID, kind domain.ReminderKind) {
	if err := s.reminderRepo.CompletePendingByKind(ctx, clientID, kind); err != nil {
		logger.Warn("failed to complete pending reminders",
			zap.String("clientId", clientID.Hex()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

// GetMyMeals retrieves the client's own meals in range. No gate here; clients
// always see their own data.
func (s *entryService) GetMyMeals(ctx context.Context, clientID primitive.ObjectID, from, to time.Time) ([]domain.MealEntry, error) {
	return s.mealRepo.ListByClientAndRange(ctx, clientID, from, to)
}

// GetMyWeightEntries retrieves the client's own weight entries in range.
func (s *entryService) GetMyWeightEntries(ctx context.Context, clientID primitive.ObjectID, from, to time.Time) ([]domain.WeightEntry, error) {
	return s.weightRepo.ListByClientAndRange(ctx, clientID, from, to)
}

// RequestPhotoUploadURL presigns a PUT for a new meal photo object.
func (s *entryService) RequestPhotoUploadURL(ctx context.Context, clientID primitive.ObjectID, contentType string) (*PhotoUploadResponse, error) {
	if clientID == primitive.NilObjectID {
		return nil, errors.New("client ID is required")
	}
	if contentType == "" || !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, errors.New("invalid or missing image content type")
	}

	ext := ""
	if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 {
		ext = "." + parts[1]
	}
	objectKey := path.Join("meal-photos", clientID.Hex(), fmt.Sprintf("%s%s", uuid.NewString(), ext))

	url, err := s.photos.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, err
	}
	return &PhotoUploadResponse{
		UploadURL: url,
		ObjectKey: objectKey,
	}, nil
}
