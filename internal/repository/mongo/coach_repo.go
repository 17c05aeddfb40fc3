package mongo

import (
	"context"
	"errors"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/logger"
	"mealcoach/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const coachCollectionName = "coaches"

// mongoCoachRepository implements the repository.CoachRepository interface using MongoDB.
type mongoCoachRepository struct {
	collection *mongo.Collection
}

// NewMongoCoachRepository creates a new instance of mongoCoachRepository.
func NewMongoCoachRepository(db *mongo.Database) repository.CoachRepository {
	return &mongoCoachRepository{
		collection: db.Collection(coachCollectionName),
	}
}

// Create inserts a new coach account.
func (r *mongoCoachRepository) Create(ctx context.Context, coach *domain.Coach) (primitive.ObjectID, error) {
	if coach.OwnerProfileID == primitive.NilObjectID || coach.Tier == "" {
		return primitive.NilObjectID, errors.New("coach requires ownerProfileId and tier")
	}
	if coach.ExtraClientCount < 0 {
		return primitive.NilObjectID, errors.New("extraClientCount cannot be negative")
	}

	coach.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	coach.CreatedAt = now
	coach.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, coach)
	if err != nil {
		// One coach per owning profile, enforced by the unique index.
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted coach ID")
	}
	return insertedID, nil
}

// GetByID retrieves a coach by its MongoDB ObjectID.
func (r *mongoCoachRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Coach, error) {
	var coach domain.Coach
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&coach)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &coach, nil
}

// GetByOwnerProfileID retrieves the coach account owned by a profile.
func (r *mongoCoachRepository) GetByOwnerProfileID(ctx context.Context, profileID primitive.ObjectID) (*domain.Coach, error) {
	var coach domain.Coach
	filter := bson.M{"ownerProfileId": profileID}

	err := r.collection.FindOne(ctx, filter).Decode(&coach)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &coach, nil
}

// EnsureCoachIndexes creates necessary indexes for the coaches collection.
func EnsureCoachIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerProfileId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("failed to create coach indexes", zap.Error(err))
	}
}
