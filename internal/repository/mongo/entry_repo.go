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

const (
	mealCollectionName   = "meal_entries"
	weightCollectionName = "weight_entries"
)

// mongoMealEntryRepository implements repository.MealEntryRepository.
type mongoMealEntryRepository struct {
	collection *mongo.Collection
}

// NewMongoMealEntryRepository creates a new MealEntry repository backed by MongoDB.
func NewMongoMealEntryRepository(db *mongo.Database) repository.MealEntryRepository {
	return &mongoMealEntryRepository{
		collection: db.Collection(mealCollectionName),
	}
}

// Create inserts a logged meal.
func (r *mongoMealEntryRepository) Create(ctx context.Context, entry *domain.MealEntry) (primitive.ObjectID, error) {
	if entry.ClientID == primitive.NilObjectID || entry.Name == "" {
		return primitive.NilObjectID, errors.New("meal entry requires clientId and name")
	}

	entry.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	entry.CreatedAt = now
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = now
	}

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted meal entry ID")
	}
	return insertedID, nil
}

// ListByClientAndRange retrieves a client's meals within [from, to], newest first.
func (r *mongoMealEntryRepository) ListByClientAndRange(ctx context.Context, clientID primitive.ObjectID, from, to time.Time) ([]domain.MealEntry, error) {
	var entries []domain.MealEntry
	filter := bson.M{
		"clientId": clientID,
		"loggedAt": bson.M{"$gte": from, "$lte": to},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "loggedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes the client's entry and returns the removed document.
func (r *mongoMealEntryRepository) Delete(ctx context.Context, clientID, entryID primitive.ObjectID) (*domain.MealEntry, error) {
	filter := bson.M{"_id": entryID, "clientId": clientID}

	var entry domain.MealEntry
	err := r.collection.FindOneAndDelete(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// mongoWeightEntryRepository implements repository.WeightEntryRepository.
type mongoWeightEntryRepository struct {
	collection *mongo.Collection
}

// NewMongoWeightEntryRepository creates a new WeightEntry repository backed by MongoDB.
func NewMongoWeightEntryRepository(db *mongo.Database) repository.WeightEntryRepository {
	return &mongoWeightEntryRepository{
		collection: db.Collection(weightCollectionName),
	}
}

// Create inserts a logged weight measurement.
func (r *mongoWeightEntryRepository) Create(ctx context.Context, entry *domain.WeightEntry) (primitive.ObjectID, error) {
	if entry.ClientID == primitive.NilObjectID || entry.WeightKg <= 0 {
		return primitive.NilObjectID, errors.New("weight entry requires clientId and a positive weight")
	}

	entry.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	entry.CreatedAt = now
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = now
	}

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted weight entry ID")
	}
	return insertedID, nil
}

// ListByClientAndRange retrieves a client's weight entries within [from, to], newest first.
func (r *mongoWeightEntryRepository) ListByClientAndRange(ctx context.Context, clientID primitive.ObjectID, from, to time.Time) ([]domain.WeightEntry, error) {
	var entries []domain.WeightEntry
	filter := bson.M{
		"clientId": clientID,
		"recordedAt": bson.M{"$gte": from, "$lte": to},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// EnsureEntryIndexes creates necessary indexes for the meal and weight collections.
func EnsureEntryIndexes(ctx context.Context, meals, weights *mongo.Collection) {
	mealIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "loggedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	weightIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "recordedAt", Value: -1}},
			Options: options.Index(),
		},
	}

	if _, err := meals.Indexes().CreateMany(ctx, mealIndexes); err != nil {
		logger.Warn("failed to create meal entry indexes", zap.Error(err))
	}
	if _, err := weights.Indexes().CreateMany(ctx, weightIndexes); err != nil {
		logger.Warn("failed to create weight entry indexes", zap.Error(err))
	}
}
