package mongo

import (
	"context"
	"errors"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sharingCollectionName = "sharing_settings"

// mongoSharingRepository implements repository.SharingSettingsRepository.
// The client's profile ID is the document _id; no separate index needed.
type mongoSharingRepository struct {
	collection *mongo.Collection
}

// NewMongoSharingRepository creates a new SharingSettings repository backed by MongoDB.
func NewMongoSharingRepository(db *mongo.Database) repository.SharingSettingsRepository {
	return &mongoSharingRepository{
		collection: db.Collection(sharingCollectionName),
	}
}

// Get retrieves a client's sharing settings.
func (r *mongoSharingRepository) Get(ctx context.Context, clientID primitive.ObjectID) (*domain.SharingSettings, error) {
	var settings domain.SharingSettings
	filter := bson.M{"_id": clientID}

	err := r.collection.FindOne(ctx, filter).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &settings, nil
}

// EnsureDefaults upserts the private-by-default row. $setOnInsert leaves an
// existing row's toggles untouched, so the call is safe to repeat on every
// activation.
func (r *mongoSharingRepository) EnsureDefaults(ctx context.Context, clientID primitive.ObjectID) error {
	filter := bson.M{"_id": clientID}
	update := bson.M{"$setOnInsert": bson.M{
		"shareMealsAuto":  false,
		"shareWeightAuto": false,
		"updatedAt":       time.Now().UTC(),
	}}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Update overwrites a client's toggles.
func (r *mongoSharingRepository) Update(ctx context.Context, settings *domain.SharingSettings) error {
	if settings.ClientID == primitive.NilObjectID {
		return errors.New("client ID is required for update")
	}

	filter := bson.M{"_id": settings.ClientID}
	update := bson.M{"$set": bson.M{
		"shareMealsAuto":  settings.ShareMealsAuto,
		"shareWeightAuto": settings.ShareWeightAuto,
		"updatedAt":       time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
