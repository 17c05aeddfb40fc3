package identity

import (
	"context"
	"errors"
	"strings"

	"mealcoach/coaching-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const profileCollectionName = "profiles"

// mongoDirectory implements Directory against the shared profiles collection.
type mongoDirectory struct {
	collection *mongo.Collection
}

// NewMongoDirectory creates a Directory backed by the MongoDB profiles collection.
func NewMongoDirectory(db *mongo.Database) Directory {
	return &mongoDirectory{
		collection: db.Collection(profileCollectionName),
	}
}

// Resolve returns the identity for a user ID.
func (d *mongoDirectory) Resolve(ctx context.Context, userID primitive.ObjectID) (*Identity, error) {
	return d.findOne(ctx, bson.M{"_id": userID})
}

// LookupByEmail returns the identity registered under an email address.
// Emails are stored lower-case by the account system; the lookup normalizes
// to match.
func (d *mongoDirectory) LookupByEmail(ctx context.Context, email string) (*Identity, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	return d.findOne(ctx, bson.M{"email": normalized})
}

func (d *mongoDirectory) findOne(ctx context.Context, filter bson.M) (*Identity, error) {
	var profile domain.Profile
	err := d.collection.FindOne(ctx, filter).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &Identity{
		UserID: profile.ID,
		Name:   profile.Name,
		Email:  profile.Email,
	}, nil
}
