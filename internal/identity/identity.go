package identity

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrProfileNotFound signals that the directory has no profile for the given
// user or email. Callers must treat this as a hard not-found; a missing
// address is never substituted with a synthesized one.
var ErrProfileNotFound = DirectoryError("profile not found")

// DirectoryError helps distinguish identity directory errors.
type DirectoryError string

func (e DirectoryError) Error() string {
	return string(e)
}

// Identity is the directory's answer for a user: a display name and a
// verified email address.
type Identity struct {
	UserID primitive.ObjectID
	Name   string
	Email  string
}

// Directory resolves user identities. The profile data itself is owned by the
// platform's account system; this service only reads it.
type Directory interface {
	Resolve(ctx context.Context, userID primitive.ObjectID) (*Identity, error)
	LookupByEmail(ctx context.Context, email string) (*Identity, error)
}
