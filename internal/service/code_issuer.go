package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Code alphabet and length for invite codes. The code is a bearer credential
// for account linkage, so generation must come from crypto/rand, never a
// seeded PRNG.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// CodeIssuer generates and stores invite codes for pending connections.
type CodeIssuer struct {
	codeRepo repository.InviteCodeRepository
	ttl      time.Duration
}

// NewCodeIssuer creates a CodeIssuer with the configured TTL.
func NewCodeIssuer(codeRepo repository.InviteCodeRepository, ttl time.Duration) *CodeIssuer {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &CodeIssuer{
		codeRepo: codeRepo,
		ttl:      ttl,
	}
}

// Issue mints a fresh code for the connection, invalidating any live one so
// at most one unconsumed code exists per connection.
func (i *CodeIssuer) Issue(ctx context.Context, connectionID primitive.ObjectID) (*domain.InviteCode, error) {
	raw, err := generateCode()
	if err != nil {
		return nil, err
	}

	if err := i.codeRepo.DeleteUnconsumed(ctx, connectionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	code := &domain.InviteCode{
		ConnectionID: connectionID,
		Code:         raw,
		IssuedAt:     now,
		ExpiresAt:    now.Add(i.ttl),
	}
	codeID, err := i.codeRepo.Create(ctx, code)
	if err != nil {
		return nil, err
	}
	code.ID = codeID
	return code, nil
}

// generateCode draws codeLength characters uniformly from the alphabet.
func generateCode() (string, error) {
	out := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for n := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		out[n] = codeAlphabet[idx.Int64()]
	}
	return string(out), nil
}
