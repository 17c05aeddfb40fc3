package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIssueGeneratesSixCharUpperCaseCode(t *testing.T) {
	issuer := NewCodeIssuer(newFakeInviteCodeRepo(), 48*time.Hour)

	code, err := issuer.Issue(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	require.Len(t, code.Code, codeLength)
	require.Equal(t, strings.ToUpper(code.Code), code.Code)
	for _, ch := range code.Code {
		require.Contains(t, codeAlphabet, string(ch))
	}
}

func TestIssueSetsExpiryFromTTL(t *testing.T) {
	ttl := 2 * time.Hour
	issuer := NewCodeIssuer(newFakeInviteCodeRepo(), ttl)

	before := time.Now().UTC()
	code, err := issuer.Issue(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)

	require.WithinDuration(t, before.Add(ttl), code.ExpiresAt, time.Minute)
	require.Nil(t, code.ConsumedAt)
}

func TestIssueInvalidatesPreviousCode(t *testing.T) {
	codeRepo := newFakeInviteCodeRepo()
	issuer := NewCodeIssuer(codeRepo, 48*time.Hour)
	connectionID := primitive.NewObjectID()

	first, err := issuer.Issue(context.Background(), connectionID)
	require.NoError(t, err)
	second, err := issuer.Issue(context.Background(), connectionID)
	require.NoError(t, err)

	// At most one unconsumed code exists per connection.
	live, err := codeRepo.GetUnconsumed(context.Background(), connectionID)
	require.NoError(t, err)
	require.Equal(t, second.ID, live.ID)
	require.NotEqual(t, first.ID, live.ID)
}

func TestIssueDistinctCodes(t *testing.T) {
	issuer := NewCodeIssuer(newFakeInviteCodeRepo(), 48*time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := issuer.Issue(context.Background(), primitive.NewObjectID())
		require.NoError(t, err)
		seen[code.Code] = true
	}
	// 50 draws from 36^6 possibilities collide with negligible probability.
	require.Greater(t, len(seen), 45)
}
