package service

import (
	"context"
	"testing"
	"time"

	"mealcoach/coaching-app/internal/domain"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSubmitLead(t *testing.T) {
	svc := NewLeadService(newFakeLeadRepo(), 24*time.Hour)

	lead, err := svc.SubmitLead(context.Background(), primitive.NewObjectID(), LeadInput{
		Goal:              "lose weight",
		WeightRange:       "80-90kg",
		ContactPreference: []string{"email"},
		BestTime:          "evenings",
	})
	require.NoError(t, err)
	require.Equal(t, domain.LeadNew, lead.Status)
	require.Equal(t, "lose weight", lead.Goal)
	require.False(t, lead.ID.IsZero())
}

func TestSubmitLeadRequiresGoal(t *testing.T) {
	svc := NewLeadService(newFakeLeadRepo(), 24*time.Hour)

	_, err := svc.SubmitLead(context.Background(), primitive.NewObjectID(), LeadInput{})
	require.Error(t, err)
}

func TestSubmitLeadThrottledWithinInterval(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	svc := NewLeadService(leadRepo, 24*time.Hour)
	userID := primitive.NewObjectID()

	_, err := svc.SubmitLead(context.Background(), userID, LeadInput{Goal: "gain muscle"})
	require.NoError(t, err)

	// A second submission 12 hours later is still inside the window.
	twelveHoursAgo := time.Now().UTC().Add(-12 * time.Hour)
	leadRepo.mu.Lock()
	for _, lead := range leadRepo.leads {
		lead.CreatedAt = twelveHoursAgo
	}
	leadRepo.mu.Unlock()

	_, err = svc.SubmitLead(context.Background(), userID, LeadInput{Goal: "gain muscle"})
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestSubmitLeadAllowedAfterInterval(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	svc := NewLeadService(leadRepo, 24*time.Hour)
	userID := primitive.NewObjectID()

	_, err := svc.SubmitLead(context.Background(), userID, LeadInput{Goal: "run a marathon"})
	require.NoError(t, err)

	// Backdate past the window; the next submission goes through.
	aged := time.Now().UTC().Add(-25 * time.Hour)
	leadRepo.mu.Lock()
	for _, lead := range leadRepo.leads {
		lead.CreatedAt = aged
	}
	leadRepo.mu.Unlock()

	_, err = svc.SubmitLead(context.Background(), userID, LeadInput{Goal: "run a marathon"})
	require.NoError(t, err)
}

func TestSubmitLeadThrottleIsPerUser(t *testing.T) {
	svc := NewLeadService(newFakeLeadRepo(), 24*time.Hour)

	_, err := svc.SubmitLead(context.Background(), primitive.NewObjectID(), LeadInput{Goal: "tone up"})
	require.NoError(t, err)

	// A different user is not affected by the first user's submission.
	_, err = svc.SubmitLead(context.Background(), primitive.NewObjectID(), LeadInput{Goal: "tone up"})
	require.NoError(t, err)
}

func TestUpdateLeadStatus(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	svc := NewLeadService(leadRepo, 24*time.Hour)

	lead, err := svc.SubmitLead(context.Background(), primitive.NewObjectID(), LeadInput{Goal: "get stronger"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateLeadStatus(context.Background(), lead.ID, domain.LeadContacted))

	leads, err := svc.ListLeads(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 1)
	require.Equal(t, domain.LeadContacted, leads[0].Status)
}

func TestUpdateLeadStatusUnknownStatus(t *testing.T) {
	svc := NewLeadService(newFakeLeadRepo(), 24*time.Hour)

	err := svc.UpdateLeadStatus(context.Background(), primitive.NewObjectID(), domain.LeadStatus("archived"))
	require.Error(t, err)
}

func TestUpdateLeadStatusNotFound(t *testing.T) {
	svc := NewLeadService(newFakeLeadRepo(), 24*time.Hour)

	err := svc.UpdateLeadStatus(context.Background(), primitive.NewObjectID(), domain.LeadConverted)
	require.ErrorIs(t, err, ErrLeadNotFound)
}

func TestListLeads(t *testing.T) {
	svc := NewLeadService(newFakeLeadRepo(), 24*time.Hour)

	_, err := svc.SubmitLead(context.Background(), primitive.NewObjectID(), LeadInput{Goal: "a"})
	require.NoError(t, err)
	_, err = svc.SubmitLead(context.Background(), primitive.NewObjectID(), LeadInput{Goal: "b"})
	require.NoError(t, err)

	leads, err := svc.ListLeads(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 2)
}
