package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/identity"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type connectionFixture struct {
	connectionRepo *fakeConnectionRepo
	codeRepo       *fakeInviteCodeRepo
	sharingRepo    *fakeSharingRepo
	coachRepo      *fakeCoachRepo
	directory      *fakeDirectory
	mail           *fakeMailer
	service        ConnectionService

	coach    *domain.Coach
	coachOwn primitive.ObjectID
	clientID primitive.ObjectID
}

func newConnectionFixture(t *testing.T) *connectionFixture {
	t.Helper()

	f := &connectionFixture{
		connectionRepo: newFakeConnectionRepo(),
		codeRepo:       newFakeInviteCodeRepo(),
		sharingRepo:    newFakeSharingRepo(),
		coachRepo:      newFakeCoachRepo(),
		directory:      newFakeDirectory(),
		mail:           &fakeMailer{},
	}

	f.coachOwn = primitive.NewObjectID()
	f.clientID = primitive.NewObjectID()

	f.coach = &domain.Coach{
		OwnerProfileID:   f.coachOwn,
		Tier:             domain.TierStarter,
		ExtraClientCount: 0,
	}
	_, err := f.coachRepo.Create(context.Background(), f.coach)
	require.NoError(t, err)

	f.directory.add(identity.Identity{UserID: f.coachOwn, Name: "Coach Carter", Email: "coach@example.com"})
	f.directory.add(identity.Identity{UserID: f.clientID, Name: "Casey Client", Email: "client@example.com"})

	capacity := NewCapacityService(f.connectionRepo, map[string]int{"starter": 10, "growth": 30, "pro": 100}, 5)
	issuer := NewCodeIssuer(f.codeRepo, 48*time.Hour)
	f.service = NewConnectionService(
		f.connectionRepo, f.codeRepo, f.sharingRepo, f.coachRepo,
		f.directory, f.mail, capacity, issuer,
	)
	return f
}

func (f *connectionFixture) liveCode(t *testing.T, connectionID primitive.ObjectID) string {
	t.Helper()
	code, err := f.codeRepo.GetUnconsumed(context.Background(), connectionID)
	require.NoError(t, err)
	return code.Code
}

func TestCreateRequestResolvesCoachByEmail(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingRequest, conn.Status)
	require.Equal(t, f.coach.ID, conn.CoachID)
	require.Equal(t, f.clientID, conn.ClientID)
}

func TestCreateRequestUnknownEmail(t *testing.T) {
	f := newConnectionFixture(t)

	_, err := f.service.CreateRequest(context.Background(), f.clientID, "nobody@example.com")
	require.ErrorIs(t, err, ErrCoachNotFound)
}

func TestCreateRequestProfileWithoutCoachAccount(t *testing.T) {
	f := newConnectionFixture(t)

	// The client's own profile exists in the directory but has no coach row.
	_, err := f.service.CreateRequest(context.Background(), primitive.NewObjectID(), "client@example.com")
	require.ErrorIs(t, err, ErrCoachNotFound)
}

func TestCreateRequestRejectsDuplicatePair(t *testing.T) {
	f := newConnectionFixture(t)

	_, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)

	_, err = f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.ErrorIs(t, err, ErrConnectionConflict)
}

func TestCreateRequestAllowedAfterDisconnect(t *testing.T) {
	f := newConnectionFixture(t)

	conn := f.fullLifecycle(t)
	require.NoError(t, f.service.Disconnect(context.Background(), f.clientID, conn.ID))

	// Terminal rows do not block a fresh request for the same pair.
	again, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingRequest, again.Status)
}

func TestApproveIssuesCodeAndMovesToPendingCode(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)

	approved, err := f.service.Approve(context.Background(), f.coach.ID, conn.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingCode, approved.Status)

	code := f.liveCode(t, conn.ID)
	require.Len(t, code, 6)
	for _, ch := range code {
		require.Contains(t, codeAlphabet, string(ch))
	}
}

func TestApproveByWrongCoach(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)

	_, err = f.service.Approve(context.Background(), primitive.NewObjectID(), conn.ID)
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestApproveAtCapacity(t *testing.T) {
	f := newConnectionFixture(t)

	// Starter tier with a 1-seat limit and the single seat taken.
	capacity := NewCapacityService(f.connectionRepo, map[string]int{"starter": 1}, 0)
	issuer := NewCodeIssuer(f.codeRepo, 48*time.Hour)
	svc := NewConnectionService(
		f.connectionRepo, f.codeRepo, f.sharingRepo, f.coachRepo,
		f.directory, f.mail, capacity, issuer,
	)

	occupied := &domain.Connection{CoachID: f.coach.ID, ClientID: primitive.NewObjectID(), Status: domain.StatusActive}
	_, err := f.connectionRepo.Create(context.Background(), occupied)
	require.NoError(t, err)

	conn, err := svc.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), f.coach.ID, conn.ID)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	// The request is left untouched for a later approval.
	current, err := f.connectionRepo.GetByID(context.Background(), conn.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingRequest, current.Status)
}

func TestApproveReissuesAfterExpiry(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	_, err = f.service.Approve(context.Background(), f.coach.ID, conn.ID)
	require.NoError(t, err)
	first := f.liveCode(t, conn.ID)

	// A second approval of a pending_code connection mints a fresh code and
	// invalidates the old one.
	_, err = f.service.Approve(context.Background(), f.coach.ID, conn.ID)
	require.NoError(t, err)
	second := f.liveCode(t, conn.ID)

	_, err = f.service.VerifyCode(context.Background(), f.clientID, conn.ID, first)
	if first != second {
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	verified, err := f.service.VerifyCode(context.Background(), f.clientID, conn.ID, second)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, verified.Status)
}

func TestDeclineIsIdempotent(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)

	require.NoError(t, f.service.Decline(context.Background(), f.coach.ID, conn.ID))
	require.NoError(t, f.service.Decline(context.Background(), f.coach.ID, conn.ID))

	current, err := f.connectionRepo.GetByID(context.Background(), conn.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDeclined, current.Status)
}

func TestDeclineAllowsFreshRequest(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	require.NoError(t, f.service.Decline(context.Background(), f.coach.ID, conn.ID))

	// Declined is terminal; the client may ask again with a new row.
	again, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	require.NotEqual(t, conn.ID, again.ID)
	require.Equal(t, domain.StatusPendingRequest, again.Status)
}

func TestDeclineDisconnectedConnection(t *testing.T) {
	f := newConnectionFixture(t)

	conn := f.fullLifecycle(t)
	require.NoError(t, f.service.Disconnect(context.Background(), f.clientID, conn.ID))

	err := f.service.Decline(context.Background(), f.coach.ID, conn.ID)
	require.ErrorIs(t, err, ErrConnectionConflict)
}

func TestVerifyCodeActivatesConnection(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	_, err = f.service.Approve(context.Background(), f.coach.ID, conn.ID)
	require.NoError(t, err)
	code := f.liveCode(t, conn.ID)

	// Lower-case with whitespace still verifies.
	verified, err := f.service.VerifyCode(context.Background(), f.clientID, conn.ID, "  "+strings.ToLower(code)+" ")
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, verified.Status)
	require.NotNil(t, verified.ConnectedAt)

	// Activation seeds the private-by-default sharing row.
	settings, err := f.sharingRepo.Get(context.Background(), f.clientID)
	require.NoError(t, err)
	require.False(t, settings.ShareMealsAuto)
	require.False(t, settings.ShareWeightAuto)
}

func TestVerifyCodeIsSingleUse(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	_, err = f.service.Approve(context.Background(), f.coach.ID, conn.ID)
	require.NoError(t, err)
	code := f.liveCode(t, conn.ID)

	_, err = f.service.VerifyCode(context.Background(), f.clientID, conn.ID, code)
	require.NoError(t, err)

	_, err = f.service.VerifyCode(context.Background(), f.clientID, conn.ID, code)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCodeWrongCode(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	_, err = f.service.Approve(context.Background(), f.coach.ID, conn.ID)
	require.NoError(t, err)

	_, err = f.service.VerifyCode(context.Background(), f.clientID, conn.ID, "WRONG1")
	require.ErrorIs(t, err, ErrInvalidCode)

	// A failed attempt does not consume the live code.
	code := f.liveCode(t, conn.ID)
	verified, err := f.service.VerifyCode(context.Background(), f.clientID, conn.ID, code)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, verified.Status)
}

func TestVerifyCodeExpired(t *testing.T) {
	f := newConnectionFixture(t)

	issuer := NewCodeIssuer(f.codeRepo, time.Nanosecond)
	capacity := NewCapacityService(f.connectionRepo, map[string]int{"starter": 10}, 5)
	svc := NewConnectionService(
		f.connectionRepo, f.codeRepo, f.sharingRepo, f.coachRepo,
		f.directory, f.mail, capacity, issuer,
	)

	conn, err := svc.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), f.coach.ID, conn.ID)
	require.NoError(t, err)
	code := f.liveCode(t, conn.ID)

	time.Sleep(time.Millisecond)

	_, err = svc.VerifyCode(context.Background(), f.clientID, conn.ID, code)
	require.ErrorIs(t, err, ErrCodeExpired)

	// Expiry does not consume; the coach can re-approve with a fresh issuer.
	current, err := f.connectionRepo.GetByID(context.Background(), conn.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingCode, current.Status)
}

func TestVerifyCodeWrongClient(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	_, err = f.service.Approve(context.Background(), f.coach.ID, conn.ID)
	require.NoError(t, err)
	code := f.liveCode(t, conn.ID)

	_, err = f.service.VerifyCode(context.Background(), primitive.NewObjectID(), conn.ID, code)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestDisconnectByEitherParty(t *testing.T) {
	f := newConnectionFixture(t)

	conn := f.fullLifecycle(t)
	require.NoError(t, f.service.Disconnect(context.Background(), f.coachOwn, conn.ID))

	current, err := f.connectionRepo.GetByID(context.Background(), conn.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDisconnected, current.Status)
}

func TestDisconnectByOutsider(t *testing.T) {
	f := newConnectionFixture(t)

	conn := f.fullLifecycle(t)
	err := f.service.Disconnect(context.Background(), primitive.NewObjectID(), conn.ID)
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestDisconnectPendingConnection(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)

	err = f.service.Disconnect(context.Background(), f.clientID, conn.ID)
	require.ErrorIs(t, err, ErrConnectionNotActive)
}

func TestInviteCodeEmailDelivery(t *testing.T) {
	f := newConnectionFixture(t)

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	_, err = f.service.Approve(context.Background(), f.coach.ID, conn.ID)
	require.NoError(t, err)

	// Delivery runs async and must not block approval.
	require.Eventually(t, func() bool {
		return f.mail.sendCount() == 1
	}, time.Second, 10*time.Millisecond)
}

// fullLifecycle runs request -> approve -> verify and returns the active
// connection.
func (f *connectionFixture) fullLifecycle(t *testing.T) *domain.Connection {
	t.Helper()

	conn, err := f.service.CreateRequest(context.Background(), f.clientID, "coach@example.com")
	require.NoError(t, err)
	_, err = f.service.Approve(context.Background(), f.coach.ID, conn.ID)
	require.NoError(t, err)

	verified, err := f.service.VerifyCode(context.Background(), f.clientID, conn.ID, f.liveCode(t, conn.ID))
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, verified.Status)
	return verified
}
