package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/identity"
	"mealcoach/coaching-app/internal/logger"
	"mealcoach/coaching-app/internal/mailer"
	"mealcoach/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ConnectionService owns the connection state machine:
//
//	(none) -> pending_request -> pending_code -> active -> disconnected
//	                    \-> declined      \-> declined
//
// Every transition is a conditional write keyed on the expected pre-state;
// messaging and capacity checks are best-effort around that atomic core.
type ConnectionService interface {
	// CreateRequest is the client-initiated path: the client names a coach by
	// email and a pending_request row is inserted.
	CreateRequest(ctx context.Context, clientID primitive.ObjectID, coachEmail string) (*domain.Connection, error)
	// Approve transitions pending_request (or pending_code, reissuing after
	// expiry) to pending_code, issues an invite code and emails it to the
	// client. The email send never rolls the transition back.
	Approve(ctx context.Context, coachID, connectionID primitive.ObjectID) (*domain.Connection, error)
	// Decline moves any non-terminal connection to declined. Declining an
	// already-declined row is a no-op.
	Decline(ctx context.Context, coachID, connectionID primitive.ObjectID) error
	// VerifyCode consumes the connection's live code and activates the
	// connection, creating the client's private-by-default sharing settings.
	VerifyCode(ctx context.Context, clientID, connectionID primitive.ObjectID, submittedCode string) (*domain.Connection, error)
	// Disconnect moves an active connection to disconnected. Either party may
	// call it.
	Disconnect(ctx context.Context, actorID, connectionID primitive.ObjectID) error

	ListByCoach(ctx context.Context, coachID primitive.ObjectID, status domain.ConnectionStatus) ([]domain.Connection, error)
	ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.Connection, error)
}

type connectionService struct {
	connectionRepo repository.ConnectionRepository
	codeRepo       repository.InviteCodeRepository
	sharingRepo    repository.SharingSettingsRepository
	coachRepo      repository.CoachRepository
	directory      identity.Directory
	mail           mailer.Mailer
	capacity       CapacityService
	issuer         *CodeIssuer
}

// NewConnectionService creates a new instance of connectionService.
func NewConnectionService(
	connectionRepo repository.ConnectionRepository,
	codeRepo repository.InviteCodeRepository,
	sharingRepo repository.SharingSettingsRepository,
	coachRepo repository.CoachRepository,
	directory identity.Directory,
	mail mailer.Mailer,
	capacity CapacityService,
	issuer *CodeIssuer,
) ConnectionService {
	return &connectionService{
		connectionRepo: connectionRepo,
		codeRepo:       codeRepo,
		sharingRepo:    sharingRepo,
		coachRepo:      coachRepo,
		directory:      directory,
		mail:           mail,
		capacity:       capacity,
		issuer:         issuer,
	}
}

// CreateRequest resolves the coach email and inserts a pending_request row.
func (s *connectionService) CreateRequest(ctx context.Context, clientID primitive.ObjectID, coachEmail string) (*domain.Connection, error) {
	if clientID == primitive.NilObjectID || coachEmail == "" {
		return nil, errors.New("client ID and coach email are required")
	}

	owner, err := s.directory.LookupByEmail(ctx, coachEmail)
	if err != nil {
		if errors.Is(err, identity.ErrProfileNotFound) {
			return nil, ErrCoachNotFound
		}
		return nil, err
	}
	coach, err := s.coachRepo.GetByOwnerProfileID(ctx, owner.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A profile without a coach account cannot receive requests.
			return nil, ErrCoachNotFound
		}
		return nil, err
	}

	// Reject duplicates before the insert; the partial unique index catches
	// the race where two requests arrive together.
	if _, err := s.connectionRepo.FindNonTerminal(ctx, coach.ID, clientID); err == nil {
		return nil, ErrConnectionConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	conn := &domain.Connection{
		CoachID:  coach.ID,
		ClientID: clientID,
		Status:   domain.StatusPendingRequest,
	}
	connID, err := s.connectionRepo.Create(ctx, conn)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConnectionConflict
		}
		return nil, err
	}
	conn.ID = connID
	return conn, nil
}

// Approve checks capacity, issues a code, and transitions to pending_code.
func (s *connectionService) Approve(ctx context.Context, coachID, connectionID primitive.ObjectID) (*domain.Connection, error) {
	conn, err := s.getOwnedByCoach(ctx, coachID, connectionID)
	if err != nil {
		return nil, err
	}

	switch conn.Status {
	case domain.StatusPendingRequest, domain.StatusPendingCode:
		// pending_code re-approval reissues a fresh code after expiry.
	default:
		return nil, ErrConnectionConflict
	}

	// Capacity is checked before any mutation; the unclamped count decides.
	coach, err := s.coachRepo.GetByID(ctx, conn.CoachID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.capacity.Snapshot(ctx, coach)
	if err != nil {
		return nil, err
	}
	if snapshot.AtCapacity() {
		return nil, ErrCapacityExceeded
	}

	if conn.Status == domain.StatusPendingRequest {
		err = s.connectionRepo.TransitionStatus(ctx, conn.ID, domain.StatusPendingCode, domain.StatusPendingRequest)
		if err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return nil, ErrConnectionConflict
			}
			return nil, err
		}
		conn.Status = domain.StatusPendingCode
	}

	code, err := s.issuer.Issue(ctx, conn.ID)
	if err != nil {
		return nil, err
	}

	// Fire-and-forget delivery. A failed or unresolvable send is logged and
	// swallowed; the coach can hand the code to the client out-of-band.
	s.deliverCode(conn, code.Code)

	return conn, nil
}

func (s *connectionService) deliverCode(conn *domain.Connection, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	go func() {
		defer cancel()
		client, err := s.directory.Resolve(ctx, conn.ClientID)
		if err != nil {
			logger.Warn("could not resolve client identity for code delivery",
				zap.String("connectionId", conn.ID.Hex()),
				zap.Error(err),
			)
			return
		}
		if err := s.mail.SendInviteCode(ctx, client.Email, client.Name, code); err != nil {
			logger.Warn("invite code email failed",
				zap.String("connectionId", conn.ID.Hex()),
				zap.Error(err),
			)
		}
	}()
}

// Decline moves the connection to declined. Idempotent on declined rows.
func (s *connectionService) Decline(ctx context.Context, coachID, connectionID primitive.ObjectID) error {
	conn, err := s.getOwnedByCoach(ctx, coachID, connectionID)
	if err != nil {
		return err
	}

	switch conn.Status {
	case domain.StatusDeclined:
		return nil
	case domain.StatusDisconnected:
		return ErrConnectionConflict
	}

	err = s.connectionRepo.TransitionStatus(ctx, conn.ID, domain.StatusDeclined, domain.NonTerminalStatuses()...)
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			// Lost a race against another transition; declined twice is fine.
			current, getErr := s.connectionRepo.GetByID(ctx, conn.ID)
			if getErr == nil && current.Status == domain.StatusDeclined {
				return nil
			}
			return ErrConnectionConflict
		}
		return err
	}
	return nil
}

// VerifyCode consumes the live code and activates the connection.
func (s *connectionService) VerifyCode(ctx context.Context, clientID, connectionID primitive.ObjectID, submittedCode string) (*domain.Connection, error) {
	if connectionID == primitive.NilObjectID || submittedCode == "" {
		return nil, ErrInvalidCode
	}

	conn, err := s.connectionRepo.GetByID(ctx, connectionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Do not reveal whether the connection exists.
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if conn.ClientID != clientID {
		return nil, ErrInvalidCode
	}
	if conn.Status != domain.StatusPendingCode {
		return nil, ErrInvalidCode
	}

	code, err := s.codeRepo.GetUnconsumed(ctx, conn.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	// Case-insensitive comparison against the canonical upper-case form. A
	// mismatch does not consume the code; the client may retry.
	if strings.ToUpper(strings.TrimSpace(submittedCode)) != code.Code {
		return nil, ErrInvalidCode
	}

	now := time.Now().UTC()
	if code.IsExpired(now) {
		// The coach must re-approve to mint a fresh code.
		return nil, ErrCodeExpired
	}

	// Consume, then activate. Both writes are conditional, so two racing
	// verifications cannot both succeed.
	if err := s.codeRepo.Consume(ctx, conn.ID, code.Code, now); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if err := s.connectionRepo.Activate(ctx, conn.ID, now); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	// Private by default the moment the connection becomes active. Existing
	// toggles are left untouched.
	if err := s.sharingRepo.EnsureDefaults(ctx, conn.ClientID); err != nil {
		logger.Error("failed to ensure sharing settings row",
			zap.String("clientId", conn.ClientID.Hex()),
			zap.Error(err),
		)
		return nil, err
	}

	conn.Status = domain.StatusActive
	conn.ConnectedAt = &now
	return conn, nil
}

// Disconnect moves an active connection to disconnected.
func (s *connectionService) Disconnect(ctx context.Context, actorID, connectionID primitive.ObjectID) error {
	conn, err := s.connectionRepo.GetByID(ctx, connectionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrConnectionNotFound
		}
		return err
	}

	if !s.isParticipant(ctx, actorID, conn) {
		return ErrNotParticipant
	}
	if conn.Status != domain.StatusActive {
		return ErrConnectionNotActive
	}

	err = s.connectionRepo.TransitionStatus(ctx, conn.ID, domain.StatusDisconnected, domain.StatusActive)
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return ErrConnectionNotActive
		}
		return err
	}
	return nil
}

// ListByCoach retrieves a coach's connections, optionally filtered by status.
func (s *connectionService) ListByCoach(ctx context.Context, coachID primitive.ObjectID, status domain.ConnectionStatus) ([]domain.Connection, error) {
	return s.connectionRepo.ListByCoach(ctx, coachID, status)
}

// ListByClient retrieves all connections the client is party to.
func (s *connectionService) ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.Connection, error) {
	return s.connectionRepo.ListByClient(ctx, clientID)
}

// getOwnedByCoach loads the connection and authorizes the acting coach.
func (s *connectionService) getOwnedByCoach(ctx context.Context, coachID, connectionID primitive.ObjectID) (*domain.Connection, error) {
	if coachID == primitive.NilObjectID || connectionID == primitive.NilObjectID {
		return nil, errors.New("coach ID and connection ID are required")
	}

	conn, err := s.connectionRepo.GetByID(ctx, connectionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConnectionNotFound
		}
		return nil, err
	}
	if conn.CoachID != coachID {
		return nil, ErrNotParticipant
	}
	return conn, nil
}

// isParticipant reports whether the actor is the connection's client or the
// profile owning its coach account.
func (s *connectionService) isParticipant(ctx context.Context, actorID primitive.ObjectID, conn *domain.Connection) bool {
	if conn.ClientID == actorID {
		return true
	}
	coach, err := s.coachRepo.GetByID(ctx, conn.CoachID)
	if err != nil {
		return false
	}
	return coach.OwnerProfileID == actorID || coach.ID == actorID
}
