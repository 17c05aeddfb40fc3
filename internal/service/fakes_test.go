package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/identity"
	"mealcoach/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes with the same conditional-write semantics as the
// mongo implementations.

type fakeCoachRepo struct {
	mu      sync.Mutex
	coaches map[primitive.ObjectID]*domain.Coach
}

func newFakeCoachRepo() *fakeCoachRepo {
	return &fakeCoachRepo{coaches: make(map[primitive.ObjectID]*domain.Coach)}
}

func (r *fakeCoachRepo) Create(ctx context.Context, coach *domain.Coach) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if coach.ID == primitive.NilObjectID {
		coach.ID = primitive.NewObjectID()
	}
	cp := *coach
	r.coaches[coach.ID] = &cp
	return coach.ID, nil
}

func (r *fakeCoachRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Coach, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coach, ok := r.coaches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *coach
	return &cp, nil
}

func (r *fakeCoachRepo) GetByOwnerProfileID(ctx context.Context, profileID primitive.ObjectID) (*domain.Coach, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, coach := range r.coaches {
		if coach.OwnerProfileID == profileID {
			cp := *coach
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeConnectionRepo struct {
	mu          sync.Mutex
	connections map[primitive.ObjectID]*domain.Connection
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{connections: make(map[primitive.ObjectID]*domain.Connection)}
}

func (r *fakeConnectionRepo) Create(ctx context.Context, conn *domain.Connection) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.connections {
		if existing.CoachID == conn.CoachID && existing.ClientID == conn.ClientID && !existing.Status.IsTerminal() {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	if conn.ID == primitive.NilObjectID {
		conn.ID = primitive.NewObjectID()
	}
	conn.CreatedAt = time.Now().UTC()
	conn.UpdatedAt = conn.CreatedAt
	cp := *conn
	r.connections[conn.ID] = &cp
	return conn.ID, nil
}

func (r *fakeConnectionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *conn
	return &cp, nil
}

func (r *fakeConnectionRepo) FindNonTerminal(ctx context.Context, coachID, clientID primitive.ObjectID) (*domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conn := range r.connections {
		if conn.CoachID == coachID && conn.ClientID == clientID && !conn.Status.IsTerminal() {
			cp := *conn
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeConnectionRepo) FindActive(ctx context.Context, coachID, clientID primitive.ObjectID) (*domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conn := range r.connections {
		if conn.CoachID == coachID && conn.ClientID == clientID && conn.Status == domain.StatusActive {
			cp := *conn
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeConnectionRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, to domain.ConnectionStatus, from ...domain.ConnectionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[id]
	if !ok {
		return repository.ErrStaleStatus
	}
	matched := false
	for _, status := range from {
		if conn.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return repository.ErrStaleStatus
	}
	conn.Status = to
	conn.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeConnectionRepo) Activate(ctx context.Context, id primitive.ObjectID, connectedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[id]
	if !ok || conn.Status != domain.StatusPendingCode {
		return repository.ErrStaleStatus
	}
	conn.Status = domain.StatusActive
	conn.ConnectedAt = &connectedAt
	conn.UpdatedAt = connectedAt
	return nil
}

func (r *fakeConnectionRepo) CountActiveByCoach(ctx context.Context, coachID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, conn := range r.connections {
		if conn.CoachID == coachID && conn.Status == domain.StatusActive {
			count++
		}
	}
	return count, nil
}

func (r *fakeConnectionRepo) ListByCoach(ctx context.Context, coachID primitive.ObjectID, status domain.ConnectionStatus) ([]domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Connection{}
	for _, conn := range r.connections {
		if conn.CoachID != coachID {
			continue
		}
		if status != "" && conn.Status != status {
			continue
		}
		out = append(out, *conn)
	}
	return out, nil
}

func (r *fakeConnectionRepo) ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Connection{}
	for _, conn := range r.connections {
		if conn.ClientID == clientID {
			out = append(out, *conn)
		}
	}
	return out, nil
}

type fakeInviteCodeRepo struct {
	mu    sync.Mutex
	codes map[primitive.ObjectID]*domain.InviteCode
}

func newFakeInviteCodeRepo() *fakeInviteCodeRepo {
	return &fakeInviteCodeRepo{codes: make(map[primitive.ObjectID]*domain.InviteCode)}
}

func (r *fakeInviteCodeRepo) Create(ctx context.Context, code *domain.InviteCode) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code.ID == primitive.NilObjectID {
		code.ID = primitive.NewObjectID()
	}
	cp := *code
	r.codes[code.ID] = &cp
	return code.ID, nil
}

func (r *fakeInviteCodeRepo) GetUnconsumed(ctx context.Context, connectionID primitive.ObjectID) (*domain.InviteCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range r.codes {
		if code.ConnectionID == connectionID && code.ConsumedAt == nil {
			cp := *code
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeInviteCodeRepo) DeleteUnconsumed(ctx context.Context, connectionID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, code := range r.codes {
		if code.ConnectionID == connectionID && code.ConsumedAt == nil {
			delete(r.codes, id)
		}
	}
	return nil
}

func (r *fakeInviteCodeRepo) Consume(ctx context.Context, connectionID primitive.ObjectID, code string, consumedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.codes {
		if stored.ConnectionID == connectionID && stored.Code == code && stored.ConsumedAt == nil {
			stored.ConsumedAt = &consumedAt
			return nil
		}
	}
	return repository.ErrStaleStatus
}

type fakeSharingRepo struct {
	mu       sync.Mutex
	settings map[primitive.ObjectID]*domain.SharingSettings
}

func newFakeSharingRepo() *fakeSharingRepo {
	return &fakeSharingRepo{settings: make(map[primitive.ObjectID]*domain.SharingSettings)}
}

func (r *fakeSharingRepo) Get(ctx context.Context, clientID primitive.ObjectID) (*domain.SharingSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	settings, ok := r.settings[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *settings
	return &cp, nil
}

func (r *fakeSharingRepo) EnsureDefaults(ctx context.Context, clientID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settings[clientID]; !ok {
		r.settings[clientID] = &domain.SharingSettings{ClientID: clientID, UpdatedAt: time.Now().UTC()}
	}
	return nil
}

func (r *fakeSharingRepo) Update(ctx context.Context, settings *domain.SharingSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *settings
	cp.UpdatedAt = time.Now().UTC()
	r.settings[settings.ClientID] = &cp
	return nil
}

type fakeReminderRepo struct {
	mu        sync.Mutex
	reminders map[primitive.ObjectID]*domain.ReminderRequest
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{reminders: make(map[primitive.ObjectID]*domain.ReminderRequest)}
}

func (r *fakeReminderRepo) Create(ctx context.Context, reminder *domain.ReminderRequest) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reminder.ID == primitive.NilObjectID {
		reminder.ID = primitive.NewObjectID()
	}
	reminder.CreatedAt = time.Now().UTC()
	reminder.UpdatedAt = reminder.CreatedAt
	cp := *reminder
	r.reminders[reminder.ID] = &cp
	return reminder.ID, nil
}

func (r *fakeReminderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ReminderRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder, ok := r.reminders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *reminder
	return &cp, nil
}

func (r *fakeReminderRepo) Complete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder, ok := r.reminders[id]
	if !ok || reminder.Status != domain.ReminderPending {
		return repository.ErrStaleStatus
	}
	reminder.Status = domain.ReminderCompleted
	reminder.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeReminderRepo) CompletePendingByKind(ctx context.Context, clientID primitive.ObjectID, kind domain.ReminderKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reminder := range r.reminders {
		if reminder.ClientID == clientID && reminder.Kind == kind && reminder.Status == domain.ReminderPending {
			reminder.Status = domain.ReminderCompleted
			reminder.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

func (r *fakeReminderRepo) ListByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.ReminderRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.ReminderRequest{}
	for _, reminder := range r.reminders {
		if reminder.CoachID == coachID {
			out = append(out, *reminder)
		}
	}
	return out, nil
}

func (r *fakeReminderRepo) ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ReminderRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.ReminderRequest{}
	for _, reminder := range r.reminders {
		if reminder.ClientID == clientID {
			out = append(out, *reminder)
		}
	}
	return out, nil
}

type fakeLeadRepo struct {
	mu    sync.Mutex
	leads map[primitive.ObjectID]*domain.CoachingLead
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: make(map[primitive.ObjectID]*domain.CoachingLead)}
}

func (r *fakeLeadRepo) Create(ctx context.Context, lead *domain.CoachingLead) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lead.ID == primitive.NilObjectID {
		lead.ID = primitive.NewObjectID()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	cp := *lead
	r.leads[lead.ID] = &cp
	return lead.ID, nil
}

func (r *fakeLeadRepo) CountByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, lead := range r.leads {
		if lead.UserID == userID && !lead.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeLeadRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.LeadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	lead.Status = status
	return nil
}

func (r *fakeLeadRepo) List(ctx context.Context) ([]domain.CoachingLead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.CoachingLead{}
	for _, lead := range r.leads {
		out = append(out, *lead)
	}
	return out, nil
}

type fakeMealRepo struct {
	mu      sync.Mutex
	entries []domain.MealEntry
}

func (r *fakeMealRepo) Create(ctx context.Context, entry *domain.MealEntry) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == primitive.NilObjectID {
		entry.ID = primitive.NewObjectID()
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, *entry)
	return entry.ID, nil
}

func (r *fakeMealRepo) ListByClientAndRange(ctx context.Context, clientID primitive.ObjectID, from, to time.Time) ([]domain.MealEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.MealEntry{}
	for _, entry := range r.entries {
		if entry.ClientID == clientID && !entry.LoggedAt.Before(from) && !entry.LoggedAt.After(to) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *fakeMealRepo) Delete(ctx context.Context, clientID, entryID primitive.ObjectID) (*domain.MealEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, entry := range r.entries {
		if entry.ID == entryID && entry.ClientID == clientID {
			removed := entry
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return &removed, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeWeightRepo struct {
	mu      sync.Mutex
	entries []domain.WeightEntry
}

func (r *fakeWeightRepo) Create(ctx context.Context, entry *domain.WeightEntry) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == primitive.NilObjectID {
		entry.ID = primitive.NewObjectID()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, *entry)
	return entry.ID, nil
}

func (r *fakeWeightRepo) ListByClientAndRange(ctx context.Context, clientID primitive.ObjectID, from, to time.Time) ([]domain.WeightEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.WeightEntry{}
	for _, entry := range r.entries {
		if entry.ClientID == clientID && !entry.RecordedAt.Before(from) && !entry.RecordedAt.After(to) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// fakeDirectory backs identity lookups with a static map.
type fakeDirectory struct {
	mu       sync.Mutex
	profiles map[primitive.ObjectID]identity.Identity
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{profiles: make(map[primitive.ObjectID]identity.Identity)}
}

func (d *fakeDirectory) add(id identity.Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[id.UserID] = id
}

func (d *fakeDirectory) Resolve(ctx context.Context, userID primitive.ObjectID) (*identity.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.profiles[userID]
	if !ok {
		return nil, identity.ErrProfileNotFound
	}
	return &id, nil
}

func (d *fakeDirectory) LookupByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range d.profiles {
		if strings.EqualFold(id.Email, email) {
			cp := id
			return &cp, nil
		}
	}
	return nil, identity.ErrProfileNotFound
}

// fakeMailer records invite code sends.
type fakeMailer struct {
	mu    sync.Mutex
	sends []string
}

func (m *fakeMailer) SendInviteCode(ctx context.Context, email, name, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, email+":"+code)
	return nil
}

func (m *fakeMailer) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

// fakePhotoStorage returns deterministic URLs and records deleted keys.
type fakePhotoStorage struct {
	mu      sync.Mutex
	deleted []string
}

func newFakePhotoStorage() *fakePhotoStorage {
	return &fakePhotoStorage{}
}

func (s *fakePhotoStorage) GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error) {
	return "https://storage.test/upload/" + objectKey, nil
}

func (s *fakePhotoStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return "https://storage.test/download/" + objectKey, nil
}

func (s *fakePhotoStorage) DeleteObject(ctx context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, objectKey)
	return nil
}

func (s *fakePhotoStorage) deletedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}
