package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/consultation-dashboard/internal/consultation"
	redisclient "github.com/hackgods/consultation-dashboard/internal/redis"
)

type memRepo struct {
	mu            sync.Mutex
	nurses        map[uuid.UUID]Nurse
	consultations map[uuid.UUID]Consultation
	notifications []Notification
	events        []EventLog
	notifyErr     error
	// beforeUpdate runs inside UpdateConsultationStatus before the CAS.
	beforeUpdate func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		nurses:        map[uuid.UUID]Nurse{},
		consultations: map[uuid.UUID]Consultation{},
	}
}

func (m *memRepo) GetNurseByID(ctx context.Context, id uuid.UUID) (*Nurse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nurses[id]
	if !ok {
		return nil, ErrNurseNotFound
	}
	return &n, nil
}

func (m *memRepo) CreateNurse(ctx context.Context, n Nurse) (*Nurse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nurses[n.ID] = n
	return &n, nil
}

func (m *memRepo) GetConsultationByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consultations[id]
	if !ok {
		return nil, ErrConsultationNotFound
	}
	return &c, nil
}

func (m *memRepo) ListConsultationsByNurse(ctx context.Context, nurseID uuid.UUID) ([]Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Consultation{}
	for _, c := range m.consultations {
		if c.NurseID == nurseID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepo) CreateConsultation(ctx context.Context, c Consultation) (*Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consultations[c.ID] = c
	return &c, nil
}

func (m *memRepo) UpdateConsultationStatus(ctx context.Context, id uuid.UUID, from, to consultation.Status) (*Consultation, error) {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consultations[id]
	if !ok || c.Status != from {
		return nil, ErrConsultationNotFound
	}
	c.Status = to
	m.consultations[id] = c
	return &c, nil
}

func (m *memRepo) InsertNotification(ctx context.Context, n Notification) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifyErr != nil {
		return nil, m.notifyErr
	}
	n.ID, n.MessageID = uuid.New(), uuid.New()
	m.notifications = append(m.notifications, n)
	return &n, nil
}

func (m *memRepo) ListNotifications(ctx context.Context, audience string, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Notification{}
	for _, n := range m.notifications {
		if audience == "" || n.Audience == audience {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memRepo) MarkNotificationRead(ctx context.Context, messageID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].MessageID == messageID {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return ErrNotificationNotFound
}

func (m *memRepo) InsertEvent(ctx context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

var fixedNow = time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC)

func setup(t *testing.T, status consultation.Status) (*Service, *memRepo, Consultation) {
	t.Helper()
	repo := newMemRepo()
	nurse := Nurse{ID: uuid.New(), Name: "Lan"}
	c := Consultation{
		ID:            uuid.New(),
		NurseID:       nurse.ID,
		PatientID:     uuid.New(),
		PatientName:   "Minh",
		ScheduledTime: fixedNow.Add(24 * time.Hour),
		EndTime:       fixedNow.Add(25 * time.Hour),
		Status:        status,
	}
	_, err := repo.CreateNurse(context.Background(), nurse)
	require.NoError(t, err)
	_, err = repo.CreateConsultation(context.Background(), c)
	require.NoError(t, err)

	svc := NewService(repo, redisclient.NewLocalLocker(), ServiceConfig{
		WriteSkew: 7 * time.Hour,
		Now:       func() time.Time { return fixedNow },
	})
	return svc, repo, c
}

func TestUpdateStatusAppliesTransition(t *testing.T) {
	svc, repo, c := setup(t, consultation.StatusPending)

	updated, err := svc.UpdateStatus(context.Background(), c.ID, consultation.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, consultation.StatusApproved, updated.Status)

	require.Len(t, repo.events, 1)
	assert.Equal(t, EventStatusChanged, repo.events[0].EventType)
	assert.JSONEq(t, `{"from":"pending","to":"approved"}`, string(repo.events[0].Payload))

	require.Len(t, repo.notifications, 1)
	n := repo.notifications[0]
	assert.Equal(t, c.NurseID.String(), n.Audience)
	assert.False(t, n.IsRead)
	assert.Equal(t, fixedNow.Add(7*time.Hour), n.CreatedAt, "createdAt is stored with the write skew")
}

func TestUpdateStatusRejectsDisallowedTransitions(t *testing.T) {
	cases := []struct {
		from consultation.Status
		to   consultation.Status
		want error
	}{
		{consultation.StatusPending, consultation.StatusCompleted, consultation.ErrInvalidStatusTransition},
		{consultation.StatusCompleted, consultation.StatusCancelled, consultation.ErrTerminalStatus},
		{consultation.StatusCancelled, consultation.StatusApproved, consultation.ErrTerminalStatus},
		{consultation.StatusPending, "archived", consultation.ErrInvalidStatus},
	}
	for _, tc := range cases {
		svc, repo, c := setup(t, tc.from)
		_, err := svc.UpdateStatus(context.Background(), c.ID, tc.to)
		assert.ErrorIs(t, err, tc.want, "%s -> %s", tc.from, tc.to)
		assert.Empty(t, repo.notifications)
	}
}

func TestUpdateStatusUnknownConsultation(t *testing.T) {
	svc, _, _ := setup(t, consultation.StatusPending)
	_, err := svc.UpdateStatus(context.Background(), uuid.New(), consultation.StatusApproved)
	assert.ErrorIs(t, err, ErrConsultationNotFound)
}

func TestUpdateStatusDetectsConcurrentWrite(t *testing.T) {
	svc, repo, c := setup(t, consultation.StatusPending)

	// Another writer cancels the consultation between read and CAS.
	repo.beforeUpdate = func() {
		repo.mu.Lock()
		cur := repo.consultations[c.ID]
		cur.Status = consultation.StatusCancelled
		repo.consultations[c.ID] = cur
		repo.mu.Unlock()
	}

	_, err := svc.UpdateStatus(context.Background(), c.ID, consultation.StatusApproved)
	assert.ErrorIs(t, err, ErrStaleStatus)
	assert.Empty(t, repo.events)
}

func TestUpdateStatusBusyWhenLocked(t *testing.T) {
	svc, _, c := setup(t, consultation.StatusPending)

	err := svc.locker.WithLock(context.Background(), redisclient.ConsultationKey(c.ID), func(ctx context.Context) error {
		_, err := svc.UpdateStatus(ctx, c.ID, consultation.StatusApproved)
		return err
	})
	assert.ErrorIs(t, err, ErrConsultationBusy)
}

func TestUpdateStatusSurvivesNotificationFailure(t *testing.T) {
	svc, repo, c := setup(t, consultation.StatusApproved)
	repo.notifyErr = errors.New("disk full")

	updated, err := svc.UpdateStatus(context.Background(), c.ID, consultation.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, consultation.StatusCompleted, updated.Status)
}

func TestMarkReadIsMonotonic(t *testing.T) {
	svc, repo, c := setup(t, consultation.StatusPending)
	_, err := svc.UpdateStatus(context.Background(), c.ID, consultation.StatusApproved)
	require.NoError(t, err)

	msgID := repo.notifications[0].MessageID
	require.NoError(t, svc.MarkRead(context.Background(), msgID))
	require.NoError(t, svc.MarkRead(context.Background(), msgID))

	list, err := svc.ListNotifications(context.Background(), c.NurseID.String())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)

	assert.ErrorIs(t, svc.MarkRead(context.Background(), uuid.New()), ErrNotificationNotFound)
}
