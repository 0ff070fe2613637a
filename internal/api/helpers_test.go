package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/consultation-dashboard/internal/consultation"
	"github.com/hackgods/consultation-dashboard/internal/orders"
)

func doReq(t *testing.T, h http.Handler, method, path string, headers map[string]string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewReader([]byte(b))
		default:
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			rdr = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func decodeBody[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

// fakeOrders is an in-memory OrdersService with the same transition rules as
// the real one.
type fakeOrders struct {
	mu            sync.Mutex
	nurses        map[uuid.UUID]orders.Nurse
	consultations map[uuid.UUID]orders.Consultation
	notifications []orders.Notification
	busy          bool
	listErr       error
	now           time.Time
}

func newFakeOrders(now time.Time) *fakeOrders {
	return &fakeOrders{
		nurses:        map[uuid.UUID]orders.Nurse{},
		consultations: map[uuid.UUID]orders.Consultation{},
		now:           now,
	}
}

func (f *fakeOrders) GetNurse(ctx context.Context, id uuid.UUID) (*orders.Nurse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nurses[id]
	if !ok {
		return nil, orders.ErrNurseNotFound
	}
	return &n, nil
}

func (f *fakeOrders) ListByNurse(ctx context.Context, nurseID uuid.UUID) ([]orders.Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []orders.Consultation{}
	for _, c := range f.consultations {
		if c.NurseID == nurseID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, id uuid.UUID, to consultation.Status) (*orders.Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return nil, orders.ErrConsultationBusy
	}
	c, ok := f.consultations[id]
	if !ok {
		return nil, orders.ErrConsultationNotFound
	}
	if err := consultation.ValidateTransition(c.Status, to); err != nil {
		return nil, err
	}
	c.Status = to
	f.consultations[id] = c
	f.notifications = append(f.notifications, orders.Notification{
		ID:        uuid.New(),
		MessageID: uuid.New(),
		Audience:  c.NurseID.String(),
		Title:     "Consultation " + string(to),
		Type:      orders.NotificationTypeConsultation,
		CreatedAt: f.now.Add(7 * time.Hour),
	})
	return &c, nil
}

func (f *fakeOrders) ListNotifications(ctx context.Context, audience string) ([]orders.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []orders.Notification{}
	for _, n := range f.notifications {
		if audience == "" || n.Audience == audience {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeOrders) MarkRead(ctx context.Context, messageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].MessageID == messageID {
			f.notifications[i].IsRead = true
			return nil
		}
	}
	return orders.ErrNotificationNotFound
}

func (f *fakeOrders) addConsultation(nurseID uuid.UUID, start time.Time, status consultation.Status) orders.Consultation {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := orders.Consultation{
		ID:            uuid.New(),
		NurseID:       nurseID,
		PatientID:     uuid.New(),
		PatientName:   "Tran Van Minh",
		ScheduledTime: start,
		EndTime:       start.Add(time.Hour),
		Status:        status,
		CreatedAt:     f.now,
	}
	f.consultations[c.ID] = c
	return c
}

func (f *fakeOrders) setBusy(busy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = busy
}

func (f *fakeOrders) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}
