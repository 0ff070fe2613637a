package consultation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/consultation-dashboard/internal/httpclient"
	"github.com/hackgods/consultation-dashboard/internal/schedule"
)

// fakeOrders is an in-memory order service that applies transitions the way
// the real one does.
type fakeOrders struct {
	mu        sync.Mutex
	items     []Consultation
	listErr   error
	updateErr error
	lists     int
	updates   []string
	onUpdate  func()
}

func (f *fakeOrders) ListByNurse(ctx context.Context, nurseID string) ([]Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]Consultation, 0, len(f.items))
	for _, c := range f.items {
		if c.NurseID == nurseID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, id string, status Status) (Status, error) {
	if f.onUpdate != nil {
		f.onUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, id+":"+string(status))
	if f.updateErr != nil {
		return "", f.updateErr
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Status = status
			return status, nil
		}
	}
	return "", ErrNotFound
}

var hcm = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		panic(err)
	}
	return loc
}()

// Wednesday morning, so "tomorrow" is in the same week.
var boardNow = time.Date(2026, 10, 14, 7, 0, 0, 0, hcm)

func at(day, hour int) time.Time {
	return time.Date(2026, 10, day, hour, 0, 0, 0, hcm)
}

func consult(id string, start time.Time, status Status) Consultation {
	return Consultation{
		ID:            id,
		PatientID:     "patient-1",
		NurseID:       "nurse-1",
		ScheduledTime: start,
		EndTime:       start.Add(time.Hour),
		Status:        status,
	}
}

func newTestBoard(orders OrderService) *Board {
	return NewBoard(orders, BoardConfig{
		NurseID:  "nurse-1",
		Location: hcm,
		Locale:   schedule.LookupLocale("vi-VN"),
		Clock:    func() time.Time { return boardNow },
	})
}

func findCell(g schedule.Grid[Consultation], slotLabel, dayKey string) *Consultation {
	for _, row := range g.Rows {
		if row.Slot.Label != slotLabel {
			continue
		}
		for _, cell := range row.Cells {
			if cell.Day.Key == dayKey {
				return cell.Entry
			}
		}
	}
	return nil
}

func TestBoardGridScenario(t *testing.T) {
	orders := &fakeOrders{items: []Consultation{
		consult("today-8", at(14, 8), StatusPending),
		consult("today-10", at(14, 10), StatusApproved),
		consult("tomorrow-8", at(15, 8), StatusPending),
	}}
	board := newTestBoard(orders)
	require.NoError(t, board.Refresh(context.Background()))

	grid := board.Grid()
	require.NotNil(t, findCell(grid, "Slot 1", "2026-10-14"))
	assert.Equal(t, "today-8", findCell(grid, "Slot 1", "2026-10-14").ID)
	assert.Equal(t, "today-10", findCell(grid, "Slot 2", "2026-10-14").ID)
	assert.Equal(t, "tomorrow-8", findCell(grid, "Slot 1", "2026-10-15").ID)

	filled := 0
	for _, row := range grid.Rows {
		for _, cell := range row.Cells {
			if cell.Entry != nil {
				filled++
			}
		}
	}
	assert.Equal(t, 3, filled)
}

func TestBoardGridHidesCompleted(t *testing.T) {
	orders := &fakeOrders{items: []Consultation{
		consult("today-8", at(14, 8), StatusCompleted),
		consult("today-10", at(14, 10), StatusCompleted),
		consult("tomorrow-8", at(15, 8), StatusCancelled),
	}}
	board := newTestBoard(orders)
	require.NoError(t, board.Refresh(context.Background()))

	for _, row := range board.Grid().Rows {
		for _, cell := range row.Cells {
			assert.Nil(t, cell.Entry)
		}
	}
	assert.Len(t, board.History(), 3)
}

func TestBoardWeekNavigation(t *testing.T) {
	orders := &fakeOrders{items: []Consultation{consult("next-week", at(21, 13), StatusPending)}}
	board := newTestBoard(orders)
	require.NoError(t, board.Refresh(context.Background()))

	assert.Nil(t, findCell(board.Grid(), "Slot 3", "2026-10-21"))

	week := board.NextWeek()
	assert.Equal(t, "2026-10-19", week[0].Key)
	require.NotNil(t, findCell(board.Grid(), "Slot 3", "2026-10-21"))

	assert.Equal(t, "2026-10-12", board.PrevWeek()[0].Key)
	board.NextWeek()
	assert.Equal(t, "2026-10-12", board.ResetToToday()[0].Key)
	assert.Equal(t, 1, orders.lists, "navigation must not refetch")
}

func TestBoardRefreshFailureKeepsLastKnownGood(t *testing.T) {
	orders := &fakeOrders{items: []Consultation{consult("a", at(14, 8), StatusPending)}}
	board := newTestBoard(orders)
	require.NoError(t, board.Refresh(context.Background()))

	orders.listErr = errors.New("502 bad gateway")
	require.Error(t, board.Refresh(context.Background()))
	assert.Len(t, board.Consultations(), 1)
}

func TestBoardRefreshRequiresNurse(t *testing.T) {
	board := NewBoard(&fakeOrders{}, BoardConfig{Location: hcm})
	assert.ErrorIs(t, board.Refresh(context.Background()), ErrMissingID)
}

func TestBoardTransitionRefetches(t *testing.T) {
	orders := &fakeOrders{items: []Consultation{consult("a", at(14, 8), StatusPending)}}
	board := newTestBoard(orders)
	require.NoError(t, board.Refresh(context.Background()))

	require.NoError(t, board.Transition(context.Background(), "a", StatusApproved))
	assert.Equal(t, []string{"a:approved"}, orders.updates)
	assert.Equal(t, 2, orders.lists)
	assert.Equal(t, StatusApproved, board.Consultations()[0].Status)

	next, err := board.Transitions("a")
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusCompleted, StatusCancelled}, next)

	require.NoError(t, board.Transition(context.Background(), "a", StatusCompleted))
	assert.Equal(t, StatusCompleted, board.History()[0].Status)
	assert.Nil(t, findCell(board.Grid(), "Slot 1", "2026-10-14"))
}

func TestBoardTransitionFailureLeavesStateUntouched(t *testing.T) {
	orders := &fakeOrders{items: []Consultation{consult("a", at(14, 8), StatusPending)}}
	board := newTestBoard(orders)
	require.NoError(t, board.Refresh(context.Background()))

	orders.updateErr = errors.New("connection reset")
	err := board.Transition(context.Background(), "a", StatusApproved)
	require.Error(t, err)

	assert.Equal(t, StatusPending, board.Consultations()[0].Status)
	assert.Equal(t, 1, orders.lists, "no refetch after a failed update")
	assert.Equal(t, HintUnavailable, Hint(err))
}

func TestBoardTransitionValidatesBeforeCalling(t *testing.T) {
	orders := &fakeOrders{items: []Consultation{
		consult("p", at(14, 8), StatusPending),
		consult("done", at(14, 10), StatusCompleted),
	}}
	board := newTestBoard(orders)
	require.NoError(t, board.Refresh(context.Background()))

	ctx := context.Background()
	assert.ErrorIs(t, board.Transition(ctx, "", StatusApproved), ErrMissingID)
	assert.ErrorIs(t, board.Transition(ctx, "p", "archived"), ErrInvalidStatus)
	assert.ErrorIs(t, board.Transition(ctx, "p", StatusCompleted), ErrInvalidStatusTransition)
	assert.ErrorIs(t, board.Transition(ctx, "done", StatusCancelled), ErrTerminalStatus)
	assert.ErrorIs(t, board.Transition(ctx, "missing", StatusApproved), ErrNotFound)
	assert.Empty(t, orders.updates)
}

func TestBoardTransitionRejectsConcurrentUpdateOfSameConsultation(t *testing.T) {
	orders := &fakeOrders{items: []Consultation{consult("a", at(14, 8), StatusPending)}}
	board := newTestBoard(orders)
	require.NoError(t, board.Refresh(context.Background()))

	entered := make(chan struct{})
	unblock := make(chan struct{})
	orders.onUpdate = func() {
		close(entered)
		<-unblock
	}

	done := make(chan error, 1)
	go func() { done <- board.Transition(context.Background(), "a", StatusApproved) }()

	<-entered
	err := board.Transition(context.Background(), "a", StatusCancelled)
	assert.ErrorIs(t, err, ErrTransitionInFlight)
	assert.Equal(t, HintBusy, Hint(err))

	orders.onUpdate = nil
	close(unblock)
	require.NoError(t, <-done)
}

func TestBoardTransitionReloadFailure(t *testing.T) {
	orders := &fakeOrders{items: []Consultation{consult("a", at(14, 8), StatusPending)}}
	board := newTestBoard(orders)
	require.NoError(t, board.Refresh(context.Background()))

	orders.onUpdate = func() { orders.listErr = errors.New("timeout") }
	err := board.Transition(context.Background(), "a", StatusApproved)
	require.ErrorIs(t, err, ErrReloadFailed)
	assert.Equal(t, []string{"a:approved"}, orders.updates)
	assert.Equal(t, StatusPending, board.Consultations()[0].Status, "last known list is kept")
}

func TestBoardKeepsListWhenResponseIsCutOff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"data":[{"consultationId":"c-1","nurseId":"nurse-1","scheduledTime":"2026-10-14T08:00:00+07:00","endTime":"2026-10-14T09:00:00+07:00","status":"pending"}]}`))
			return
		}
		w.Header().Set("Content-Length", "512")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[{"consultationId":"c-1",`))
		w.(http.Flusher).Flush()
		panic(http.ErrAbortHandler)
	}))
	defer srv.Close()

	client, err := httpclient.New(srv.URL, time.Second)
	require.NoError(t, err)
	board := newTestBoard(NewHTTPOrderClient(client, "user-1"))

	require.NoError(t, board.Refresh(context.Background()))
	require.Len(t, board.Consultations(), 1)

	require.Error(t, board.Refresh(context.Background()))
	got := board.Consultations()
	require.Len(t, got, 1)
	assert.Equal(t, "c-1", got[0].ID)
	assert.NotNil(t, findCell(board.Grid(), "Slot 1", "2026-10-14"))
}

func TestBoardKeepsInvalidRecordsOffTheGrid(t *testing.T) {
	backwards := consult("backwards", at(14, 8), StatusPending)
	backwards.EndTime = backwards.ScheduledTime.Add(-time.Hour)
	orders := &fakeOrders{items: []Consultation{
		backwards,
		consult("ok", at(14, 10), StatusApproved),
	}}
	board := newTestBoard(orders)
	require.NoError(t, board.Refresh(context.Background()))

	grid := board.Grid()
	assert.Nil(t, findCell(grid, "Slot 1", "2026-10-14"))
	require.NotNil(t, findCell(grid, "Slot 2", "2026-10-14"))
	assert.Len(t, board.Consultations(), 2)
}
