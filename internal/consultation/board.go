package consultation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/consultation-dashboard/internal/metrics"
	"github.com/hackgods/consultation-dashboard/internal/schedule"
)

var (
	ErrNotFound           = errors.New("consultation not found")
	ErrTransitionInFlight = errors.New("a status update for this consultation is already in progress")
	// ErrReloadFailed wraps a refresh failure that followed a successful
	// status update. The update itself stands.
	ErrReloadFailed = errors.New("status updated but reload failed")
)

type BoardConfig struct {
	NurseID  string
	Location *time.Location
	Locale   schedule.Locale
	// WeekStart overrides the locale's week start when set.
	WeekStart *time.Weekday
	Slots     []schedule.TimeSlot
	Clock     func() time.Time
	Logger    *zap.Logger
	Metrics   *metrics.Registry
}

// Board is the nurse's working set of consultations plus the grid anchor.
// Every fetch replaces the whole list; status changes are never applied
// locally, only observed through the refetch that follows them.
type Board struct {
	orders  OrderService
	nurseID string
	matcher schedule.Matcher
	slots   []schedule.TimeSlot
	logger  *zap.Logger
	metrics *metrics.Registry

	mu            sync.Mutex
	nav           *schedule.Navigator
	consultations []Consultation
	issued        uint64
	applied       uint64
	inflight      map[string]struct{}
}

func NewBoard(orders OrderService, cfg BoardConfig) *Board {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	builder := schedule.NewWeekBuilder(loc, cfg.Locale)
	if cfg.WeekStart != nil {
		builder.WeekStart = *cfg.WeekStart
	}
	slots := cfg.Slots
	if len(slots) == 0 {
		slots = schedule.DefaultSlots()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Board{
		orders:   orders,
		nurseID:  cfg.NurseID,
		matcher:  schedule.NewMatcher(loc, schedule.NoCorrection),
		slots:    slots,
		logger:   logger,
		metrics:  cfg.Metrics,
		nav:      schedule.NewNavigator(builder, cfg.Clock),
		inflight: make(map[string]struct{}),
	}
}

// Refresh replaces the working set with the order service's list. On failure
// the last known good list is kept.
func (b *Board) Refresh(ctx context.Context) error {
	if b.nurseID == "" {
		return ErrMissingID
	}

	b.mu.Lock()
	b.issued++
	seq := b.issued
	b.mu.Unlock()

	list, err := b.orders.ListByNurse(ctx, b.nurseID)
	if err != nil {
		b.metrics.ConsultationRefresh(metrics.ResultError)
		b.logger.Warn("consultation refresh failed", zap.String("nurse_id", b.nurseID), zap.Error(err))
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq < b.applied {
		b.metrics.ConsultationRefresh(metrics.ResultStale)
		b.logger.Debug("discarding stale consultation list", zap.Uint64("seq", seq), zap.Uint64("applied", b.applied))
		return nil
	}

	for _, c := range list {
		if !c.Valid() {
			b.logger.Warn("consultation failed validation, kept off the grid", zap.String("consultation_id", c.ID), zap.String("status", string(c.Status)))
		}
	}

	b.consultations = list
	b.applied = seq
	b.metrics.ConsultationRefresh(metrics.ResultOK)
	return nil
}

// Consultations returns a copy of the working set in fetch order.
func (b *Board) Consultations() []Consultation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Consultation, len(b.consultations))
	copy(out, b.consultations)
	return out
}

// Grid places the working set on the currently anchored week. Records that
// fail Valid are left off the grid; they still show in Consultations and
// History.
func (b *Board) Grid() schedule.Grid[Consultation] {
	b.mu.Lock()
	defer b.mu.Unlock()
	placeable := make([]Consultation, 0, len(b.consultations))
	for _, c := range b.consultations {
		if c.Valid() {
			placeable = append(placeable, c)
		}
	}
	return schedule.BuildGrid(b.matcher, placeable, b.nav.Week(), b.slots)
}

// History lists completed and cancelled consultations in fetch order.
func (b *Board) History() []Consultation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Consultation, 0)
	for _, c := range b.consultations {
		if c.Status.Terminal() {
			out = append(out, c)
		}
	}
	return out
}

func (b *Board) Week() schedule.Week {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nav.Week()
}

func (b *Board) NextWeek() schedule.Week {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nav.Next()
}

func (b *Board) PrevWeek() schedule.Week {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nav.Prev()
}

func (b *Board) ResetToToday() schedule.Week {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nav.Reset()
}

func (b *Board) Slots() []schedule.TimeSlot {
	out := make([]schedule.TimeSlot, len(b.slots))
	copy(out, b.slots)
	return out
}

// Transitions lists the statuses offered for a consultation in the working set.
func (b *Board) Transitions(id string) ([]Status, error) {
	c, err := b.find(id)
	if err != nil {
		return nil, err
	}
	return AvailableTransitions(c.Status), nil
}

// Transition asks the order service to move a consultation to status to and
// then refetches the whole list. Nothing is changed locally if the update
// fails. A refresh failure after a successful update is returned wrapped in
// ErrReloadFailed.
func (b *Board) Transition(ctx context.Context, id string, to Status) error {
	if id == "" {
		return ErrMissingID
	}
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	current, err := b.find(id)
	if err != nil {
		return err
	}
	if err := ValidateTransition(current.Status, to); err != nil {
		return err
	}

	if err := b.claim(id); err != nil {
		return err
	}
	defer b.release(id)

	log := b.logger.With(zap.String("consultation_id", id), zap.String("from", string(current.Status)), zap.String("to", string(to)))

	if _, err := b.orders.UpdateStatus(ctx, id, to); err != nil {
		b.metrics.StatusTransition(string(to), metrics.ResultError)
		log.Warn("status update failed", zap.Error(err))
		return err
	}
	b.metrics.StatusTransition(string(to), metrics.ResultOK)
	log.Info("status updated")

	if err := b.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return nil
}

func (b *Board) find(id string) (Consultation, error) {
	if id == "" {
		return Consultation{}, ErrMissingID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.consultations {
		if c.ID == id {
			return c, nil
		}
	}
	return Consultation{}, ErrNotFound
}

func (b *Board) claim(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, busy := b.inflight[id]; busy {
		return ErrTransitionInFlight
	}
	b.inflight[id] = struct{}{}
	return nil
}

func (b *Board) release(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inflight, id)
}
