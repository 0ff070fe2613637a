package notification

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/consultation-dashboard/internal/metrics"
)

const (
	DefaultPreviewLimit = 4
	DefaultBadgeCap     = 99
	DefaultAckTimeout   = 10 * time.Second
)

var ErrEngineClosed = errors.New("notification engine closed")

// ackInFlight marks a hold whose acknowledgement has not answered yet.
const ackInFlight = math.MaxUint64

type EngineConfig struct {
	PreviewLimit int
	BadgeCap     int
	AckTimeout   time.Duration
	CloseGrace   time.Duration // how long Close waits for pending acknowledgements; defaults to AckTimeout
	Logger       *zap.Logger
	Metrics      *metrics.Registry
}

// Engine owns the local projection of the notification list. Refresh replaces
// the list wholesale; Acknowledge flips one entry to read right away and
// confirms with the source in the background.
//
// An acknowledged entry stays read across refreshes while its call is in
// flight, and across refreshes that were issued before the call was
// confirmed. Once a refresh issued after confirmation lands, the source is
// trusted again. A failed acknowledgement is not rolled back; the next
// refresh restores whatever the source says.
type Engine struct {
	source  Source
	cfg     EngineConfig
	logger  *zap.Logger
	metrics *metrics.Registry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	items   []Notification
	showAll bool
	issued  uint64
	applied uint64
	held    map[string]uint64
	closed  bool
}

func NewEngine(source Source, cfg EngineConfig) *Engine {
	if cfg.PreviewLimit <= 0 {
		cfg.PreviewLimit = DefaultPreviewLimit
	}
	if cfg.BadgeCap <= 0 {
		cfg.BadgeCap = DefaultBadgeCap
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	if cfg.CloseGrace <= 0 {
		cfg.CloseGrace = cfg.AckTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		source:  source,
		cfg:     cfg,
		logger:  logger,
		metrics: cfg.Metrics,
		ctx:     ctx,
		cancel:  cancel,
		items:   []Notification{},
		held:    make(map[string]uint64),
	}
}

// Refresh fetches the full list and replaces the projection. A response for a
// refresh issued before the last applied one is dropped and the current list
// is returned instead. On failure the last known list stays in place.
func (e *Engine) Refresh(ctx context.Context) ([]Notification, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	e.issued++
	seq := e.issued
	e.mu.Unlock()

	list, err := e.source.List(ctx)
	if err != nil {
		e.metrics.NotificationRefresh(metrics.ResultError)
		e.logger.Warn("notification refresh failed", zap.Error(err))
		return e.Items(), err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if seq < e.applied {
		e.metrics.NotificationRefresh(metrics.ResultStale)
		e.logger.Debug("discarding stale notification list", zap.Uint64("seq", seq), zap.Uint64("applied", e.applied))
		return cloneItems(e.items), nil
	}

	next := make([]Notification, len(list))
	copy(next, list)
	for i := range next {
		if hold, ok := e.held[next[i].MessageID]; ok && (hold == ackInFlight || seq <= hold) {
			next[i].IsRead = true
		}
	}
	for id, hold := range e.held {
		if hold != ackInFlight && hold < seq {
			delete(e.held, id)
		}
	}

	e.items = next
	e.applied = seq
	e.metrics.NotificationRefresh(metrics.ResultOK)
	e.metrics.SetUnread(CountUnread(next))
	return cloneItems(next), nil
}

// Acknowledge marks messageID read locally and sends the acknowledgement
// without waiting for it. Acknowledging an entry that is already read is a
// no-op.
func (e *Engine) Acknowledge(messageID string) error {
	if messageID == "" {
		return ErrMissingMessageID
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	known := false
	for i := range e.items {
		if e.items[i].MessageID != messageID {
			continue
		}
		known = true
		if e.items[i].IsRead {
			e.mu.Unlock()
			return nil
		}
		e.items[i].IsRead = true
	}
	if !known {
		if _, pending := e.held[messageID]; pending {
			e.mu.Unlock()
			return nil
		}
	}
	e.held[messageID] = ackInFlight
	e.metrics.SetUnread(CountUnread(e.items))
	e.wg.Add(1)
	e.mu.Unlock()

	go e.confirm(messageID)
	return nil
}

func (e *Engine) confirm(messageID string) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.AckTimeout)
	defer cancel()

	err := e.source.Acknowledge(ctx, messageID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		delete(e.held, messageID)
		e.metrics.NotificationAck(metrics.ResultError)
		e.logger.Warn("notification acknowledgement failed", zap.String("message_id", messageID), zap.Error(err))
		return
	}
	e.held[messageID] = e.issued
	e.metrics.NotificationAck(metrics.ResultOK)
	e.logger.Debug("notification acknowledged", zap.String("message_id", messageID))
}

// Items returns a copy of the current projection.
func (e *Engine) Items() []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneItems(e.items)
}

// UnreadCount is the unclamped badge value.
func (e *Engine) UnreadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CountUnread(e.items)
}

// Badge renders the unread count for display. Zero renders as an empty
// string so the badge can be hidden.
func (e *Engine) Badge() string {
	return FormatBadge(e.UnreadCount(), e.cfg.BadgeCap)
}

func FormatBadge(n, limit int) string {
	switch {
	case n <= 0:
		return ""
	case limit > 0 && n > limit:
		return strconv.Itoa(limit) + "+"
	default:
		return strconv.Itoa(n)
	}
}

// PanelView is what the notification panel renders.
type PanelView struct {
	Items   []Notification `json:"items"`
	Total   int            `json:"total"`
	Unread  int            `json:"unread"`
	Badge   string         `json:"badge"`
	ShowAll bool           `json:"showAll"`
	Hidden  int            `json:"hidden"`
}

func (e *Engine) Panel() PanelView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.panelLocked()
}

// ToggleShowAll flips between the preview and the full list. It never fetches.
func (e *Engine) ToggleShowAll() PanelView {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.showAll = !e.showAll
	return e.panelLocked()
}

// OpenPanel refreshes and returns the panel. When the refresh fails the view
// of the last known list is returned with the error.
func (e *Engine) OpenPanel(ctx context.Context) (PanelView, error) {
	_, err := e.Refresh(ctx)
	return e.Panel(), err
}

func (e *Engine) panelLocked() PanelView {
	shown := e.items
	if !e.showAll && len(shown) > e.cfg.PreviewLimit {
		shown = shown[:e.cfg.PreviewLimit]
	}
	unread := CountUnread(e.items)
	return PanelView{
		Items:   cloneItems(shown),
		Total:   len(e.items),
		Unread:  unread,
		Badge:   FormatBadge(unread, e.cfg.BadgeCap),
		ShowAll: e.showAll,
		Hidden:  len(e.items) - len(shown),
	}
}

// Close stops accepting work and gives pending acknowledgements up to
// CloseGrace to reach the source. Whatever is still pending after that is
// cancelled.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(e.cfg.CloseGrace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		e.logger.Warn("cancelling pending acknowledgements", zap.Duration("grace", e.cfg.CloseGrace))
		e.cancel()
		<-done
	}
	e.cancel()
}

func cloneItems(items []Notification) []Notification {
	out := make([]Notification, len(items))
	copy(out, items)
	return out
}
