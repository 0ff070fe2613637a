package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/consultation-dashboard/internal/consultation"
	"github.com/hackgods/consultation-dashboard/internal/httpclient"
	"github.com/hackgods/consultation-dashboard/internal/identity"
	"github.com/hackgods/consultation-dashboard/internal/metrics"
	"github.com/hackgods/consultation-dashboard/internal/notification"
	"github.com/hackgods/consultation-dashboard/internal/schedule"
)

type CurrentUserSource interface {
	GetMe(ctx context.Context, userID string) (identity.User, error)
}

type DashboardConfig struct {
	Board         *consultation.Board
	Notifications *notification.Engine
	Formatter     notification.Formatter
	Identity      CurrentUserSource
	UserID        string
	Logger        *zap.Logger
	Metrics       *metrics.Registry
	Env           string
	Version       string
}

type dashboard struct {
	board     *consultation.Board
	engine    *notification.Engine
	formatter notification.Formatter
	identity  CurrentUserSource
	userID    string
	logger    *zap.Logger
}

// NewDashboardRouter serves the nurse session: the weekly grid, status
// changes and the notification panel.
func NewDashboardRouter(cfg DashboardConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &dashboard{
		board:     cfg.Board,
		engine:    cfg.Notifications,
		formatter: cfg.Formatter,
		identity:  cfg.Identity,
		userID:    cfg.UserID,
		logger:    logger,
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger, cfg.Metrics))

	health := NewHealthHandler(cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/schedule/week", func(r chi.Router) {
		r.Get("/", d.week)
		r.Post("/next", d.nextWeek)
		r.Post("/prev", d.prevWeek)
		r.Post("/today", d.today)
	})

	r.Route("/consultations", func(r chi.Router) {
		r.Post("/refresh", d.refreshConsultations)
		r.Get("/history", d.history)
		r.Get("/{id}/transitions", d.transitions)
		r.Post("/{id}/status", d.transition)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", d.panel)
		r.Get("/badge", d.badge)
		r.Post("/panel/open", d.openPanel)
		r.Post("/panel/toggle", d.togglePanel)
		r.Post("/{messageId}/read", d.markRead)
	})

	r.Get("/me", d.me)

	return r
}

// week refetches the consultation list on every render. When the fetch fails
// the last known list is rendered with a warning.
func (d *dashboard) week(w http.ResponseWriter, r *http.Request) {
	var warning string
	if err := d.board.Refresh(r.Context()); err != nil {
		warning = "The schedule could not be refreshed. Showing the last loaded consultations."
	}
	resp := newWeekResponse(d.board.Grid())
	resp.Warning = warning
	writeJSON(w, http.StatusOK, resp)
}

func (d *dashboard) nextWeek(w http.ResponseWriter, r *http.Request) {
	d.board.NextWeek()
	d.week(w, r)
}

func (d *dashboard) prevWeek(w http.ResponseWriter, r *http.Request) {
	d.board.PrevWeek()
	d.week(w, r)
}

func (d *dashboard) today(w http.ResponseWriter, r *http.Request) {
	d.board.ResetToToday()
	d.week(w, r)
}

func (d *dashboard) refreshConsultations(w http.ResponseWriter, r *http.Request) {
	if err := d.board.Refresh(r.Context()); err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newWeekResponse(d.board.Grid()))
}

func (d *dashboard) history(w http.ResponseWriter, r *http.Request) {
	list := d.board.History()
	resp := make([]*DashboardConsultationView, 0, len(list))
	for _, c := range list {
		resp = append(resp, newDashboardConsultationView(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *dashboard) transitions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	next, err := d.board.Transitions(id)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	var status string
	for _, c := range d.board.Consultations() {
		if c.ID == id {
			status = string(c.Status)
		}
	}
	names := make([]string, len(next))
	for i, s := range next {
		names[i] = string(s)
	}
	writeJSON(w, http.StatusOK, TransitionsResponse{ConsultationID: id, Status: status, Transitions: names})
}

func (d *dashboard) transition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, consultation.CodeInvalidStatus, consultation.HintInvalidStatus)
		return
	}

	to := consultation.Status(req.Status)
	err := d.board.Transition(r.Context(), id, to)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, TransitionResponse{ConsultationID: id, Status: string(to)})
	case errors.Is(err, consultation.ErrReloadFailed):
		writeJSON(w, http.StatusOK, TransitionResponse{
			ConsultationID: id,
			Status:         string(to),
			Warning:        "Status updated, but the schedule could not be reloaded.",
		})
	default:
		writeTransitionError(w, err)
	}
}

func writeTransitionError(w http.ResponseWriter, err error) {
	hint := consultation.Hint(err)
	switch {
	case errors.Is(err, consultation.ErrMissingID):
		writeError(w, http.StatusBadRequest, "missing_consultation_id", hint)
	case errors.Is(err, consultation.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, consultation.CodeInvalidStatus, hint)
	case errors.Is(err, consultation.ErrInvalidStatusTransition),
		errors.Is(err, consultation.ErrTerminalStatus):
		writeError(w, http.StatusConflict, consultation.CodeInvalidTransition, hint)
	case errors.Is(err, consultation.ErrNotFound):
		writeError(w, http.StatusNotFound, consultation.CodeConsultationNotFound, hint)
	case errors.Is(err, consultation.ErrTransitionInFlight):
		writeError(w, http.StatusConflict, consultation.CodeConsultationBusy, hint)
	default:
		if apiErr, ok := httpclient.AsAPIError(err); ok && apiErr.Code != "" {
			writeError(w, http.StatusBadGateway, apiErr.Code, hint)
			return
		}
		writeError(w, http.StatusBadGateway, "upstream_unavailable", hint)
	}
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, consultation.ErrMissingID) {
		writeError(w, http.StatusBadRequest, "missing_nurse_id", "NURSE_ID is not configured")
		return
	}
	writeError(w, http.StatusBadGateway, "upstream_unavailable", consultation.HintUnavailable)
}

func (d *dashboard) panel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newPanelResponse(d.engine.Panel(), d.formatter))
}

func (d *dashboard) openPanel(w http.ResponseWriter, r *http.Request) {
	view, err := d.engine.OpenPanel(r.Context())
	resp := newPanelResponse(view, d.formatter)
	if err != nil {
		resp.Warning = "Notifications could not be refreshed."
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *dashboard) togglePanel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newPanelResponse(d.engine.ToggleShowAll(), d.formatter))
}

func (d *dashboard) markRead(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageId")
	if err := d.engine.Acknowledge(messageID); err != nil {
		switch {
		case errors.Is(err, notification.ErrMissingMessageID):
			writeError(w, http.StatusBadRequest, "missing_message_id", err.Error())
		default:
			writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusAccepted, d.badgeResponse())
}

func (d *dashboard) badge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.badgeResponse())
}

func (d *dashboard) badgeResponse() BadgeResponse {
	return BadgeResponse{Unread: d.engine.UnreadCount(), Badge: d.engine.Badge()}
}

func (d *dashboard) me(w http.ResponseWriter, r *http.Request) {
	if d.identity == nil {
		writeError(w, http.StatusNotFound, "identity_unavailable", "identity service not configured")
		return
	}
	u, err := d.identity.GetMe(r.Context(), d.userID)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrMissingUserID), errors.Is(err, identity.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		case errors.Is(err, identity.ErrNotFound):
			writeError(w, http.StatusNotFound, "user_not_found", err.Error())
		default:
			d.logger.Warn("identity lookup failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "upstream_unavailable", "identity service unavailable")
		}
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role})
}

func newWeekResponse(grid schedule.Grid[consultation.Consultation]) WeekResponse {
	days := make([]DayResponse, 0, len(grid.Days))
	for _, day := range grid.Days {
		days = append(days, DayResponse{Date: day.Key, Label: day.Label, Weekday: day.WeekdayName})
	}

	rows := make([]RowResponse, 0, len(grid.Rows))
	for _, row := range grid.Rows {
		cells := make([]CellResponse, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cr := CellResponse{Date: cell.Day.Key, Overlaps: cell.Overlaps}
			if cell.Entry != nil {
				cr.Consultation = newDashboardConsultationView(*cell.Entry)
			}
			cells = append(cells, cr)
		}
		rows = append(rows, RowResponse{
			Slot:  row.Slot.Label,
			Start: clock(row.Slot.StartHour, row.Slot.StartMinute),
			End:   clock(row.Slot.EndHour, row.Slot.EndMinute),
			Cells: cells,
		})
	}
	return WeekResponse{Days: days, Rows: rows}
}

func clock(h, m int) string {
	return fmt.Sprintf("%02d:%02d", h, m)
}
