package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/consultation-dashboard/internal/consultation"
	"github.com/hackgods/consultation-dashboard/internal/metrics"
	"github.com/hackgods/consultation-dashboard/internal/orders"
	redisclient "github.com/hackgods/consultation-dashboard/internal/redis"
)

type OrdersService interface {
	GetNurse(ctx context.Context, id uuid.UUID) (*orders.Nurse, error)
	ListByNurse(ctx context.Context, nurseID uuid.UUID) ([]orders.Consultation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to consultation.Status) (*orders.Consultation, error)
	ListNotifications(ctx context.Context, audience string) ([]orders.Notification, error)
	MarkRead(ctx context.Context, messageID uuid.UUID) error
}

type BackendConfig struct {
	Service      OrdersService
	Dependencies []Dependency
	Logger       *zap.Logger
	Metrics      *metrics.Registry
	Env          string
	Version      string
}

// NewBackendRouter serves the order, notification and identity endpoints
// the dashboard consumes.
func NewBackendRouter(cfg BackendConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))

	health := NewHealthHandler(cfg.Env, cfg.Version, cfg.Dependencies...)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Get("/consultations/nurse/{nurseId}", listConsultationsHandler(cfg.Service))
	r.Put("/consultations/status/{consultationId}", updateStatusHandler(cfg.Service))

	r.Get("/notifications/warehouse", listNotificationsHandler(cfg.Service))
	r.Post("/notifications/read", markReadHandler(cfg.Service))

	r.Get("/users/me", getMeHandler(cfg.Service))

	return r
}

func listConsultationsHandler(svc OrdersService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nurseID, err := uuid.Parse(chi.URLParam(r, "nurseId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_nurse_id", "nurseId must be a valid UUID")
			return
		}

		list, err := svc.ListByNurse(r.Context(), nurseID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]ConsultationResponse, 0, len(list))
		for _, c := range list {
			resp = append(resp, newConsultationResponse(c))
		}
		writeData(w, http.StatusOK, resp)
	}
}

func updateStatusHandler(svc OrdersService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "consultationId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "consultationId must be a valid UUID")
			return
		}

		var req UpdateStatusRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, consultation.CodeInvalidStatus, err.Error())
			return
		}

		updated, err := svc.UpdateStatus(r.Context(), id, consultation.Status(req.Status))
		if err != nil {
			handleUpdateStatusError(w, err)
			return
		}

		writeData(w, http.StatusOK, StatusResponse{Status: string(updated.Status)})
	}
}

func handleUpdateStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrConsultationNotFound):
		writeError(w, http.StatusNotFound, consultation.CodeConsultationNotFound, err.Error())
	case errors.Is(err, consultation.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, consultation.CodeInvalidStatus, err.Error())
	case errors.Is(err, consultation.ErrInvalidStatusTransition),
		errors.Is(err, consultation.ErrTerminalStatus),
		errors.Is(err, orders.ErrStaleStatus):
		writeError(w, http.StatusConflict, consultation.CodeInvalidTransition, err.Error())
	case errors.Is(err, orders.ErrConsultationBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, consultation.CodeConsultationBusy, "consultation is being updated, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// listNotificationsHandler nests the list one level deeper than the other
// endpoints; clients unwrap both shapes.
func listNotificationsHandler(svc OrdersService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		audience := strings.TrimSpace(r.URL.Query().Get("for"))

		list, err := svc.ListNotifications(r.Context(), audience)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]NotificationResponse, 0, len(list))
		for _, n := range list {
			resp = append(resp, newNotificationResponse(n))
		}
		writeData(w, http.StatusOK, dataEnvelope{Data: resp})
	}
}

func markReadHandler(svc OrdersService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MarkReadRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_message_id", err.Error())
			return
		}
		messageID := uuid.MustParse(req.MessageID)

		if err := svc.MarkRead(r.Context(), messageID); err != nil {
			if errors.Is(err, orders.ErrNotificationNotFound) {
				writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeData(w, http.StatusOK, ReadResponse{MessageID: messageID.String(), IsRead: true})
	}
}

func getMeHandler(svc OrdersService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "X-User-ID header is required")
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "X-User-ID must be a valid UUID")
			return
		}

		nurse, err := svc.GetNurse(r.Context(), id)
		if err != nil {
			if errors.Is(err, orders.ErrNurseNotFound) {
				writeError(w, http.StatusNotFound, "user_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := UserResponse{ID: nurse.ID.String(), FullName: nurse.Name, Role: "nurse"}
		if nurse.Email != nil {
			resp.Email = *nurse.Email
		}
		writeData(w, http.StatusOK, resp)
	}
}
