package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/consultation-dashboard/internal/consultation"
	redisclient "github.com/hackgods/consultation-dashboard/internal/redis"
)

const (
	EventStatusChanged    = "CONSULTATION_STATUS_CHANGED"
	EventNotificationRead = "NOTIFICATION_READ"

	NotificationTypeConsultation = "consultation"

	DefaultNotificationLimit = 200
)

var (
	ErrConsultationBusy = errors.New("consultation is being updated, please retry")
	// ErrStaleStatus means the row changed between the read and the
	// compare-and-set update.
	ErrStaleStatus = errors.New("consultation status changed concurrently")
)

type ServiceConfig struct {
	// WriteSkew is added to notification createdAt before it is stored.
	WriteSkew time.Duration
	Now       func() time.Time
	Logger    *zap.Logger
}

type Service struct {
	repo      Repository
	locker    redisclient.Locker
	writeSkew time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(repo Repository, locker redisclient.Locker, cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		locker:    locker,
		writeSkew: cfg.WriteSkew,
		now:       now,
		logger:    logger,
	}
}

func (s *Service) GetNurse(ctx context.Context, id uuid.UUID) (*Nurse, error) {
	n, err := s.repo.GetNurseByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNurseNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load nurse: %w", err)
	}
	return n, nil
}

func (s *Service) ListByNurse(ctx context.Context, nurseID uuid.UUID) ([]Consultation, error) {
	list, err := s.repo.ListConsultationsByNurse(ctx, nurseID)
	if err != nil {
		return nil, fmt.Errorf("list consultations by nurse: %w", err)
	}
	return list, nil
}

// UpdateStatus moves a consultation along the status workflow. Updates for
// one consultation are serialized with a distributed lock, and the write
// itself is a compare-and-set on the status read inside the lock. A
// successful change is logged and produces a notification for the nurse.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to consultation.Status) (*Consultation, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", consultation.ErrInvalidStatus, to)
	}

	var updated *Consultation

	err := s.locker.WithLock(ctx, redisclient.ConsultationKey(id), func(lockCtx context.Context) error {
		current, err := s.repo.GetConsultationByID(lockCtx, id)
		if err != nil {
			if errors.Is(err, ErrConsultationNotFound) {
				return err
			}
			return fmt.Errorf("load consultation: %w", err)
		}

		if err := consultation.ValidateTransition(current.Status, to); err != nil {
			return err
		}

		c, err := s.repo.UpdateConsultationStatus(lockCtx, id, current.Status, to)
		if err != nil {
			if errors.Is(err, ErrConsultationNotFound) {
				return ErrStaleStatus
			}
			return fmt.Errorf("update consultation status: %w", err)
		}
		updated = c

		s.logEvent(lockCtx, id, EventStatusChanged, map[string]any{
			"from": current.Status,
			"to":   to,
		})
		s.notifyStatusChange(lockCtx, c, current.Status)
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrConsultationBusy
		}
		return nil, err
	}

	return updated, nil
}

func (s *Service) ListNotifications(ctx context.Context, audience string) ([]Notification, error) {
	list, err := s.repo.ListNotifications(ctx, audience, DefaultNotificationLimit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// MarkRead is monotonic: read notifications stay read.
func (s *Service) MarkRead(ctx context.Context, messageID uuid.UUID) error {
	if err := s.repo.MarkNotificationRead(ctx, messageID); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return err
		}
		return fmt.Errorf("mark read: %w", err)
	}
	s.logEvent(ctx, uuid.Nil, EventNotificationRead, map[string]any{"message_id": messageID.String()})
	return nil
}

func (s *Service) notifyStatusChange(ctx context.Context, c *Consultation, from consultation.Status) {
	n := Notification{
		Audience:  c.NurseID.String(),
		Title:     "Consultation " + string(c.Status),
		Message:   fmt.Sprintf("Consultation with %s on %s moved from %s to %s", patientLabel(c), c.ScheduledTime.Format("02/01 15:04"), from, c.Status),
		Type:      NotificationTypeConsultation,
		CreatedAt: s.now().Add(s.writeSkew),
	}
	if _, err := s.repo.InsertNotification(ctx, n); err != nil {
		s.logger.Warn("failed to create status notification",
			zap.String("consultation_id", c.ID.String()), zap.Error(err))
	}
}

func patientLabel(c *Consultation) string {
	if c.PatientName != "" {
		return c.PatientName
	}
	return "patient " + c.PatientID.String()
}

func (s *Service) logEvent(ctx context.Context, consultationID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		Payload:   data,
		CreatedAt: s.now(),
	}
	if consultationID != uuid.Nil {
		id := consultationID
		ev.ConsultationID = &id
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to insert event log",
			zap.String("event_type", eventType), zap.String("consultation_id", consultationID.String()), zap.Error(err))
	}
}
