package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/consultation-dashboard/internal/consultation"
)

var (
	ErrNurseNotFound        = errors.New("nurse not found")
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetNurseByID(ctx context.Context, id uuid.UUID) (*Nurse, error)
	CreateNurse(ctx context.Context, n Nurse) (*Nurse, error)

	GetConsultationByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	ListConsultationsByNurse(ctx context.Context, nurseID uuid.UUID) ([]Consultation, error)
	CreateConsultation(ctx context.Context, c Consultation) (*Consultation, error)
	// UpdateConsultationStatus only applies when the row is still in from.
	UpdateConsultationStatus(ctx context.Context, id uuid.UUID, from, to consultation.Status) (*Consultation, error)

	InsertNotification(ctx context.Context, n Notification) (*Notification, error)
	ListNotifications(ctx context.Context, audience string, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, messageID uuid.UUID) error

	InsertEvent(ctx context.Context, ev EventLog) error
}
