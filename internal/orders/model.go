package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/consultation-dashboard/internal/consultation"
)

type Nurse struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Consultation struct {
	ID            uuid.UUID
	NurseID       uuid.UUID
	PatientID     uuid.UUID
	PatientName   string
	ScheduledTime time.Time
	EndTime       time.Time
	Status        consultation.Status
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Notification is a warehouse message. ID is the storage key; MessageID is
// what clients acknowledge with.
type Notification struct {
	ID        uuid.UUID
	MessageID uuid.UUID
	Audience  string
	Title     string
	Message   string
	Type      string
	IsRead    bool
	CreatedAt time.Time
}

type EventLog struct {
	ID             int64
	EventType      string
	ConsultationID *uuid.UUID
	Payload        []byte
	CreatedAt      time.Time
}
