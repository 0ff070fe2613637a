package consultation

import (
	"strings"
	"time"

	"github.com/hackgods/consultation-dashboard/internal/schedule"
)

// Consultation is a booked nurse consultation. Times are kept exactly as the
// order service stores them.
type Consultation struct {
	ID            string    `json:"consultationId"`
	PatientID     string    `json:"userid"`
	NurseID       string    `json:"nurseId"`
	PatientName   string    `json:"patientName,omitempty"`
	ScheduledTime time.Time `json:"scheduledTime"`
	EndTime       time.Time `json:"endTime"`
	Status        Status    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}

func (c Consultation) SlotTime() time.Time { return c.ScheduledTime }

// OccupiesSlot is true for pending and approved consultations.
func (c Consultation) OccupiesSlot() bool { return c.Status.Active() }

func (c Consultation) TieBreak() (time.Time, string) { return c.CreatedAt, c.ID }

// Valid checks the record invariants.
func (c Consultation) Valid() bool {
	if c.ID == "" || !c.Status.Valid() {
		return false
	}
	if schedule.IsInvalid(c.ScheduledTime) || schedule.IsInvalid(c.EndTime) {
		return false
	}
	return c.EndTime.After(c.ScheduledTime)
}

// wireConsultation is the order service representation. Timestamps arrive in
// several layouts, so they are parsed leniently.
type wireConsultation struct {
	ID            string `json:"consultationId"`
	AltID         string `json:"_id"`
	PatientID     string `json:"userid"`
	NurseID       string `json:"nurseId"`
	PatientName   string `json:"patientName"`
	ScheduledTime string `json:"scheduledTime"`
	EndTime       string `json:"endTime"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
	CreatedAt     string `json:"createdAt"`
}

func (w wireConsultation) toDomain() Consultation {
	id := w.ID
	if id == "" {
		id = w.AltID
	}
	return Consultation{
		ID:            id,
		PatientID:     w.PatientID,
		NurseID:       w.NurseID,
		PatientName:   w.PatientName,
		ScheduledTime: schedule.ParseInstant(w.ScheduledTime),
		EndTime:       schedule.ParseInstant(w.EndTime),
		Status:        Status(strings.ToLower(strings.TrimSpace(w.Status))),
		Notes:         w.Notes,
		CreatedAt:     schedule.ParseInstant(w.CreatedAt),
	}
}
