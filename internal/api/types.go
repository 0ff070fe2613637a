package api

import (
	"time"

	"github.com/hackgods/consultation-dashboard/internal/consultation"
	"github.com/hackgods/consultation-dashboard/internal/notification"
	"github.com/hackgods/consultation-dashboard/internal/orders"
)

// wireTimeLayout matches what the notification store has always emitted.
const wireTimeLayout = "2006-01-02T15:04:05.000Z07:00"

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved completed cancelled"`
}

type MarkReadRequest struct {
	MessageID string `json:"message_id" validate:"required,uuid"`
}

// Backend contract shapes.

type ConsultationResponse struct {
	ID            string `json:"consultationId"`
	PatientID     string `json:"userid"`
	NurseID       string `json:"nurseId"`
	PatientName   string `json:"patientName,omitempty"`
	ScheduledTime string `json:"scheduledTime"`
	EndTime       string `json:"endTime"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func newConsultationResponse(c orders.Consultation) ConsultationResponse {
	return ConsultationResponse{
		ID:            c.ID.String(),
		PatientID:     c.PatientID.String(),
		NurseID:       c.NurseID.String(),
		PatientName:   c.PatientName,
		ScheduledTime: c.ScheduledTime.Format(time.RFC3339),
		EndTime:       c.EndTime.Format(time.RFC3339),
		Status:        string(c.Status),
		Notes:         c.Notes,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339Nano),
	}
}

type StatusResponse struct {
	Status string `json:"status"`
}

type NotificationResponse struct {
	StorageID string `json:"_id"`
	MessageID string `json:"message_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	IsRead    bool   `json:"isRead"`
	CreatedAt string `json:"createdAt"`
	For       string `json:"for"`
}

func newNotificationResponse(n orders.Notification) NotificationResponse {
	return NotificationResponse{
		StorageID: n.ID.String(),
		MessageID: n.MessageID.String(),
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.UTC().Format(wireTimeLayout),
		For:       n.Audience,
	}
}

type ReadResponse struct {
	MessageID string `json:"message_id"`
	IsRead    bool   `json:"isRead"`
}

type UserResponse struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// Dashboard shapes.

type DayResponse struct {
	Date    string `json:"date"`
	Label   string `json:"label"`
	Weekday string `json:"weekday"`
}

type CellResponse struct {
	Date         string                     `json:"date"`
	Consultation *DashboardConsultationView `json:"consultation,omitempty"`
	Overlaps     int                        `json:"overlaps,omitempty"`
}

type RowResponse struct {
	Slot  string         `json:"slot"`
	Start string         `json:"start"`
	End   string         `json:"end"`
	Cells []CellResponse `json:"cells"`
}

type WeekResponse struct {
	Days    []DayResponse `json:"days"`
	Rows    []RowResponse `json:"rows"`
	Warning string        `json:"warning,omitempty"`
}

type DashboardConsultationView struct {
	ID            string    `json:"consultationId"`
	PatientID     string    `json:"userid"`
	PatientName   string    `json:"patientName,omitempty"`
	ScheduledTime time.Time `json:"scheduledTime"`
	EndTime       time.Time `json:"endTime"`
	Status        string    `json:"status"`
	Transitions   []string  `json:"transitions"`
}

func newDashboardConsultationView(c consultation.Consultation) *DashboardConsultationView {
	next := consultation.AvailableTransitions(c.Status)
	names := make([]string, len(next))
	for i, s := range next {
		names[i] = string(s)
	}
	return &DashboardConsultationView{
		ID:            c.ID,
		PatientID:     c.PatientID,
		PatientName:   c.PatientName,
		ScheduledTime: c.ScheduledTime,
		EndTime:       c.EndTime,
		Status:        string(c.Status),
		Transitions:   names,
	}
}

type TransitionResponse struct {
	ConsultationID string `json:"consultationId"`
	Status         string `json:"status"`
	Warning        string `json:"warning,omitempty"`
}

type TransitionsResponse struct {
	ConsultationID string   `json:"consultationId"`
	Status         string   `json:"status"`
	Transitions    []string `json:"transitions"`
}

type NotificationView struct {
	MessageID string `json:"message_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	IsRead    bool   `json:"isRead"`
	Age       string `json:"age"`
}

type PanelResponse struct {
	Items   []NotificationView `json:"items"`
	Total   int                `json:"total"`
	Unread  int                `json:"unread"`
	Badge   string             `json:"badge"`
	ShowAll bool               `json:"showAll"`
	Hidden  int                `json:"hidden"`
	Warning string             `json:"warning,omitempty"`
}

func newPanelResponse(view notification.PanelView, f notification.Formatter) PanelResponse {
	items := make([]NotificationView, len(view.Items))
	for i, n := range view.Items {
		items[i] = NotificationView{
			MessageID: n.MessageID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			IsRead:    n.IsRead,
			Age:       f.Relative(n.CreatedAt),
		}
	}
	return PanelResponse{
		Items:   items,
		Total:   view.Total,
		Unread:  view.Unread,
		Badge:   view.Badge,
		ShowAll: view.ShowAll,
		Hidden:  view.Hidden,
	}
}

type BadgeResponse struct {
	Unread int    `json:"unread"`
	Badge  string `json:"badge"`
}
