package notification

import (
	"time"

	"github.com/hackgods/consultation-dashboard/internal/schedule"
)

// Notification is one warehouse message. MessageID is the acknowledgement
// key; StorageID is the store's own key and is never used for correlation.
// CreatedAt is kept as stored, write skew included.
type Notification struct {
	MessageID string    `json:"message_id"`
	StorageID string    `json:"_id,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
	For       string    `json:"for,omitempty"`
}

type wireNotification struct {
	MessageID string `json:"message_id"`
	StorageID string `json:"_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	IsRead    bool   `json:"isRead"`
	CreatedAt string `json:"createdAt"`
	For       string `json:"for"`
}

func (w wireNotification) toDomain() Notification {
	return Notification{
		MessageID: w.MessageID,
		StorageID: w.StorageID,
		Title:     w.Title,
		Message:   w.Message,
		Type:      w.Type,
		IsRead:    w.IsRead,
		CreatedAt: schedule.ParseInstant(w.CreatedAt),
		For:       w.For,
	}
}

// CountUnread counts entries with IsRead == false.
func CountUnread(items []Notification) int {
	n := 0
	for _, it := range items {
		if !it.IsRead {
			n++
		}
	}
	return n
}
