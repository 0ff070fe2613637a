package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hackgods/consultation-dashboard/internal/httpclient"
)

var ErrMissingMessageID = errors.New("missing notification message id")

// Source is the notification service as the engine sees it.
type Source interface {
	List(ctx context.Context) ([]Notification, error)
	Acknowledge(ctx context.Context, messageID string) error
}

type HTTPSourceConfig struct {
	ListPath string
	ReadPath string
	// Audience is sent as the "for" query parameter when set.
	Audience string
	UserID   string
}

type HTTPSource struct {
	client   *httpclient.Client
	listPath string
	readPath string
	headers  map[string]string
}

func NewHTTPSource(client *httpclient.Client, cfg HTTPSourceConfig) *HTTPSource {
	listPath := cfg.ListPath
	if listPath == "" {
		listPath = "/notifications/warehouse"
	}
	readPath := cfg.ReadPath
	if readPath == "" {
		readPath = "/notifications/read"
	}
	if cfg.Audience != "" {
		sep := "?"
		if strings.Contains(listPath, "?") {
			sep = "&"
		}
		listPath += sep + "for=" + url.QueryEscape(cfg.Audience)
	}

	headers := map[string]string{}
	if cfg.UserID != "" {
		headers["X-User-ID"] = cfg.UserID
	}
	return &HTTPSource{client: client, listPath: listPath, readPath: readPath, headers: headers}
}

// List fetches the warehouse messages. Entries without a message id cannot be
// acknowledged and are dropped.
func (s *HTTPSource) List(ctx context.Context) ([]Notification, error) {
	raw, err := s.client.Do(ctx, http.MethodGet, s.listPath, s.headers, nil)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	var wire []wireNotification
	if !httpclient.DecodeData(raw, &wire) {
		return []Notification{}, nil
	}

	out := make([]Notification, 0, len(wire))
	for _, w := range wire {
		if w.MessageID == "" {
			continue
		}
		out = append(out, w.toDomain())
	}
	return out, nil
}

func (s *HTTPSource) Acknowledge(ctx context.Context, messageID string) error {
	if messageID == "" {
		return ErrMissingMessageID
	}
	body := map[string]string{"message_id": messageID}
	if _, err := s.client.Do(ctx, http.MethodPost, s.readPath, s.headers, body); err != nil {
		return fmt.Errorf("acknowledge notification %s: %w", messageID, err)
	}
	return nil
}
