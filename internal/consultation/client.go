package consultation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hackgods/consultation-dashboard/internal/httpclient"
)

var ErrMissingID = errors.New("missing required identifier")

// OrderService is the consultation side of the order service.
type OrderService interface {
	ListByNurse(ctx context.Context, nurseID string) ([]Consultation, error)
	UpdateStatus(ctx context.Context, consultationID string, status Status) (Status, error)
}

type HTTPOrderClient struct {
	client  *httpclient.Client
	headers map[string]string
}

func NewHTTPOrderClient(client *httpclient.Client, userID string) *HTTPOrderClient {
	headers := map[string]string{}
	if userID != "" {
		headers["X-User-ID"] = userID
	}
	return &HTTPOrderClient{client: client, headers: headers}
}

// ListByNurse fetches GET /consultations/nurse/{nurseId}. A body without
// recognizable content is an empty list.
func (c *HTTPOrderClient) ListByNurse(ctx context.Context, nurseID string) ([]Consultation, error) {
	if nurseID == "" {
		return nil, ErrMissingID
	}

	raw, err := c.client.Do(ctx, http.MethodGet, "/consultations/nurse/"+url.PathEscape(nurseID), c.headers, nil)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}

	var wire []wireConsultation
	if !httpclient.DecodeData(raw, &wire) {
		return []Consultation{}, nil
	}

	out := make([]Consultation, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toDomain())
	}
	return out, nil
}

// UpdateStatus sends PUT /consultations/status/{consultationId}.
func (c *HTTPOrderClient) UpdateStatus(ctx context.Context, consultationID string, status Status) (Status, error) {
	if consultationID == "" {
		return "", ErrMissingID
	}

	body := map[string]string{"status": string(status)}
	raw, err := c.client.Do(ctx, http.MethodPut, "/consultations/status/"+url.PathEscape(consultationID), c.headers, body)
	if err != nil {
		return "", fmt.Errorf("update consultation status: %w", err)
	}

	var resp struct {
		Status string `json:"status"`
	}
	if !httpclient.DecodeData(raw, &resp) || resp.Status == "" {
		return status, nil
	}
	return Status(resp.Status), nil
}
