package consultation

import (
	"context"
	"errors"
	"strings"

	"github.com/hackgods/consultation-dashboard/internal/httpclient"
)

// Error codes the order service emits in its error envelope.
const (
	CodeInvalidTransition    = "invalid_status_transition"
	CodeConsultationNotFound = "consultation_not_found"
	CodeConsultationBusy     = "consultation_busy"
	CodeInvalidStatus        = "invalid_status"
)

const (
	HintGeneric       = "Could not update the consultation. Please try again."
	HintStale         = "This consultation was already updated by someone else. The schedule has been reloaded."
	HintNotFound      = "This consultation no longer exists."
	HintBusy          = "Another staff member is updating this consultation. Please retry in a moment."
	HintInvalidStatus = "That status change is not allowed."
	HintMissingID     = "Select a consultation first."
	HintUnavailable   = "The order service is unreachable. Please try again."
)

// Hint picks the user-facing message for a failed transition. Structured
// error codes are preferred; message matching is a degraded fallback for
// upstreams that only send text.
func Hint(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrMissingID):
		return HintMissingID
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidStatusTransition), errors.Is(err, ErrTerminalStatus):
		return HintInvalidStatus
	case errors.Is(err, ErrNotFound):
		return HintNotFound
	case errors.Is(err, ErrTransitionInFlight):
		return HintBusy
	case errors.Is(err, context.DeadlineExceeded):
		return HintUnavailable
	}

	apiErr, ok := httpclient.AsAPIError(err)
	if !ok {
		return HintUnavailable
	}

	switch apiErr.Code {
	case CodeInvalidTransition:
		return HintStale
	case CodeConsultationNotFound:
		return HintNotFound
	case CodeConsultationBusy:
		return HintBusy
	case CodeInvalidStatus:
		return HintInvalidStatus
	}

	text := strings.ToLower(apiErr.Message + " " + apiErr.Body)
	switch {
	case strings.Contains(text, "not found"):
		return HintNotFound
	case strings.Contains(text, "transition"), strings.Contains(text, "already"):
		return HintStale
	case apiErr.Transient():
		return HintUnavailable
	}
	return HintGeneric
}
