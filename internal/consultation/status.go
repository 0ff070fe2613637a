package consultation

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrInvalidStatus           = errors.New("invalid consultation status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrTerminalStatus          = errors.New("consultation is in a terminal status")
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusCancelled},
	StatusApproved: {StatusCompleted, StatusCancelled},
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Active statuses occupy a grid cell.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// Terminal statuses are kept for history only.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AvailableTransitions lists the statuses a consultation can move to.
func AvailableTransitions(from Status) []Status {
	next := transitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition explains why from -> to is not allowed.
func ValidateTransition(from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return ErrInvalidStatus
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminalStatus, from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
	}
	return nil
}
