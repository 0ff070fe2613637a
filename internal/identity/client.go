package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hackgods/consultation-dashboard/internal/httpclient"
)

var (
	ErrMissingUserID = errors.New("missing user id")
	ErrNotFound      = errors.New("user not found")
	ErrUnauthorized  = errors.New("unauthorized")
)

// User is the current-user record. It is read-only and used for display.
type User struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

type wireUser struct {
	ID       string `json:"id"`
	AltID    string `json:"_id"`
	FullName string `json:"fullName"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type Client struct {
	http *httpclient.Client
}

func NewClient(c *httpclient.Client) *Client {
	return &Client{http: c}
}

// GetMe fetches GET /users/me for userID.
func (c *Client) GetMe(ctx context.Context, userID string) (User, error) {
	if userID == "" {
		return User{}, ErrMissingUserID
	}

	raw, err := c.http.Do(ctx, http.MethodGet, "/users/me", map[string]string{"X-User-ID": userID}, nil)
	if err != nil {
		if apiErr, ok := httpclient.AsAPIError(err); ok {
			switch apiErr.StatusCode {
			case http.StatusNotFound:
				return User{}, ErrNotFound
			case http.StatusUnauthorized, http.StatusForbidden:
				return User{}, ErrUnauthorized
			}
		}
		return User{}, fmt.Errorf("get current user: %w", err)
	}

	var w wireUser
	if !httpclient.DecodeData(raw, &w) {
		return User{}, ErrNotFound
	}

	u := User{ID: w.ID, FullName: w.FullName, Email: w.Email, Role: w.Role}
	if u.ID == "" {
		u.ID = w.AltID
	}
	if u.FullName == "" {
		u.FullName = w.Name
	}
	if u.ID == "" {
		return User{}, errors.New("identity response missing id")
	}
	return u, nil
}
