package api

import (
	"cherrypick/client/internal/models"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
)

type loginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

// AuthResponse is the body of a successful login.
type AuthResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId"`
	Nickname string `json:"nickname"`
	Message  string `json:"message,omitempty"`
}

// Login authenticates and stores the returned token. A minimal profile is
// cached from the response so chat screens can label optimistic messages
// before GetProfile runs.
func (c *Client) Login(ctx context.Context, phoneNumber, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{PhoneNumber: phoneNumber, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New("api: login response carried no token")
	}
	if c.Store == nil {
		return &resp, nil
	}

	if err := c.Store.SaveToken(ctx, resp.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	profile := &models.User{ID: resp.UserID, Nickname: resp.Nickname, PhoneNumber: phoneNumber}
	if err := c.Store.SaveProfile(ctx, profile); err != nil {
		log.Printf("WARNING: failed to cache profile after login: %v", err)
	}
	return &resp, nil
}

// GetProfile fetches the signed-in user's profile and caches it locally.
func (c *Client) GetProfile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/users/profile", nil, &user); err != nil {
		return nil, err
	}
	if c.Store != nil {
		if err := c.Store.SaveProfile(ctx, &user); err != nil {
			log.Printf("WARNING: failed to cache profile: %v", err)
		}
	}
	return &user, nil
}
