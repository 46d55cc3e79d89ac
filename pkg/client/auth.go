package client

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// User is a PredictPesa account as returned by the API.
type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username,omitempty"`
	FirstName         string     `json:"first_name,omitempty"`
	LastName          string     `json:"last_name,omitempty"`
	PhoneNumber       string     `json:"phone_number,omitempty"`
	CountryCode       string     `json:"country_code,omitempty"`
	Timezone          string     `json:"timezone"`
	PreferredCurrency string     `json:"preferred_currency"`
	Bio               string     `json:"bio,omitempty"`
	Role              string     `json:"role"`
	Status            string     `json:"status"`
	IsActive          bool       `json:"is_active"`
	IsVerified        bool       `json:"is_verified"`
	TotalStakes       int        `json:"total_stakes"`
	TotalWinnings     float64    `json:"total_winnings"`
	SuccessRate       float64    `json:"success_rate"`
	ReputationScore   int        `json:"reputation_score"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Username    string `json:"username,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}

// ProfileUpdate carries the editable profile fields.  Nil fields are left
// unchanged.
type ProfileUpdate struct {
	FirstName         *string `json:"first_name,omitempty"`
	LastName          *string `json:"last_name,omitempty"`
	Username          *string `json:"username,omitempty"`
	PhoneNumber       *string `json:"phone_number,omitempty"`
	CountryCode       *string `json:"country_code,omitempty"`
	Timezone          *string `json:"timezone,omitempty"`
	PreferredCurrency *string `json:"preferred_currency,omitempty"`
	Bio               *string `json:"bio,omitempty"`
}

// AuthClient covers /api/v1/auth and /api/v1/users.
type AuthClient struct {
	client *Client
}

// Register creates an account.  It does not log in.
func (a *AuthClient) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	if req == nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidConfig)
	}
	var u User
	if err := a.client.post(ctx, "/api/v1/auth/register", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login exchanges credentials for an access token and makes the client use
// it for subsequent requests.
func (a *AuthClient) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp TokenResponse
	if err := a.client.post(ctx, "/api/v1/auth/login", body, &resp); err != nil {
		return nil, err
	}
	a.client.SetToken(resp.AccessToken)
	return &resp, nil
}

// Logout revokes the current token on the server and clears it locally.
// The local token is cleared even when the request fails.
func (a *AuthClient) Logout(ctx context.Context) error {
	err := a.client.post(ctx, "/api/v1/auth/logout", nil, nil)
	a.client.SetToken("")
	return err
}

// Refresh trades the current token for a new one and switches to it.
func (a *AuthClient) Refresh(ctx context.Context) (*TokenResponse, error) {
	var resp TokenResponse
	if err := a.client.post(ctx, "/api/v1/auth/refresh", nil, &resp); err != nil {
		return nil, err
	}
	a.client.SetToken(resp.AccessToken)
	return &resp, nil
}

// Me returns the caller's profile.
func (a *AuthClient) Me(ctx context.Context) (*User, error) {
	var u User
	if err := a.client.get(ctx, "/api/v1/users/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateMe applies update to the caller's profile.
func (a *AuthClient) UpdateMe(ctx context.Context, update *ProfileUpdate) (*User, error) {
	var u User
	if err := a.client.put(ctx, "/api/v1/users/me", update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
