package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bobinette/papershelf"
)

type RegisterRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Affiliation  string `json:"affiliation,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
}

type ProfileUpdate struct {
	Affiliation  string `json:"affiliation,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
}

type userResponse struct {
	Message string            `json:"message"`
	User    papershelf.Session `json:"user"`
}

func (c *Client) Login(ctx context.Context, username, password string) (papershelf.Session, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	var res userResponse
	err := c.do(ctx, request{Method: http.MethodPost, Path: "/login", Body: body}, &res)
	if err != nil {
		return papershelf.Session{}, err
	}
	return res.User, nil
}

func (c *Client) Register(ctx context.Context, r RegisterRequest) (papershelf.Session, error) {
	var res userResponse
	err := c.do(ctx, request{Method: http.MethodPost, Path: "/register", Body: r}, &res)
	if err != nil {
		return papershelf.Session{}, err
	}
	return res.User, nil
}

func (c *Client) Profile(ctx context.Context, userID int) (papershelf.Session, error) {
	var user papershelf.Session
	err := c.do(ctx, request{Method: http.MethodGet, Path: fmt.Sprintf("/profile/%d", userID)}, &user)
	if err != nil {
		return papershelf.Session{}, err
	}
	return user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, userID int, u ProfileUpdate) (papershelf.Session, error) {
	var res userResponse
	err := c.do(ctx, request{Method: http.MethodPut, Path: fmt.Sprintf("/profile/%d", userID), Body: u}, &res)
	if err != nil {
		return papershelf.Session{}, err
	}
	return res.User, nil
}
