package cartapi

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/types"
)

// Session is the token and profile handed out by a successful login.
type Session struct {
	Token   string
	Profile types.CustomerProfile
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, pkgerrors.Validation("login", "email and password are required")
	}
	var env loginEnvelope
	req := call{method: http.MethodPost, path: "/login", body: loginRequest{Email: email, Password: password}, what: "login"}
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	return &Session{
		Token: env.Data.Token,
		Profile: types.CustomerProfile{
			ID:     env.Data.User.ID,
			Name:   env.Data.User.Name,
			Email:  env.Data.User.Email,
			Wallet: orZero(env.Data.User.Wallet),
		},
	}, nil
}

// Profile fetches the current customer's profile, including wallet balance.
func (c *Client) Profile(ctx context.Context, token string) (*types.CustomerProfile, error) {
	var env profileEnvelope
	if err := c.do(ctx, call{method: http.MethodGet, path: "/me", token: token, what: "fetch profile"}, &env); err != nil {
		return nil, err
	}
	return &types.CustomerProfile{
		ID:     env.Data.ID,
		Name:   env.Data.Name,
		Email:  env.Data.Email,
		Wallet: orZero(env.Data.Wallet),
	}, nil
}
