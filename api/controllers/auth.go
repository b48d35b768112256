package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/grocerycart/api/middleware"
	"github.com/angelmondragon/grocerycart/api/responses"
	"github.com/angelmondragon/grocerycart/api/validators"
	pkgAuth "github.com/angelmondragon/grocerycart/pkg/auth"
	"github.com/angelmondragon/grocerycart/pkg/config"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/angelmondragon/grocerycart/pkg/types"
)

// AuthService authenticates sandbox customers.
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (types.CustomerProfile, error)
	Profile(ctx context.Context, customerID int64) (types.CustomerProfile, error)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string                `json:"token"`
	User  types.CustomerProfile `json:"user"`
}

// AuthLogin exchanges email and password for a bearer token.
func AuthLogin(svc AuthService, cfg config.SandboxConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req loginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
			CustomerID: profile.ID,
			Email:      profile.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token"))
			return
		}

		responses.WriteSuccess(w, loginResponse{Token: token, User: profile})
	}
}

// AuthMe returns the authenticated customer's profile.
func AuthMe(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		profile, err := svc.Profile(r.Context(), middleware.CustomerIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
