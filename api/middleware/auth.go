package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/grocerycart/api/responses"
	pkgAuth "github.com/angelmondragon/grocerycart/pkg/auth"
	"github.com/angelmondragon/grocerycart/pkg/config"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the customer.
func Auth(cfg config.SandboxConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithCustomerID(r.Context(), claims.CustomerID)
			if logg != nil {
				ctx = logg.WithCustomerID(ctx, strconv.FormatInt(claims.CustomerID, 10))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
