package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/grocerycart/api/middleware"
	"github.com/angelmondragon/grocerycart/api/responses"
	"github.com/angelmondragon/grocerycart/api/validators"
	"github.com/angelmondragon/grocerycart/internal/sandbox"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/angelmondragon/grocerycart/pkg/types"
)

// CartService owns the server-side carts.
type CartService interface {
	Cart(ctx context.Context, customerID int64) (sandbox.CartView, error)
	Add(ctx context.Context, customerID int64, key types.LineKey) (sandbox.MutationView, error)
	Increment(ctx context.Context, customerID int64, key types.LineKey) (sandbox.MutationView, error)
	Decrement(ctx context.Context, customerID int64, key types.LineKey) (sandbox.MutationView, error)
}

type cartLineRequest struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	VariantID int64 `json:"variant_id" validate:"gt=0"`
}

type cartMutation func(ctx context.Context, customerID int64, key types.LineKey) (sandbox.MutationView, error)

// CartFetch returns the customer's cart and totals.
func CartFetch(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		view, err := svc.Cart(r.Context(), middleware.CustomerIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAdd adds one unit of a product variant.
func CartAdd(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartLineHandler(svc, logg, func(s CartService) cartMutation { return s.Add })
}

// CartIncrement raises a line by one.
func CartIncrement(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartLineHandler(svc, logg, func(s CartService) cartMutation { return s.Increment })
}

// CartDecrement lowers a line by one.
func CartDecrement(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartLineHandler(svc, logg, func(s CartService) cartMutation { return s.Decrement })
}

func cartLineHandler(svc CartService, logg *logger.Logger, pick func(CartService) cartMutation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var req cartLineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithLine(ctx, req.ProductID, req.VariantID)
		}
		key := types.LineKey{ProductID: req.ProductID, VariantID: req.VariantID}
		view, err := pick(svc)(ctx, middleware.CustomerIDFromContext(ctx), key)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
