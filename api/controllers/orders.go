package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/grocerycart/api/middleware"
	"github.com/angelmondragon/grocerycart/api/responses"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/angelmondragon/grocerycart/pkg/types"
)

// OrderService reads placed orders.
type OrderService interface {
	Order(ctx context.Context, customerID, orderID int64) (types.Order, error)
	Orders(ctx context.Context, customerID int64) ([]types.Order, error)
}

// OrderList returns the customer's order history.
func OrderList(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		orders, err := svc.Orders(r.Context(), middleware.CustomerIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// OrderDetail returns one order by id.
func OrderDetail(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
		if err != nil || orderID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}
		order, err := svc.Order(ctx, middleware.CustomerIDFromContext(ctx), orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
