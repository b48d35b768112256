package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/grocerycart/api/middleware"
	"github.com/angelmondragon/grocerycart/api/responses"
	"github.com/angelmondragon/grocerycart/api/validators"
	"github.com/angelmondragon/grocerycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/shopspring/decimal"
)

// CheckoutService places orders and serves the address book.
type CheckoutService interface {
	Addresses(ctx context.Context, customerID int64) ([]types.Address, error)
	Checkout(ctx context.Context, customerID int64, payload types.CheckoutPayload) (types.Order, error)
}

// addressResponse carries is_default as 0/1 like the storefront API does.
type addressResponse struct {
	ID         int64   `json:"id"`
	Label      string  `json:"label,omitempty"`
	Name       string  `json:"name"`
	Street     string  `json:"street"`
	Landmark   *string `json:"landmark"`
	Area       string  `json:"area"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
	Phone      string  `json:"phone"`
	IsDefault  int     `json:"is_default"`
}

func newAddressResponse(a types.Address) addressResponse {
	resp := addressResponse{
		ID:         a.ID,
		Label:      a.Label,
		Name:       a.Name,
		Street:     a.Street,
		Landmark:   a.Landmark,
		Area:       a.Area,
		City:       a.City,
		State:      a.State,
		Country:    a.Country,
		PostalCode: a.PostalCode,
		Phone:      a.Phone,
	}
	if a.IsDefault {
		resp.IsDefault = 1
	}
	return resp
}

type checkoutRequest struct {
	WalletUse           bool             `json:"wallet_use"`
	CouponID            *int64           `json:"coupon_id"`
	Tip                 *decimal.Decimal `json:"tip"`
	AddressID           int64            `json:"address_id" validate:"gt=0"`
	DeliveryDate        string           `json:"delivery_date" validate:"required,datetime=2006-01-02"`
	Deliverable         bool             `json:"deliverable"`
	CardNumber          string           `json:"card_number"`
	CardHolderName      string           `json:"card_holder_name"`
	ExpireMonth         *int             `json:"expire_month"`
	ExpireYear          *int             `json:"expire_year"`
	CVV                 *int             `json:"cvv"`
	DeliveryInstruction string           `json:"delivery_instraction"`
	DeliveryNote        string           `json:"delivery_Note"`
	DeliveryTime        string           `json:"delivery_time" validate:"required"`
	DeliveryType        string           `json:"delivery_type" validate:"omitempty,oneof=standard express"`
	DeliveryIn          string           `json:"delivery_in"`
}

func (r checkoutRequest) toPayload() types.CheckoutPayload {
	return types.CheckoutPayload{
		WalletUse:           r.WalletUse,
		CouponID:            r.CouponID,
		Tip:                 r.Tip,
		AddressID:           r.AddressID,
		DeliveryDate:        r.DeliveryDate,
		Deliverable:         r.Deliverable,
		CardNumber:          r.CardNumber,
		CardHolderName:      r.CardHolderName,
		ExpireMonth:         r.ExpireMonth,
		ExpireYear:          r.ExpireYear,
		CVV:                 r.CVV,
		DeliveryInstruction: r.DeliveryInstruction,
		DeliveryNote:        r.DeliveryNote,
		DeliveryTime:        r.DeliveryTime,
		DeliveryType:        enums.DeliveryType(r.DeliveryType),
		DeliveryIn:          r.DeliveryIn,
	}
}

type checkoutResponse struct {
	Message string           `json:"message"`
	Order   checkoutOrderRef `json:"order"`
}

type checkoutOrderRef struct {
	ID int64 `json:"id"`
}

// AddressList returns the customer's saved addresses.
func AddressList(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		addresses, err := svc.Addresses(r.Context(), middleware.CustomerIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]addressResponse, 0, len(addresses))
		for _, a := range addresses {
			out = append(out, newAddressResponse(a))
		}
		responses.WriteSuccess(w, out)
	}
}

// Checkout places an order from the customer's cart.
func Checkout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Checkout(r.Context(), middleware.CustomerIDFromContext(r.Context()), req.toPayload())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, checkoutResponse{
			Message: "Order placed successfully",
			Order:   checkoutOrderRef{ID: order.ID},
		})
	}
}
