package cartapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/angelmondragon/grocerycart/pkg/types"
)

// CheckoutReceipt is the server's acknowledgement of a placed order.
type CheckoutReceipt struct {
	OrderID int64
	Message string
}

// Checkout submits the order.
func (c *Client) Checkout(ctx context.Context, token string, payload types.CheckoutPayload) (*CheckoutReceipt, error) {
	var resp checkoutSchema
	if err := c.do(ctx, call{method: http.MethodPost, path: "/checkout", token: token, body: payload, what: "checkout"}, &resp); err != nil {
		return nil, err
	}
	return &CheckoutReceipt{OrderID: resp.Order.ID, Message: resp.Message}, nil
}

// Addresses lists the customer's saved delivery addresses.
func (c *Client) Addresses(ctx context.Context, token string) ([]types.Address, error) {
	var env addressesEnvelope
	if err := c.do(ctx, call{method: http.MethodGet, path: "/addresses", token: token, what: "fetch addresses"}, &env); err != nil {
		return nil, err
	}
	out := make([]types.Address, 0, len(env.Data))
	for _, a := range env.Data {
		out = append(out, a.toAddress())
	}
	return out, nil
}

// Order fetches a single placed order.
func (c *Client) Order(ctx context.Context, token string, id int64) (*types.Order, error) {
	var env orderEnvelope
	req := call{method: http.MethodGet, path: fmt.Sprintf("/orders/%d", id), token: token, what: "fetch order"}
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	order := env.Data.toOrder()
	return &order, nil
}

// Orders lists the customer's order history.
func (c *Client) Orders(ctx context.Context, token string) ([]types.Order, error) {
	var env ordersEnvelope
	if err := c.do(ctx, call{method: http.MethodGet, path: "/orders", token: token, what: "fetch orders"}, &env); err != nil {
		return nil, err
	}
	out := make([]types.Order, 0, len(env.Data))
	for _, o := range env.Data {
		out = append(out, o.toOrder())
	}
	return out, nil
}
