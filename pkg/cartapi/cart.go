package cartapi

import (
	"context"
	"net/http"

	"github.com/angelmondragon/grocerycart/pkg/types"
)

// Cart is the full server cart returned by GET /cart.
type Cart struct {
	Lines  []types.CartLine
	Totals types.CartTotals
}

// MutationResult is the server's answer to add/increment/decrement.
// Totals is nil when the server omitted them.
type MutationResult struct {
	Key      types.LineKey
	Quantity int
	Totals   *types.CartTotals
}

type lineRequest struct {
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"variant_id"`
}

// FetchCart retrieves the whole cart.
func (c *Client) FetchCart(ctx context.Context, token string) (*Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, call{method: http.MethodGet, path: "/cart", token: token, what: "fetch cart"}, &env); err != nil {
		return nil, err
	}
	cart := &Cart{
		Lines:  make([]types.CartLine, 0, len(env.Data.Items)),
		Totals: env.Data.toTotals(),
	}
	for _, item := range env.Data.Items {
		cart.Lines = append(cart.Lines, item.toLine())
	}
	return cart, nil
}

// AddLine adds one unit of the product variant.
func (c *Client) AddLine(ctx context.Context, token string, key types.LineKey) (*MutationResult, error) {
	return c.mutate(ctx, http.MethodPost, "/cart/add", "add to cart", token, key)
}

// IncrementLine raises the line quantity by one.
func (c *Client) IncrementLine(ctx context.Context, token string, key types.LineKey) (*MutationResult, error) {
	return c.mutate(ctx, http.MethodPut, "/cart/increment", "increment cart", token, key)
}

// DecrementLine lowers the line quantity by one. A zero quantity means the
// server removed the line.
func (c *Client) DecrementLine(ctx context.Context, token string, key types.LineKey) (*MutationResult, error) {
	var env decrementEnvelope
	req := call{method: http.MethodPut, path: "/cart/decrement", token: token, body: lineRequest(key), what: "decrement cart"}
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	return &MutationResult{Key: key, Quantity: *env.Data.Quantity, Totals: env.Data.toTotals()}, nil
}

func (c *Client) mutate(ctx context.Context, method, path, what, token string, key types.LineKey) (*MutationResult, error) {
	var env mutationEnvelope
	req := call{method: method, path: path, token: token, body: lineRequest(key), what: what}
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	totals := env.Data.toTotals()
	return &MutationResult{Key: key, Quantity: *env.Data.Quantity, Totals: &totals}, nil
}
