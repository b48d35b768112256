package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/shopspring/decimal"
)

// Remote is the slice of the commerce API the order views read from.
type Remote interface {
	Order(ctx context.Context, token string, id int64) (*types.Order, error)
	Orders(ctx context.Context, token string) ([]types.Order, error)
}

// Service reads placed orders for the confirmation and history views.
type Service struct {
	remote Remote
	logg   *logger.Logger
}

// NewService wires the order views to the remote API.
func NewService(remote Remote, logg *logger.Logger) (*Service, error) {
	if remote == nil {
		return nil, fmt.Errorf("orders remote required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{remote: remote, logg: logg}, nil
}

// Get fetches one order by id.
func (s *Service) Get(ctx context.Context, token string, id int64) (*types.Order, error) {
	if id <= 0 {
		return nil, pkgerrors.Validation("order", "order id must be positive")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errNoToken()
	}
	ctx = s.logg.WithOrderID(ctx, id)
	order, err := s.remote.Order(ctx, token, id)
	if err != nil {
		s.logg.Error(ctx, "order fetch failed", err)
		return nil, err
	}
	return order, nil
}

// List returns the order history, newest first.
func (s *Service) List(ctx context.Context, token string) ([]types.Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errNoToken()
	}
	orders, err := s.remote.Orders(ctx, token)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "operation", "list_orders"), "order history fetch failed", err)
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// ItemTotal is quantity times sale price for one order row.
func ItemTotal(item types.OrderItem) decimal.Decimal {
	return item.SalePrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// ItemCount sums the quantities of every row.
func ItemCount(order types.Order) int {
	total := 0
	for _, item := range order.Items {
		total += item.Quantity
	}
	return total
}

func errNoToken() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "please log in to view your orders")
}
