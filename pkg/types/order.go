package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the frozen snapshot the server returns for a submitted checkout.
type Order struct {
	ID              int64           `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status,omitempty"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	WalletUse       bool            `json:"wallet_use"`
	SubTotal        decimal.Decimal `json:"sub_total"`
	Discount        decimal.Decimal `json:"discount"`
	Tax             decimal.Decimal `json:"tax"`
	DeliveryCharges decimal.Decimal `json:"delivery_charges"`
	HandlingCharges decimal.Decimal `json:"handling_charges"`
	ServiceCharges  decimal.Decimal `json:"service_charges"`
	PayableAmount   decimal.Decimal `json:"payable_amount"`
	Address         *Address        `json:"address,omitempty"`
	Items           []OrderItem     `json:"items"`
}

type OrderItem struct {
	ID        int64           `json:"id"`
	Quantity  int             `json:"quantity"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Product   OrderProduct    `json:"product"`
}

type OrderProduct struct {
	Name      string `json:"name"`
	BrandName string `json:"brand_name,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// CustomerProfile is the cached profile stored next to the bearer token.
type CustomerProfile struct {
	ID     int64           `json:"id,omitempty"`
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	Wallet decimal.Decimal `json:"wallet"`
}
