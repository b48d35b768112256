package cartapi

import (
	"strconv"
	"time"

	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/shopspring/decimal"
)

// Response schemas. Amounts decode from JSON numbers or strings.

type totalsSchema struct {
	SubTotal      *decimal.Decimal `json:"sub_total" validate:"required"`
	Discount      *decimal.Decimal `json:"discount" validate:"required"`
	NetAmount     *decimal.Decimal `json:"net_amount" validate:"required"`
	Tax           *decimal.Decimal `json:"tax" validate:"required"`
	PayableAmount *decimal.Decimal `json:"payable_amount" validate:"required"`
}

func (t totalsSchema) toTotals() types.CartTotals {
	return types.CartTotals{
		SubTotal:      orZero(t.SubTotal),
		Discount:      orZero(t.Discount),
		NetAmount:     orZero(t.NetAmount),
		Tax:           orZero(t.Tax),
		PayableAmount: orZero(t.PayableAmount),
	}
}

// optionalTotalsSchema is used where the server may omit totals (decrement).
type optionalTotalsSchema struct {
	SubTotal      *decimal.Decimal `json:"sub_total"`
	Discount      *decimal.Decimal `json:"discount"`
	NetAmount     *decimal.Decimal `json:"net_amount"`
	Tax           *decimal.Decimal `json:"tax"`
	PayableAmount *decimal.Decimal `json:"payable_amount"`
}

// toTotals returns nil unless sub_total is present; other missing amounts read as zero.
func (t optionalTotalsSchema) toTotals() *types.CartTotals {
	if t.SubTotal == nil {
		return nil
	}
	totals := totalsSchema(t).toTotals()
	return &totals
}

type cartItemSchema struct {
	ID          int64            `json:"id"`
	ProductID   int64            `json:"product_id" validate:"gt=0"`
	VariantID   int64            `json:"variant_id" validate:"gt=0"`
	ProductName string           `json:"product_name"`
	VariantName string           `json:"variant_name"`
	BrandName   string           `json:"brand_name"`
	Thumbnail   string           `json:"thumbnail"`
	Quantity    int              `json:"quantity" validate:"gte=0"`
	Price       *decimal.Decimal `json:"price"`
}

func (i cartItemSchema) toLine() types.CartLine {
	line := types.CartLine{
		ProductID:    i.ProductID,
		VariantID:    i.VariantID,
		ProductName:  i.ProductName,
		VariantName:  i.VariantName,
		BrandName:    i.BrandName,
		ThumbnailRef: i.Thumbnail,
		Quantity:     i.Quantity,
		UnitPrice:    i.Price,
	}
	if i.ID > 0 {
		line.LineID = strconv.FormatInt(i.ID, 10)
	}
	return line
}

type cartSchema struct {
	Items []cartItemSchema `json:"items" validate:"dive"`
	totalsSchema
}

type cartEnvelope struct {
	Data *cartSchema `json:"data" validate:"required"`
}

type mutationSchema struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
	totalsSchema
}

type mutationEnvelope struct {
	Data *mutationSchema `json:"data" validate:"required"`
}

type decrementSchema struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
	optionalTotalsSchema
}

type decrementEnvelope struct {
	Data *decrementSchema `json:"data" validate:"required"`
}

type addressSchema struct {
	ID         int64   `json:"id" validate:"gt=0"`
	Label      string  `json:"label"`
	Name       string  `json:"name"`
	Street     string  `json:"street"`
	Landmark   *string `json:"landmark"`
	Area       string  `json:"area"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
	Phone      string  `json:"phone"`
	IsDefault  flag    `json:"is_default"`
}

func (a addressSchema) toAddress() types.Address {
	return types.Address{
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
		IsDefault:  bool(a.IsDefault),
	}
}

type addressesEnvelope struct {
	Data []addressSchema `json:"data" validate:"dive"`
}

type checkoutSchema struct {
	Message string `json:"message"`
	Order   *struct {
		ID int64 `json:"id" validate:"gt=0"`
	} `json:"order" validate:"required"`
}

type orderItemSchema struct {
	ID        int64            `json:"id"`
	Quantity  int              `json:"quantity" validate:"gte=0"`
	SalePrice *decimal.Decimal `json:"sale_price"`
	Product   struct {
		Name      string `json:"name"`
		BrandName string `json:"brand_name"`
		Thumbnail string `json:"thumbnail"`
	} `json:"product"`
}

type orderSchema struct {
	ID              int64             `json:"id" validate:"gt=0"`
	CreatedAt       time.Time         `json:"created_at"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentMethod   string            `json:"payment_method"`
	WalletUse       flag              `json:"wallet_use"`
	SubTotal        *decimal.Decimal  `json:"sub_total"`
	Discount        *decimal.Decimal  `json:"discount"`
	Tax             *decimal.Decimal  `json:"tax"`
	DeliveryCharges *decimal.Decimal  `json:"delivery_charges"`
	HandlingCharges *decimal.Decimal  `json:"handling_charges"`
	ServiceCharges  *decimal.Decimal  `json:"service_charges"`
	PayableAmount   *decimal.Decimal  `json:"payable_amount" validate:"required"`
	Address         *addressSchema    `json:"address" validate:"-"`
	Items           []orderItemSchema `json:"items" validate:"dive"`
}

func (o orderSchema) toOrder() types.Order {
	order := types.Order{
		ID:              o.ID,
		CreatedAt:       o.CreatedAt,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		PaymentMethod:   o.PaymentMethod,
		WalletUse:       bool(o.WalletUse),
		SubTotal:        orZero(o.SubTotal),
		Discount:        orZero(o.Discount),
		Tax:             orZero(o.Tax),
		DeliveryCharges: orZero(o.DeliveryCharges),
		HandlingCharges: orZero(o.HandlingCharges),
		ServiceCharges:  orZero(o.ServiceCharges),
		PayableAmount:   orZero(o.PayableAmount),
		Items:           make([]types.OrderItem, 0, len(o.Items)),
	}
	if o.Address != nil {
		addr := o.Address.toAddress()
		order.Address = &addr
	}
	for _, item := range o.Items {
		order.Items = append(order.Items, types.OrderItem{
			ID:        item.ID,
			Quantity:  item.Quantity,
			SalePrice: orZero(item.SalePrice),
			Product: types.OrderProduct{
				Name:      item.Product.Name,
				BrandName: item.Product.BrandName,
				Thumbnail: item.Product.Thumbnail,
			},
		})
	}
	return order
}

type orderEnvelope struct {
	Data *orderSchema `json:"data" validate:"required"`
}

type ordersEnvelope struct {
	Data []orderSchema `json:"data" validate:"dive"`
}

type loginSchema struct {
	Token string `json:"token" validate:"required"`
	User  struct {
		ID     int64            `json:"id"`
		Name   string           `json:"name"`
		Email  string           `json:"email"`
		Wallet *decimal.Decimal `json:"wallet"`
	} `json:"user"`
}

type loginEnvelope struct {
	Data *loginSchema `json:"data" validate:"required"`
}

type profileEnvelope struct {
	Data *struct {
		ID     int64            `json:"id" validate:"gt=0"`
		Name   string           `json:"name"`
		Email  string           `json:"email"`
		Wallet *decimal.Decimal `json:"wallet" validate:"required"`
	} `json:"data" validate:"required"`
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
