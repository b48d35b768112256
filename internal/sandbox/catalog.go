package sandbox

import (
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/shopspring/decimal"
)

// Variant is one purchasable product variant.
type Variant struct {
	ProductID   int64
	VariantID   int64
	ProductName string
	VariantName string
	BrandName   string
	Thumbnail   string
	Price       decimal.Decimal
}

func (v Variant) Key() types.LineKey {
	return types.LineKey{ProductID: v.ProductID, VariantID: v.VariantID}
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultCatalog is the seeded grocery catalog.
func DefaultCatalog() []Variant {
	return []Variant{
		{ProductID: 1, VariantID: 1, ProductName: "Organic Bananas", VariantName: "1 kg", BrandName: "Fresh Farms", Thumbnail: "products/bananas.jpg", Price: price("2.49")},
		{ProductID: 1, VariantID: 2, ProductName: "Organic Bananas", VariantName: "2 kg", BrandName: "Fresh Farms", Thumbnail: "products/bananas.jpg", Price: price("4.49")},
		{ProductID: 2, VariantID: 3, ProductName: "Brown Eggs", VariantName: "6 pack", BrandName: "Hillside", Thumbnail: "products/eggs.jpg", Price: price("3.10")},
		{ProductID: 2, VariantID: 4, ProductName: "Brown Eggs", VariantName: "12 pack", BrandName: "Hillside", Thumbnail: "products/eggs.jpg", Price: price("5.75")},
		{ProductID: 3, VariantID: 7, ProductName: "Sourdough Loaf", VariantName: "800 g", BrandName: "Corner Bakery", Thumbnail: "products/sourdough.jpg", Price: price("4.20")},
		{ProductID: 4, VariantID: 9, ProductName: "Basmati Rice", VariantName: "5 kg", BrandName: "Golden Grain", Thumbnail: "products/rice.jpg", Price: price("11.99")},
		{ProductID: 5, VariantID: 12, ProductName: "Whole Milk", VariantName: "1 L", BrandName: "Dairy Co", Thumbnail: "products/milk.jpg", Price: price("1.29")},
		{ProductID: 5, VariantID: 13, ProductName: "Whole Milk", VariantName: "2 L", BrandName: "Dairy Co", Thumbnail: "products/milk.jpg", Price: price("2.39")},
		{ProductID: 6, VariantID: 15, ProductName: "Cheddar Cheese", VariantName: "400 g", BrandName: "Dairy Co", Thumbnail: "products/cheddar.jpg", Price: price("6.50")},
		{ProductID: 7, VariantID: 18, ProductName: "Olive Oil", VariantName: "750 ml", BrandName: "Sunny Grove", Thumbnail: "products/olive-oil.jpg", Price: price("9.80")},
	}
}

func defaultAddresses() []types.Address {
	landmark := "Opposite the park"
	return []types.Address{
		{
			ID:         1,
			Label:      "Home",
			Name:       "Demo Customer",
			Street:     "12 Market Street",
			Landmark:   &landmark,
			Area:       "Old Town",
			City:       "Springfield",
			State:      "IL",
			Country:    "US",
			PostalCode: "62701",
			Phone:      "+1 217 555 0101",
		},
		{
			ID:         2,
			Label:      "Office",
			Name:       "Demo Customer",
			Street:     "400 Commerce Ave, Suite 9",
			Area:       "Downtown",
			City:       "Springfield",
			State:      "IL",
			Country:    "US",
			PostalCode: "62704",
			Phone:      "+1 217 555 0199",
			IsDefault:  true,
		},
	}
}
