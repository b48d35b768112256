package types

import "strings"

// Address is a delivery address kept structured end-to-end.
type Address struct {
	ID         int64   `json:"id"`
	Label      string  `json:"label,omitempty"`
	Name       string  `json:"name"`
	Street     string  `json:"street"`
	Landmark   *string `json:"landmark,omitempty"`
	Area       string  `json:"area"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
	Phone      string  `json:"phone"`
	IsDefault  bool    `json:"is_default"`
	Selected   bool    `json:"selected"`
}

// DisplayLine renders the address for humans. It is never parsed back.
func (a Address) DisplayLine() string {
	parts := make([]string, 0, 6)
	for _, part := range []string{a.Street, a.Area, a.City, a.State, a.Country, a.PostalCode} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}
