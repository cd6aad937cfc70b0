package domain

import "github.com/shopspring/decimal"

// Shipment is the handoff request for the shipping provider.
type Shipment struct {
	OrderID       string         `json:"id"`
	CustomerName  string         `json:"customerName"`
	Address       string         `json:"address"`
	City          string         `json:"city"`
	Pincode       string         `json:"pincode"`
	State         string         `json:"state"`
	Country       string         `json:"country,omitempty"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	Items         []ShipmentItem `json:"items"`
	PaymentMethod string         `json:"paymentMethod,omitempty"`
}

type ShipmentItem struct {
	Name     string          `json:"name"`
	SKU      string          `json:"sku,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// SubTotal is Σ price × quantity over the items.
func (s Shipment) SubTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range s.Items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// Validate checks the fields the provider rejects when missing.
func (s Shipment) Validate() error {
	switch {
	case s.OrderID == "":
		return Invalid("id", "required")
	case s.CustomerName == "":
		return Invalid("customerName", "required")
	case s.Address == "":
		return Invalid("address", "required")
	case s.City == "":
		return Invalid("city", "required")
	case s.Pincode == "":
		return Invalid("pincode", "required")
	case s.State == "":
		return Invalid("state", "required")
	case s.Phone == "":
		return Invalid("phone", "required")
	case len(s.Items) == 0:
		return Invalid("items", "at least one item required")
	}
	for _, it := range s.Items {
		if it.Quantity < 1 {
			return Invalid("items.quantity", "must be at least 1")
		}
	}
	return nil
}
