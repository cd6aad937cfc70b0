package shiprocket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain"
)

// Package dimensions the store ships with by default (cm / kg).
const (
	defaultLength  = 10
	defaultBreadth = 10
	defaultHeight  = 10
	defaultWeight  = 0.5
)

type orderItem struct {
	Name         string      `json:"name"`
	SKU          string      `json:"sku"`
	Units        int         `json:"units"`
	SellingPrice json.Number `json:"selling_price"`
}

type adhocOrder struct {
	OrderID             string      `json:"order_id"`
	OrderDate           string      `json:"order_date"`
	PickupLocation      string      `json:"pickup_location"`
	BillingCustomerName string      `json:"billing_customer_name"`
	BillingLastName     string      `json:"billing_last_name"`
	BillingAddress      string      `json:"billing_address"`
	BillingCity         string      `json:"billing_city"`
	BillingPincode      string      `json:"billing_pincode"`
	BillingState        string      `json:"billing_state"`
	BillingCountry      string      `json:"billing_country"`
	BillingEmail        string      `json:"billing_email"`
	BillingPhone        string      `json:"billing_phone"`
	ShippingIsBilling   bool        `json:"shipping_is_billing"`
	OrderItems          []orderItem `json:"order_items"`
	PaymentMethod       string      `json:"payment_method"`
	SubTotal            json.Number `json:"sub_total"`
	Length              float64     `json:"length"`
	Breadth             float64     `json:"breadth"`
	Height              float64     `json:"height"`
	Weight              float64     `json:"weight"`
}

// buildOrder maps a shipment onto the provider's adhoc order payload.
// sub_total is always recomputed from the items.
func buildOrder(s domain.Shipment, pickup string, now time.Time) adhocOrder {
	first, last := splitName(s.CustomerName)
	country := s.Country
	if country == "" {
		country = "India"
	}
	method := s.PaymentMethod
	if method == "" {
		method = "Prepaid"
	}

	items := make([]orderItem, 0, len(s.Items))
	for i, it := range s.Items {
		sku := it.SKU
		if sku == "" {
			sku = s.OrderID + "-" + strconv.Itoa(i+1)
		}
		items = append(items, orderItem{
			Name:         it.Name,
			SKU:          sku,
			Units:        it.Quantity,
			SellingPrice: json.Number(it.Price.StringFixed(2)),
		})
	}

	return adhocOrder{
		OrderID:             s.OrderID,
		OrderDate:           now.Format("2006-01-02 15:04"),
		PickupLocation:      pickup,
		BillingCustomerName: first,
		BillingLastName:     last,
		BillingAddress:      s.Address,
		BillingCity:         s.City,
		BillingPincode:      s.Pincode,
		BillingState:        s.State,
		BillingCountry:      country,
		BillingEmail:        s.Email,
		BillingPhone:        s.Phone,
		ShippingIsBilling:   true,
		OrderItems:          items,
		PaymentMethod:       method,
		SubTotal:            json.Number(s.SubTotal().StringFixed(2)),
		Length:              defaultLength,
		Breadth:             defaultBreadth,
		Height:              defaultHeight,
		Weight:              defaultWeight,
	}
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
