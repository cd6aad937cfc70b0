package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the per-user server-side cart, priced from the catalogue at read time.
type Cart struct {
	UserID     string          `json:"userId"`
	Currency   string          `json:"currency,omitempty"`
	Lines      []CartLine      `json:"items"`
	TotalCents int64           `json:"totalCents"`
	Total      decimal.Decimal `json:"total"`
}

type CartLine struct {
	ProductID      string    `json:"productId"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	TotalCents     int64     `json:"totalCents"`
	Currency       string    `json:"currency"`
	Images         []string  `json:"images,omitempty"`
	AddedAt        time.Time `json:"addedAt"`
}

// WishlistItem is a saved product reference.
type WishlistItem struct {
	ProductID  string    `json:"productId"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"priceCents"`
	Currency   string    `json:"currency"`
	AddedAt    time.Time `json:"addedAt"`
}

// Recalculate fills line and cart totals from quantities and unit prices.
func (c *Cart) Recalculate() {
	var total int64
	for i := range c.Lines {
		c.Lines[i].TotalCents = c.Lines[i].UnitPriceCents * int64(c.Lines[i].Quantity)
		total += c.Lines[i].TotalCents
		if c.Currency == "" {
			c.Currency = c.Lines[i].Currency
		}
	}
	c.TotalCents = total
	c.Total = decimal.New(total, -2)
	if c.Lines == nil {
		c.Lines = []CartLine{}
	}
}
