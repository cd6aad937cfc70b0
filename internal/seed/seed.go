package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

// Upserter writes catalogue rows keyed by product key.
type Upserter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

// Catalogue is the demo product set used for manual testing.
func Catalogue() []domain.Product {
	return []domain.Product{
		{
			Key:         "classic-tee",
			SKU:         "SKU-TEE-CLASSIC",
			Name:        "Classic Cotton Tee",
			Description: "Soft combed cotton tee",
			PriceCents:  49999,
			Currency:    "INR",
			Attributes:  map[string]interface{}{"images": []string{"/static/img/tee.jpg"}, "category": "apparel"},
		},
		{
			Key:         "ceramic-mug",
			SKU:         "SKU-MUG-350",
			Name:        "Ceramic Mug 350ml",
			Description: "Stoneware mug, dishwasher safe",
			PriceCents:  29900,
			Currency:    "INR",
			Attributes:  map[string]interface{}{"images": []string{"/static/img/mug.jpg"}, "category": "home"},
		},
		{
			Key:         "canvas-tote",
			SKU:         "SKU-TOTE-CNV",
			Name:        "Canvas Tote Bag",
			Description: "Heavy canvas tote with inner pocket",
			PriceCents:  79950,
			Currency:    "INR",
			Attributes:  map[string]interface{}{"category": "accessories"},
		},
	}
}

// Apply upserts the demo catalogue and returns how many products were written.
// Running it twice leaves the same rows.
func Apply(ctx context.Context, repo Upserter) (int, error) {
	n := 0
	for _, p := range Catalogue() {
		if _, err := repo.Upsert(ctx, p); err != nil {
			return n, fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
		n++
	}
	return n, nil
}
