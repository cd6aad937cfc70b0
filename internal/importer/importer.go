// Package importer loads catalogue CSV files into the product store.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

const defaultCurrency = "INR"

// maxPrice keeps price_cents inside BIGINT after the shift to minor units.
var maxPrice = decimal.New(1, 12)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads rows of key,name,description,sku,price,currency,image,category.
// price is in major units ("499.99"); currency defaults to INR. A row with an
// empty key and an image adds that image to the product above it.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	return &CSVImporter{reader: csvr, productRepo: repo}
}

type csvRow struct {
	line      int
	Key       string
	Name      string
	Desc      string
	SKU       string
	Price     string
	Currency  string
	Category  string
	ImageURLs []string
}

// Run parses every row and upserts one product per key. It stops at the
// first invalid product and reports how many were written before it.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, required := range []string{"key", "name", "sku", "price"} {
		if _, ok := index[required]; !ok {
			return 0, fmt.Errorf("missing column %q", required)
		}
	}

	var (
		current  *csvRow
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read line %d: %w", line, err)
		}

		row := parseRow(record, index)
		if row == nil {
			continue
		}
		row.line = line

		if row.Key != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

		if current != nil {
			current.ImageURLs = append(current.ImageURLs, row.ImageURLs...)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	p, err := row.product()
	if err != nil {
		return fmt.Errorf("line %d key %q: %w", row.line, row.Key, err)
	}
	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", row.Key, err)
	}
	return nil
}

func (r *csvRow) product() (domain.Product, error) {
	if r.Name == "" || r.SKU == "" {
		return domain.Product{}, errors.New("name and sku required")
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("price %q: %w", r.Price, err)
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return domain.Product{}, fmt.Errorf("price %q too large", r.Price)
	}
	cents := price.Shift(2).Round(0).IntPart()
	if cents <= 0 {
		return domain.Product{}, fmt.Errorf("price %q must be positive", r.Price)
	}
	currency := strings.ToUpper(r.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	attrs := map[string]interface{}{}
	if len(r.ImageURLs) > 0 {
		attrs["images"] = r.ImageURLs
	}
	if r.Category != "" {
		attrs["category"] = r.Category
	}
	return domain.Product{
		Key:         r.Key,
		SKU:         r.SKU,
		Name:        r.Name,
		Description: r.Desc,
		PriceCents:  cents,
		Currency:    currency,
		Attributes:  attrs,
	}, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	key := pick(record, index, "key")
	image := pick(record, index, "image")
	if key == "" && image == "" {
		return nil
	}
	row := &csvRow{
		Key:      key,
		Name:     pick(record, index, "name"),
		Desc:     pick(record, index, "description"),
		SKU:      pick(record, index, "sku"),
		Price:    pick(record, index, "price"),
		Currency: pick(record, index, "currency"),
		Category: pick(record, index, "category"),
	}
	if image != "" {
		row.ImageURLs = []string{image}
	}
	return row
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
