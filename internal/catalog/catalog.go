package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("invalid price string")
)

// Category names as exposed by the catalog API.
const (
	CategoryAll    = "all"
	CategoryDrinks = "drinks"
	CategoryFruit  = "fruit"
	CategoryBakery = "bakery"
)

// currencySymbol is the only currency the catalog deals in.
const currencySymbol = "£"

// Product is a catalog record. Price is parsed from the upstream
// currency-formatted string once, at load time.
type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"-"`
	Available   int             `json:"available"`
	Image       string          `json:"img,omitempty"`
	Category    string          `json:"category"`
}

// PriceString formats the price back into the upstream "£x.xx" form.
func (p Product) PriceString() string {
	return FormatPrice(p.Price)
}

// ParsePrice parses a currency-formatted string such as "£3.50".
// A bare decimal string without the symbol is accepted too.
func ParsePrice(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), currencySymbol))
	if trimmed == "" {
		return decimal.Zero, ErrInvalidPrice
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return d, nil
}

// FormatPrice renders a decimal amount as "£x.xx".
func FormatPrice(d decimal.Decimal) string {
	return currencySymbol + d.StringFixed(2)
}

// Store supplies product records to the cart engine and the API.
type Store interface {
	// Get returns the product with the given id.
	Get(ctx context.Context, id int) (Product, error)

	// List returns products filtered by category (CategoryAll or empty
	// means no filter) and by a case-insensitive search term matched
	// against name and description.
	List(ctx context.Context, category, search string) ([]Product, error)
}

// matchesSearch reports whether the product matches a search term.
func matchesSearch(p Product, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}

// matchesCategory reports whether the product belongs to a category filter.
func matchesCategory(p Product, category string) bool {
	if category == "" || category == CategoryAll {
		return true
	}
	return p.Category == category
}
