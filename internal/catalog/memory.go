package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory catalog, used in development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int]Product
}

func NewMemoryStore(products ...Product) *MemoryStore {
	ms := &MemoryStore{products: make(map[int]Product)}
	for _, p := range products {
		ms.products[p.ID] = p
	}
	return ms
}

// Put inserts or replaces a product.
func (ms *MemoryStore) Put(p Product) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.products[p.ID] = p
}

func (ms *MemoryStore) Get(ctx context.Context, id int) (Product, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	p, ok := ms.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (ms *MemoryStore) List(ctx context.Context, category, search string) ([]Product, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	products := make([]Product, 0, len(ms.products))
	for _, p := range ms.products {
		if matchesCategory(p, category) && matchesSearch(p, search) {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// SeedProducts returns the demo catalog used when no database is configured.
// IDs and the drinks/fruit/bakery split mirror the upstream product feed.
func SeedProducts() []Product {
	return []Product{
		{ID: 642, Name: "Coca-Cola", Description: "A refreshing can of Coca-Cola", Price: decimal.RequireFromString("0.70"), Available: 20, Image: "https://py-shopping-cart.s3.eu-west-2.amazonaws.com/coke.jpeg", Category: CategoryDrinks},
		{ID: 641, Name: "Coffee", Description: "Ground roasted coffee", Price: decimal.RequireFromString("3.50"), Available: 10, Image: "https://py-shopping-cart.s3.eu-west-2.amazonaws.com/coffee.jpeg", Category: CategoryDrinks},
		{ID: 643, Name: "Orange Juice", Description: "Freshly squeezed orange juice", Price: decimal.RequireFromString("1.80"), Available: 15, Category: CategoryDrinks},
		{ID: 532, Name: "Croissant", Description: "A freshly baked butter croissant", Price: decimal.RequireFromString("1.10"), Available: 30, Image: "https://py-shopping-cart.s3.eu-west-2.amazonaws.com/croissant.jpeg", Category: CategoryBakery},
		{ID: 533, Name: "Sourdough Loaf", Description: "Stone-baked sourdough loaf", Price: decimal.RequireFromString("2.40"), Available: 12, Category: CategoryBakery},
		{ID: 721, Name: "Bananas", Description: "A bunch of five ripe bananas", Price: decimal.RequireFromString("0.95"), Available: 25, Category: CategoryFruit},
		{ID: 722, Name: "Strawberries", Description: "A punnet of British strawberries", Price: decimal.RequireFromString("2.20"), Available: 8, Category: CategoryFruit},
	}
}
