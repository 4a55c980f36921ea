package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/grocer-shop/internal/analytics"
	"github.com/example/grocer-shop/internal/api/middleware"
	"github.com/example/grocer-shop/internal/catalog"
	"github.com/example/grocer-shop/internal/domain/cart"
	"github.com/example/grocer-shop/internal/domain/promotion"
	"github.com/example/grocer-shop/internal/session"
)

// Handlers wires the HTTP surface to the catalog, the per-session cart
// engines, and the trending tracker.
type Handlers struct {
	catalog  catalog.Store
	sessions *session.Registry
	rules    []promotion.Rule
	trending *analytics.Tracker
}

func NewHandlers(cat catalog.Store, sessions *session.Registry, rules []promotion.Rule, trending *analytics.Tracker) *Handlers {
	return &Handlers{
		catalog:  cat,
		sessions: sessions,
		rules:    rules,
		trending: trending,
	}
}

// View types: prices leave the API in the same "£x.xx" form they
// arrive from the catalog feed.

type ProductView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Available   int    `json:"available"`
	Image       string `json:"img,omitempty"`
	Category    string `json:"category,omitempty"`
}

type LineItemView struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	IsFree    bool   `json:"is_free"`
	Available int    `json:"available"`
	Image     string `json:"img,omitempty"`
}

type OfferView struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Value       string `json:"value"`
}

type TotalsView struct {
	Subtotal string      `json:"subtotal"`
	Discount string      `json:"discount"`
	Total    string      `json:"total"`
	Offers   []OfferView `json:"applied_offers"`
}

type CartView struct {
	Items  []LineItemView `json:"items"`
	Totals TotalsView     `json:"totals"`
}

type RuleView struct {
	TriggerProductID int    `json:"trigger_product_id"`
	RequiredQuantity int    `json:"required_quantity"`
	RewardProductID  int    `json:"reward_product_id"`
	Description      string `json:"description"`
}

func productView(p catalog.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.PriceString(),
		Available:   p.Available,
		Image:       p.Image,
		Category:    p.Category,
	}
}

func cartView(items []cart.LineItem, totals cart.Totals) CartView {
	views := make([]LineItemView, 0, len(items))
	for _, item := range items {
		views = append(views, LineItemView{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     catalog.FormatPrice(item.Price),
			Quantity:  item.Quantity,
			IsFree:    item.IsFree,
			Available: item.Available,
			Image:     item.Image,
		})
	}

	offers := make([]OfferView, 0, len(totals.Offers))
	for _, offer := range totals.Offers {
		offers = append(offers, OfferView{
			Description: offer.Description,
			Quantity:    offer.Quantity,
			Value:       catalog.FormatPrice(offer.Value),
		})
	}

	return CartView{
		Items: views,
		Totals: TotalsView{
			Subtotal: catalog.FormatPrice(totals.Subtotal),
			Discount: catalog.FormatPrice(totals.Discount),
			Total:    catalog.FormatPrice(totals.Total),
			Offers:   offers,
		},
	}
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	search := r.URL.Query().Get("q")

	products, err := h.catalog.List(r.Context(), category, search)
	if err != nil {
		respondJSONError(w, "Failed to list products", http.StatusInternalServerError)
		return
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, productView(p))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProductID(w, extractPathParam(r.URL.Path, "/products/"))
	if !ok {
		return
	}

	p, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		respondJSONError(w, "Product not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, productView(p))
}

// GetTrending returns the most cart-added products.
func (h *Handlers) GetTrending(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.trending.TopN(10))
}

// GetOffers returns the active promotion rules for the offers panel.
func (h *Handlers) GetOffers(w http.ResponseWriter, r *http.Request) {
	views := make([]RuleView, 0, len(h.rules))
	for _, rule := range h.rules {
		views = append(views, RuleView{
			TriggerProductID: rule.TriggerProductID,
			RequiredQuantity: rule.RequiredQuantity,
			RewardProductID:  rule.RewardProductID,
			Description:      rule.Description,
		})
	}
	respondJSON(w, http.StatusOK, views)
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	engine := h.engine(r)
	respondJSON(w, http.StatusOK, cartView(engine.Items(), engine.Totals()))
}

// AddToCart adds one unit of a product. An add rejected for inventory
// is not an error: the unchanged cart comes back with status 200.
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		respondJSONError(w, "Product not found", http.StatusNotFound)
		return
	}

	engine := h.engine(r)
	engine.AddOne(r.Context(), p)
	respondJSON(w, http.StatusOK, cartView(engine.Items(), engine.Totals()))
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProductID(w, extractPathParam(r.URL.Path, "/cart/items/"))
	if !ok {
		return
	}

	engine := h.engine(r)
	engine.RemoveOne(r.Context(), id)
	respondJSON(w, http.StatusOK, cartView(engine.Items(), engine.Totals()))
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProductID(w, extractPathParam(r.URL.Path, "/cart/items/"))
	if !ok {
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	engine := h.engine(r)
	engine.SetQuantity(r.Context(), id, req.Quantity)
	respondJSON(w, http.StatusOK, cartView(engine.Items(), engine.Totals()))
}

// Wishlist Handlers

func (h *Handlers) GetWishlist(w http.ResponseWriter, r *http.Request) {
	engine := h.engine(r)
	saved := engine.Wishlist()
	views := make([]ProductView, 0, len(saved))
	for _, p := range saved {
		views = append(views, productView(p))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handlers) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		respondJSONError(w, "Product not found", http.StatusNotFound)
		return
	}

	engine := h.engine(r)
	engine.ToggleWishlist(r.Context(), p)
	respondJSON(w, http.StatusOK, map[string]bool{"saved": engine.IsInWishlist(p.ID)})
}

func (h *Handlers) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	engine := h.engine(r)
	engine.ClearWishlist(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) MoveToCart(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(extractPathParam(r.URL.Path, "/wishlist/"), "/move-to-cart")
	id, ok := parseProductID(w, path)
	if !ok {
		return
	}

	engine := h.engine(r)
	engine.MoveToCart(r.Context(), id)
	respondJSON(w, http.StatusOK, cartView(engine.Items(), engine.Totals()))
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

func parseProductID(w http.ResponseWriter, raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		respondJSONError(w, "Invalid product id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// engine resolves the request's cart engine: the JWT subject when
// signed in, the X-Session-ID header otherwise.
func (h *Handlers) engine(r *http.Request) *cart.Engine {
	return h.sessions.Engine(getSessionID(r))
}

// getSessionID extracts the session from JWT context or falls back to
// the X-Session-ID header
func getSessionID(r *http.Request) string {
	if userID := middleware.GetUserID(r.Context()); userID != "" {
		return userID
	}

	if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
		return sessionID
	}

	return "default-session"
}
