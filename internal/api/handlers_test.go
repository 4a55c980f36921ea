package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocer-shop/internal/analytics"
	"github.com/example/grocer-shop/internal/auth"
	"github.com/example/grocer-shop/internal/catalog"
	"github.com/example/grocer-shop/internal/domain/cart"
	"github.com/example/grocer-shop/internal/domain/promotion"
	"github.com/example/grocer-shop/internal/session"
)

type testServer struct {
	handler  http.Handler
	trending *analytics.Tracker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := catalog.NewMemoryStore(catalog.SeedProducts()...)
	rules := promotion.DefaultRules()
	lookup := func(id int) (catalog.Product, bool) {
		p, err := store.Get(context.Background(), id)
		return p, err == nil
	}
	// engines feed the tracker directly, as the server does without Kafka
	trending := analytics.NewTracker()
	sessions := session.NewRegistry(func(sessionID string) *cart.Engine {
		return cart.NewEngine(
			promotion.NewEvaluator(rules, lookup),
			cart.WithRecorder(trending.Recorder()),
		)
	})
	jwtService := auth.NewJWTService("test-secret-key-for-testing-purposes", time.Hour)

	handler := NewRouter(RouterConfig{
		Handlers:     NewHandlers(store, sessions, rules, trending),
		AuthHandlers: NewAuthHandlers(auth.NewAccounts(), jwtService),
		JWTService:   jwtService,
	})
	return &testServer{handler: handler, trending: trending}
}

func (s *testServer) do(t *testing.T, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(method, path, reader)
	if sessionID != "" {
		r.Header.Set("X-Session-ID", sessionID)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	return w
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) CartView {
	t.Helper()
	var view CartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func (s *testServer) addToCart(t *testing.T, sessionID string, productID, times int) *httptest.ResponseRecorder {
	t.Helper()
	var last *httptest.ResponseRecorder
	for i := 0; i < times; i++ {
		last = s.do(t, http.MethodPost, "/cart/items", sessionID, map[string]int{"product_id": productID})
		require.Equal(t, http.StatusOK, last.Code)
	}
	return last
}

func lineQuantity(view CartView, productID int, free bool) int {
	for _, item := range view.Items {
		if item.ProductID == productID && item.IsFree == free {
			return item.Quantity
		}
	}
	return 0
}

// ============================================
// Products
// ============================================

func TestGetProducts_ListsSeedCatalog(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var products []ProductView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	assert.Len(t, products, 7)

	// prices serialize in display form
	assert.Equal(t, 532, products[0].ID)
	assert.Equal(t, "£1.10", products[0].Price)
}

func TestGetProducts_CategoryAndSearchFilters(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/products?category=drinks", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var products []ProductView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	assert.Len(t, products, 3)

	w = s.do(t, http.MethodGet, "/products?category=bakery&q=croissant", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Croissant", products[0].Name)
}

func TestGetProduct_ByID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/products/642", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var p ProductView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Coca-Cola", p.Name)
	assert.Equal(t, "£0.70", p.Price)
	assert.Equal(t, 20, p.Available)
}

func TestGetProduct_NotFound(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/products/999", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/products/abc", "", nil).Code)
}

func TestGetTrending_CountsAdds(t *testing.T) {
	s := newTestServer(t)
	s.trending.RecordAdd(642, "Coca-Cola")
	s.trending.RecordAdd(642, "Coca-Cola")
	s.trending.RecordAdd(532, "Croissant")

	w := s.do(t, http.MethodGet, "/products/trending", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var top []analytics.ProductCount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &top))
	require.Len(t, top, 2)
	assert.Equal(t, 642, top[0].ProductID)
	assert.Equal(t, 2, top[0].Adds)
}

func TestGetTrending_FedByCartAddsWithoutKafka(t *testing.T) {
	s := newTestServer(t)

	s.addToCart(t, "session-a", 642, 2)
	s.addToCart(t, "session-b", 532, 1)
	// rejected adds never see the tracker
	s.do(t, http.MethodPost, "/cart/items", "session-a", map[string]int{"product_id": 999})

	w := s.do(t, http.MethodGet, "/products/trending", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var top []analytics.ProductCount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &top))
	require.Len(t, top, 2)
	assert.Equal(t, 642, top[0].ProductID)
	assert.Equal(t, "Coca-Cola", top[0].Name)
	assert.Equal(t, 2, top[0].Adds)
	assert.Equal(t, 532, top[1].ProductID)
	assert.Equal(t, 1, top[1].Adds)
}

// ============================================
// Offers
// ============================================

func TestGetOffers_ListsRules(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/offers", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var offers []RuleView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &offers))
	require.Len(t, offers, 2)
	assert.Equal(t, "Buy 6 cans of Coca-Cola, get one free!", offers[0].Description)
	assert.Equal(t, "Buy 3 croissants, get a free coffee!", offers[1].Description)
}

// ============================================
// Cart
// ============================================

func TestGetCart_EmptyCart(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/cart", "session-a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeCart(t, w)
	assert.Empty(t, view.Items)
	assert.Equal(t, "£0.00", view.Totals.Total)
}

func TestAddToCart_AddsAndTotals(t *testing.T) {
	s := newTestServer(t)

	w := s.addToCart(t, "session-a", 532, 2)

	view := decodeCart(t, w)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, "£1.10", view.Items[0].Price)
	assert.Equal(t, "£2.20", view.Totals.Subtotal)
	assert.Equal(t, "£2.20", view.Totals.Total)
	assert.Equal(t, "£0.00", view.Totals.Discount)
}

func TestAddToCart_GrantsFreeUnits(t *testing.T) {
	s := newTestServer(t)

	w := s.addToCart(t, "session-a", 642, 6)

	view := decodeCart(t, w)
	assert.Equal(t, 6, lineQuantity(view, 642, false))
	assert.Equal(t, 1, lineQuantity(view, 642, true))
	// paid six at £0.70; the free can costs nothing
	assert.Equal(t, "£4.20", view.Totals.Total)
	require.Len(t, view.Totals.Offers, 1)
	assert.Equal(t, "Coca-Cola (Free with every 6)", view.Totals.Offers[0].Description)
	assert.Equal(t, "£0.00", view.Totals.Offers[0].Value)
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/cart/items", "session-a", map[string]int{"product_id": 999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddToCart_InvalidBody(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddToCart_SoldOutReturnsUnchangedCart(t *testing.T) {
	s := newTestServer(t)

	// strawberries: 8 available, the ninth add is a silent no-op
	s.addToCart(t, "session-a", 722, 8)
	w := s.addToCart(t, "session-a", 722, 1)

	view := decodeCart(t, w)
	assert.Equal(t, 8, lineQuantity(view, 722, false))
}

func TestUpdateCartItem_SetsQuantity(t *testing.T) {
	s := newTestServer(t)
	s.addToCart(t, "session-a", 532, 1)

	w := s.do(t, http.MethodPut, "/cart/items/532", "session-a", map[string]int{"quantity": 5})
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeCart(t, w)
	assert.Equal(t, 5, lineQuantity(view, 532, false))
	// five croissants earn one free coffee
	assert.Equal(t, 1, lineQuantity(view, 641, true))
}

func TestUpdateCartItem_ZeroRemovesLine(t *testing.T) {
	s := newTestServer(t)
	s.addToCart(t, "session-a", 532, 2)

	w := s.do(t, http.MethodPut, "/cart/items/532", "session-a", map[string]int{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, decodeCart(t, w).Items)
}

func TestRemoveFromCart_DecrementsOne(t *testing.T) {
	s := newTestServer(t)
	s.addToCart(t, "session-a", 532, 3)

	w := s.do(t, http.MethodDelete, "/cart/items/532", "session-a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeCart(t, w)
	assert.Equal(t, 2, lineQuantity(view, 532, false))
	// dropping below three croissants revokes the free coffee
	assert.Equal(t, 0, lineQuantity(view, 641, true))
}

func TestCart_SessionsAreIsolated(t *testing.T) {
	s := newTestServer(t)

	s.addToCart(t, "session-a", 532, 2)

	w := s.do(t, http.MethodGet, "/cart", "session-b", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeCart(t, w).Items)
}

func TestCart_SignedInShopperKeyedByAccount(t *testing.T) {
	s := newTestServer(t)

	// register; the response carries the session token
	w := s.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "shopper@example.com",
		Password: "password123",
		Name:     "Shopper",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var reg AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	require.NotEmpty(t, reg.Token)

	add := httptest.NewRequest(http.MethodPost, "/cart/items",
		bytes.NewReader([]byte(`{"product_id": 532}`)))
	add.Header.Set("Authorization", "Bearer "+reg.Token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, add)
	require.Equal(t, http.StatusOK, rec.Code)

	// the token, not the header, picks the cart
	get := httptest.NewRequest(http.MethodGet, "/cart", nil)
	get.Header.Set("Authorization", "Bearer "+reg.Token)
	get.Header.Set("X-Session-ID", "some-other-session")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, get)

	view := decodeCart(t, rec)
	assert.Equal(t, 1, lineQuantity(view, 532, false))
}

// ============================================
// Wishlist
// ============================================

func TestWishlist_ToggleAndList(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/wishlist/toggle", "session-a", map[string]int{"product_id": 641})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"saved": true}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/wishlist", "session-a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var saved []ProductView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "Coffee", saved[0].Name)

	// second toggle removes
	w = s.do(t, http.MethodPost, "/wishlist/toggle", "session-a", map[string]int{"product_id": 641})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"saved": false}`, w.Body.String())
}

func TestWishlist_ToggleUnknownProduct(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/wishlist/toggle", "session-a", map[string]int{"product_id": 999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWishlist_Clear(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/wishlist/toggle", "session-a", map[string]int{"product_id": 641})

	w := s.do(t, http.MethodDelete, "/wishlist", "session-a", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/wishlist", "session-a", nil)
	var saved []ProductView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.Empty(t, saved)
}

func TestWishlist_MoveToCart(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/wishlist/toggle", "session-a", map[string]int{"product_id": 641})

	w := s.do(t, http.MethodPost, "/wishlist/641/move-to-cart", "session-a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeCart(t, w)
	assert.Equal(t, 1, lineQuantity(view, 641, false))

	w = s.do(t, http.MethodGet, "/wishlist", "session-a", nil)
	var saved []ProductView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.Empty(t, saved)
}

// ============================================
// Auth endpoints
// ============================================

func TestAuthRegister_And_Login(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "shopper@example.com",
		Password: "password123",
		Name:     "Shopper",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var reg AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.Equal(t, "shopper@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.Token)
	assertAuthCookieSet(t, w)

	w = s.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "shopper@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var login AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, reg.User.ID, login.User.ID)
}

func TestAuthRegister_Failures(t *testing.T) {
	s := newTestServer(t)

	_ = s.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "shopper@example.com", Password: "password123", Name: "Shopper",
	})

	tests := []struct {
		name string
		req  RegisterRequest
		want int
	}{
		{"duplicate email", RegisterRequest{Email: "shopper@example.com", Password: "password123"}, http.StatusConflict},
		{"short password", RegisterRequest{Email: "new@example.com", Password: "short"}, http.StatusBadRequest},
		{"missing email", RegisterRequest{Password: "password123"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/auth/register", "", tt.req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email: "shopper@example.com", Password: "password123",
	})

	w := s.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email: "shopper@example.com", Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMe_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMe_ReturnsSignedInAccount(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "shopper@example.com",
		Password: "password123",
		Name:     "Shopper",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var reg AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+reg.Token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)

	var me UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, reg.User.ID, me.ID)
	assert.Equal(t, "shopper@example.com", me.Email)
	assert.Equal(t, "Shopper", me.Name)
}

func TestAuthLogout_ClearsCookie(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookie := findCookie(t, w, "access_token")
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

// ============================================
// Routing
// ============================================

func TestRouter_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/products"},
		{http.MethodPost, "/cart"},
		{http.MethodGet, "/cart/items"},
		{http.MethodPost, "/cart/items/642"},
		{http.MethodPut, "/wishlist"},
		{http.MethodGet, "/wishlist/toggle"},
		{http.MethodGet, "/auth/login"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, "session-a", nil)
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		})
	}
}

// Test helpers

func assertAuthCookieSet(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	cookie := findCookie(t, w, "access_token")
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}
