package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/grocer-shop/internal/catalog"
)

// LineItem is one row of the cart: a quantity of one product in one
// free/paid state. Name and price are copied at insertion time; free
// lines carry the promotion's substituted name and a zero price.
type LineItem struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"img,omitempty"`
	Quantity  int             `json:"quantity"`
	IsFree    bool            `json:"is_free"`
	Available int             `json:"available"`
}

// Evaluator derives the full cart (paid + free lines) from a candidate
// set of lines. Implementations must be pure: identical input always
// yields identical output.
type Evaluator interface {
	// Apply strips every derived free line and re-grants the ones the
	// paid lines currently earn, respecting inventory ceilings.
	Apply(lines []LineItem) []LineItem

	// EarnedUnits returns the number of free units the given paid lines
	// would earn for productID, before any inventory cap is applied.
	EarnedUnits(productID int, lines []LineItem) int
}

// Recorder receives a notification for every mutation that actually
// changed the engine's state. Rejected no-ops are not recorded.
type Recorder interface {
	Record(ctx context.Context, eventType string, data any)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, eventType string, data any)

func (f RecorderFunc) Record(ctx context.Context, eventType string, data any) {
	f(ctx, eventType, data)
}

// MultiRecorder fans each mutation out to every given recorder in order.
func MultiRecorder(recorders ...Recorder) Recorder {
	return RecorderFunc(func(ctx context.Context, eventType string, data any) {
		for _, r := range recorders {
			r.Record(ctx, eventType, data)
		}
	})
}

// Engine owns one session's cart and wishlist. It is created empty at
// session start and discarded with the session; nothing is persisted.
//
// Paid quantities never exceed a product's availability, counting the
// free units promotions grant for the same product. Violations are
// silently rejected: insufficient inventory is an expected condition,
// not a fault, so there is no error channel on mutations.
type Engine struct {
	mu        sync.Mutex
	items     []LineItem
	wishlist  []catalog.Product
	evaluator Evaluator
	recorder  Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder attaches a mutation recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine constructs an empty per-session engine. A nil evaluator is
// a programming defect, not a runtime condition, so it panics.
func NewEngine(evaluator Evaluator, opts ...Option) *Engine {
	if evaluator == nil {
		panic("cart: NewEngine requires a promotion evaluator")
	}
	e := &Engine{evaluator: evaluator}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// totalQuantity sums paid and free quantity held for a product.
func totalQuantity(lines []LineItem, productID int) int {
	total := 0
	for _, item := range lines {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	return total
}

// paidIndex returns the index of the paid line for a product, or -1.
func paidIndex(lines []LineItem, productID int) int {
	for i, item := range lines {
		if item.ProductID == productID && !item.IsFree {
			return i
		}
	}
	return -1
}

// AddOne increments the paid quantity of product by one, creating the
// paid line if absent. The add is rejected when the quantity already
// held for the product (paid plus free) has reached its availability.
func (e *Engine) AddOne(ctx context.Context, p catalog.Product) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if totalQuantity(e.items, p.ID) >= p.Available {
		return
	}

	candidate := e.copyItems()
	if i := paidIndex(candidate, p.ID); i >= 0 {
		candidate[i].Quantity++
	} else {
		candidate = append(candidate, LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.Image,
			Quantity:  1,
			Available: p.Available,
		})
	}

	e.items = e.evaluator.Apply(candidate)
	e.record(ctx, EventItemAdded, ItemAdded{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  quantityOfPaid(e.items, p.ID),
	})
}

// RemoveOne decrements the paid quantity of the matching paid line by
// one, deleting the line when it reaches zero. Unknown ids are a no-op.
func (e *Engine) RemoveOne(ctx context.Context, productID int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := paidIndex(e.items, productID)
	if i < 0 {
		return
	}

	candidate := e.copyItems()
	if candidate[i].Quantity > 1 {
		candidate[i].Quantity--
	} else {
		candidate = append(candidate[:i], candidate[i+1:]...)
	}

	e.items = e.evaluator.Apply(candidate)
	e.record(ctx, EventItemRemoved, ItemRemoved{
		ProductID: productID,
		Quantity:  quantityOfPaid(e.items, productID),
	})
}

// SetQuantity sets the paid quantity of a line directly. A quantity
// below one removes the line. The change is rejected when the new paid
// quantity plus the free units it would earn for the same product
// exceed the product's availability.
func (e *Engine) SetQuantity(ctx context.Context, productID, quantity int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := paidIndex(e.items, productID)
	if i < 0 {
		return
	}

	if quantity < 1 {
		candidate := e.copyItems()
		candidate = append(candidate[:i], candidate[i+1:]...)
		e.items = e.evaluator.Apply(candidate)
		e.record(ctx, EventQuantitySet, QuantitySet{ProductID: productID, Quantity: 0})
		return
	}

	candidate := e.copyItems()
	candidate[i].Quantity = quantity

	earned := e.evaluator.EarnedUnits(productID, candidate)
	if quantity+earned > candidate[i].Available {
		return
	}

	e.items = e.evaluator.Apply(candidate)
	e.record(ctx, EventQuantitySet, QuantitySet{ProductID: productID, Quantity: quantity})
}

// ToggleWishlist adds the product to the wishlist if absent and removes
// it if present.
func (e *Engine) ToggleWishlist(ctx context.Context, p catalog.Product) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toggleWishlistLocked(ctx, p)
}

func (e *Engine) toggleWishlistLocked(ctx context.Context, p catalog.Product) {
	for i, saved := range e.wishlist {
		if saved.ID == p.ID {
			e.wishlist = append(e.wishlist[:i], e.wishlist[i+1:]...)
			e.record(ctx, EventWishlistToggled, WishlistToggled{ProductID: p.ID, Saved: false})
			return
		}
	}
	e.wishlist = append(e.wishlist, p)
	e.record(ctx, EventWishlistToggled, WishlistToggled{ProductID: p.ID, Saved: true})
}

// IsInWishlist reports wishlist membership.
func (e *Engine) IsInWishlist(productID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, saved := range e.wishlist {
		if saved.ID == productID {
			return true
		}
	}
	return false
}

// ClearWishlist empties the wishlist.
func (e *Engine) ClearWishlist(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.wishlist) == 0 {
		return
	}
	e.wishlist = nil
	e.record(ctx, EventWishlistCleared, WishlistCleared{})
}

// MoveToCart looks the product up in the wishlist, adds one to the cart
// and removes it from the wishlist. Unknown ids are a no-op. The
// wishlist entry is removed even when the add is rejected for
// inventory, matching the one-way hand-off semantics of the UI. The
// whole hand-off is one mutation and records one MovedToCart event.
func (e *Engine) MoveToCart(ctx context.Context, productID int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var product catalog.Product
	found := false
	for i, saved := range e.wishlist {
		if saved.ID == productID {
			product = saved
			found = true
			e.wishlist = append(e.wishlist[:i], e.wishlist[i+1:]...)
			break
		}
	}
	if !found {
		return
	}

	if totalQuantity(e.items, product.ID) < product.Available {
		candidate := e.copyItems()
		if i := paidIndex(candidate, product.ID); i >= 0 {
			candidate[i].Quantity++
		} else {
			candidate = append(candidate, LineItem{
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Image:     product.Image,
				Quantity:  1,
				Available: product.Available,
			})
		}
		e.items = e.evaluator.Apply(candidate)
	}

	e.record(ctx, EventMovedToCart, MovedToCart{ProductID: productID})
}

// Items returns a copy of the cart's line items in display order: paid
// lines in insertion order, derived free lines after them.
func (e *Engine) Items() []LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyItems()
}

// Wishlist returns a copy of the saved products in insertion order.
func (e *Engine) Wishlist() []catalog.Product {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]catalog.Product, len(e.wishlist))
	copy(out, e.wishlist)
	return out
}

// AppliedOffer describes one derived free line for display.
type AppliedOffer struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Value       decimal.Decimal `json:"value"`
}

// Totals is the read-only aggregation over the cart. Discount is
// reserved for future use and always zero; free lines are excluded
// from the subtotal entirely rather than discounted.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Offers   []AppliedOffer  `json:"applied_offers"`
}

// Totals computes the cart's totals. Pure projection, never mutates.
func (e *Engine) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()

	subtotal := decimal.Zero
	offers := []AppliedOffer{}
	for _, item := range e.items {
		if item.IsFree {
			offers = append(offers, AppliedOffer{
				Description: item.Name,
				Quantity:    item.Quantity,
				Value:       decimal.Zero,
			})
			continue
		}
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return Totals{
		Subtotal: subtotal,
		Discount: decimal.Zero,
		Total:    subtotal,
		Offers:   offers,
	}
}

func (e *Engine) copyItems() []LineItem {
	out := make([]LineItem, len(e.items))
	copy(out, e.items)
	return out
}

func (e *Engine) record(ctx context.Context, eventType string, data any) {
	if e.recorder != nil {
		e.recorder.Record(ctx, eventType, data)
	}
}

func quantityOfPaid(lines []LineItem, productID int) int {
	if i := paidIndex(lines, productID); i >= 0 {
		return lines[i].Quantity
	}
	return 0
}
