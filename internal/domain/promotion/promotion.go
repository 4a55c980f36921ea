// Package promotion derives free cart lines from paid quantities.
//
// Rules are declarative records, evaluated in declaration order on
// every cart mutation. The evaluation is a full recompute: existing
// free lines are discarded and re-earned from scratch, so free units
// are never grandfathered once their trigger drops below threshold.
package promotion

import (
	"github.com/shopspring/decimal"

	"github.com/example/grocer-shop/internal/catalog"
	"github.com/example/grocer-shop/internal/domain/cart"
)

// Product identities the default rule table refers to.
const (
	ProductCoke      = 642
	ProductCoffee    = 641
	ProductCroissant = 532
)

// Rule is one buy-N-get-one-free promotion. For every RequiredQuantity
// paid units of the trigger product, one unit of the reward product is
// granted free. Trigger and reward may be the same product.
type Rule struct {
	TriggerProductID int    `json:"trigger_product_id"`
	RequiredQuantity int    `json:"required_quantity"`
	RewardProductID  int    `json:"reward_product_id"`
	RewardName       string `json:"reward_name"`
	Description      string `json:"description"`
}

// DefaultRules returns the active promotion table.
func DefaultRules() []Rule {
	return []Rule{
		{
			TriggerProductID: ProductCoke,
			RequiredQuantity: 6,
			RewardProductID:  ProductCoke,
			RewardName:       "Coca-Cola (Free with every 6)",
			Description:      "Buy 6 cans of Coca-Cola, get one free!",
		},
		{
			TriggerProductID: ProductCroissant,
			RequiredQuantity: 3,
			RewardProductID:  ProductCoffee,
			RewardName:       "Coffee (Free with 3 Croissants)",
			Description:      "Buy 3 croissants, get a free coffee!",
		},
	}
}

// ProductLookup resolves a reward product's catalog attributes when the
// product has no line in the cart to copy them from.
type ProductLookup func(productID int) (catalog.Product, bool)

// Evaluator applies a rule table to candidate cart lines. It holds no
// mutable state; Apply is a pure function of its input.
type Evaluator struct {
	rules  []Rule
	lookup ProductLookup
}

// NewEvaluator builds an evaluator over a fixed rule table. The lookup
// may be nil, in which case rewards absent from the cart are never
// granted (their availability cannot be established).
func NewEvaluator(rules []Rule, lookup ProductLookup) *Evaluator {
	return &Evaluator{rules: rules, lookup: lookup}
}

// Rules returns the evaluator's rule table.
func (e *Evaluator) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Apply strips every free line for the rules' reward products and
// re-grants the free units the paid lines currently earn. Grants are
// capped so a product's paid plus free quantity never exceeds its
// availability; rules evaluated earlier commit quantity that later
// rules targeting the same reward must respect.
func (e *Evaluator) Apply(lines []cart.LineItem) []cart.LineItem {
	result := make([]cart.LineItem, 0, len(lines))
	for _, item := range lines {
		if item.IsFree && e.isReward(item.ProductID) {
			continue
		}
		result = append(result, item)
	}

	for _, rule := range e.rules {
		paidQty := paidQuantity(result, rule.TriggerProductID)
		earned := paidQty / rule.RequiredQuantity
		if earned == 0 {
			continue
		}

		reward, ok := e.rewardAttributes(result, rule.RewardProductID)
		if !ok {
			continue
		}

		committed := committedQuantity(result, rule.RewardProductID)
		granted := earned
		if remaining := reward.Available - committed; granted > remaining {
			granted = remaining
		}
		if granted <= 0 {
			continue
		}

		result = append(result, cart.LineItem{
			ProductID: rule.RewardProductID,
			Name:      rule.RewardName,
			Price:     decimal.Zero,
			Image:     reward.Image,
			Quantity:  granted,
			IsFree:    true,
			Available: reward.Available,
		})
	}

	return result
}

// EarnedUnits returns the free units the paid lines earn for productID
// across all rules, before inventory caps.
func (e *Evaluator) EarnedUnits(productID int, lines []cart.LineItem) int {
	earned := 0
	for _, rule := range e.rules {
		if rule.RewardProductID != productID {
			continue
		}
		earned += paidQuantity(lines, rule.TriggerProductID) / rule.RequiredQuantity
	}
	return earned
}

type rewardInfo struct {
	Image     string
	Available int
}

// rewardAttributes finds the per-unit attributes of a reward product,
// preferring an existing cart line over the catalog.
func (e *Evaluator) rewardAttributes(lines []cart.LineItem, productID int) (rewardInfo, bool) {
	for _, item := range lines {
		if item.ProductID == productID {
			return rewardInfo{Image: item.Image, Available: item.Available}, true
		}
	}
	if e.lookup != nil {
		if p, ok := e.lookup(productID); ok {
			return rewardInfo{Image: p.Image, Available: p.Available}, true
		}
	}
	return rewardInfo{}, false
}

func (e *Evaluator) isReward(productID int) bool {
	for _, rule := range e.rules {
		if rule.RewardProductID == productID {
			return true
		}
	}
	return false
}

func paidQuantity(lines []cart.LineItem, productID int) int {
	for _, item := range lines {
		if item.ProductID == productID && !item.IsFree {
			return item.Quantity
		}
	}
	return 0
}

// committedQuantity sums a product's paid quantity and the free
// quantity already granted by earlier rules in this pass.
func committedQuantity(lines []cart.LineItem, productID int) int {
	total := 0
	for _, item := range lines {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	return total
}
