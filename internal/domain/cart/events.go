package cart

const (
	EventItemAdded       = "ItemAddedToCart"
	EventItemRemoved     = "ItemRemovedFromCart"
	EventQuantitySet     = "CartQuantitySet"
	EventWishlistToggled = "WishlistToggled"
	EventWishlistCleared = "WishlistCleared"
	EventMovedToCart     = "WishlistMovedToCart"
)

type ItemAdded struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type ItemRemoved struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type QuantitySet struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type WishlistToggled struct {
	ProductID int  `json:"product_id"`
	Saved     bool `json:"saved"`
}

type WishlistCleared struct{}

type MovedToCart struct {
	ProductID int `json:"product_id"`
}
