package domain

import "time"

type Cart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Cart) Identity() *int64 { return &c.ID }

func (c *Cart) Validate() error {
	if c.UserID <= 0 {
		return Invalid("user_id is required")
	}
	return nil
}

type CartItem struct {
	ID        int64 `json:"id"`
	CartID    int64 `json:"cart_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (c *CartItem) Identity() *int64 { return &c.ID }

func (c *CartItem) Validate() error {
	if c.CartID <= 0 || c.ProductID <= 0 {
		return Invalid("cart_id and product_id are required")
	}
	if c.Quantity <= 0 {
		return Invalid("quantity must be positive")
	}
	return nil
}

type Wishlist struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (w *Wishlist) Identity() *int64 { return &w.ID }

func (w *Wishlist) Validate() error {
	if w.UserID <= 0 {
		return Invalid("user_id is required")
	}
	return nil
}

type WishlistItem struct {
	ID         int64 `json:"id"`
	WishlistID int64 `json:"wishlist_id"`
	ProductID  int64 `json:"product_id"`
}

func (w *WishlistItem) Identity() *int64 { return &w.ID }

func (w *WishlistItem) Validate() error {
	if w.WishlistID <= 0 || w.ProductID <= 0 {
		return Invalid("wishlist_id and product_id are required")
	}
	return nil
}
