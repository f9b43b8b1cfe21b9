package repo

import (
	"time"

	"github.com/example/shop-service/internal/domain"
)

// table описывает отображение сущности на SQL-таблицу. То же описание
// использует бэкенд в памяти, ему нужны только name и created.
type table[T any] struct {
	name    string
	columns []string
	// values возвращает значения колонок в их порядке.
	values func(v *T) []any
	// fields возвращает приёмники для Scan в порядке колонок.
	fields func(v *T) []any
	// created указывает на серверную метку создания, если она есть.
	// Заполняется при создании и не перезаписывается при обновлении.
	created    func(v *T) *time.Time
	createdCol string
}

var usersTable = table[domain.User]{
	name:    "users",
	columns: []string{"username", "email", "password_hash", "date_joined"},
	values: func(u *domain.User) []any {
		return []any{u.Username, u.Email, u.PasswordHash, u.DateJoined}
	},
	fields: func(u *domain.User) []any {
		return []any{&u.Username, &u.Email, &u.PasswordHash, &u.DateJoined}
	},
	created:    func(u *domain.User) *time.Time { return &u.DateJoined },
	createdCol: "date_joined",
}

var categoriesTable = table[domain.Category]{
	name:    "categories",
	columns: []string{"name", "description"},
	values: func(c *domain.Category) []any {
		return []any{c.Name, c.Description}
	},
	fields: func(c *domain.Category) []any {
		return []any{&c.Name, &c.Description}
	},
}

var productsTable = table[domain.Product]{
	name:    "products",
	columns: []string{"name", "description", "price", "category_id", "stock", "created_at"},
	values: func(p *domain.Product) []any {
		return []any{p.Name, p.Description, p.Price, p.CategoryID, p.Stock, p.CreatedAt}
	},
	fields: func(p *domain.Product) []any {
		return []any{&p.Name, &p.Description, &p.Price, &p.CategoryID, &p.Stock, &p.CreatedAt}
	},
	created:    func(p *domain.Product) *time.Time { return &p.CreatedAt },
	createdCol: "created_at",
}

var ordersTable = table[domain.Order]{
	name:    "orders",
	columns: []string{"user_id", "total_amount", "status", "created_at"},
	values: func(o *domain.Order) []any {
		return []any{o.UserID, o.TotalAmount, string(o.Status), o.CreatedAt}
	},
	fields: func(o *domain.Order) []any {
		return []any{&o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt}
	},
	created:    func(o *domain.Order) *time.Time { return &o.CreatedAt },
	createdCol: "created_at",
}

var orderItemsTable = table[domain.OrderItem]{
	name:    "order_items",
	columns: []string{"order_id", "product_id", "quantity", "price"},
	values: func(i *domain.OrderItem) []any {
		return []any{i.OrderID, i.ProductID, i.Quantity, i.Price}
	},
	fields: func(i *domain.OrderItem) []any {
		return []any{&i.OrderID, &i.ProductID, &i.Quantity, &i.Price}
	},
}

var cartsTable = table[domain.Cart]{
	name:    "carts",
	columns: []string{"user_id", "created_at"},
	values: func(c *domain.Cart) []any {
		return []any{c.UserID, c.CreatedAt}
	},
	fields: func(c *domain.Cart) []any {
		return []any{&c.UserID, &c.CreatedAt}
	},
	created:    func(c *domain.Cart) *time.Time { return &c.CreatedAt },
	createdCol: "created_at",
}

var cartItemsTable = table[domain.CartItem]{
	name:    "cart_items",
	columns: []string{"cart_id", "product_id", "quantity"},
	values: func(c *domain.CartItem) []any {
		return []any{c.CartID, c.ProductID, c.Quantity}
	},
	fields: func(c *domain.CartItem) []any {
		return []any{&c.CartID, &c.ProductID, &c.Quantity}
	},
}

var paymentsTable = table[domain.Payment]{
	name:    "payments",
	columns: []string{"order_id", "amount", "status", "created_at", "processed_at"},
	values: func(p *domain.Payment) []any {
		return []any{p.OrderID, p.Amount, string(p.Status), p.CreatedAt, p.ProcessedAt}
	},
	fields: func(p *domain.Payment) []any {
		return []any{&p.OrderID, &p.Amount, &p.Status, &p.CreatedAt, &p.ProcessedAt}
	},
	created:    func(p *domain.Payment) *time.Time { return &p.CreatedAt },
	createdCol: "created_at",
}

var reviewsTable = table[domain.Review]{
	name:    "reviews",
	columns: []string{"product_id", "user_id", "rating", "comment", "created_at"},
	values: func(r *domain.Review) []any {
		return []any{r.ProductID, r.UserID, r.Rating, r.Comment, r.CreatedAt}
	},
	fields: func(r *domain.Review) []any {
		return []any{&r.ProductID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt}
	},
	created:    func(r *domain.Review) *time.Time { return &r.CreatedAt },
	createdCol: "created_at",
}

var wishlistsTable = table[domain.Wishlist]{
	name:    "wishlists",
	columns: []string{"user_id", "created_at"},
	values: func(w *domain.Wishlist) []any {
		return []any{w.UserID, w.CreatedAt}
	},
	fields: func(w *domain.Wishlist) []any {
		return []any{&w.UserID, &w.CreatedAt}
	},
	created:    func(w *domain.Wishlist) *time.Time { return &w.CreatedAt },
	createdCol: "created_at",
}

var wishlistItemsTable = table[domain.WishlistItem]{
	name:    "wishlist_items",
	columns: []string{"wishlist_id", "product_id"},
	values: func(w *domain.WishlistItem) []any {
		return []any{w.WishlistID, w.ProductID}
	},
	fields: func(w *domain.WishlistItem) []any {
		return []any{&w.WishlistID, &w.ProductID}
	},
}

// stampCreated заполняет метку создания, если вызывающий оставил её пустой.
func (t table[T]) stampCreated(v *T, now time.Time) {
	if t.created == nil {
		return
	}
	if ts := t.created(v); ts.IsZero() {
		*ts = now.UTC()
	}
}

// keepCreated переносит сохранённую метку создания в обновление.
func (t table[T]) keepCreated(next *T, prev *T) {
	if t.created == nil {
		return
	}
	*t.created(next) = *t.created(prev)
}
