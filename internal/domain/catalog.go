package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category группирует товары каталога.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c *Category) Identity() *int64 { return &c.ID }

func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Invalid("name is required")
	}
	return nil
}

// Product это позиция каталога. Чтение идёт через кэш.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  *int64          `json:"category_id"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p *Product) Identity() *int64 { return &p.ID }

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Invalid("name is required")
	}
	if p.Price.IsNegative() {
		return Invalid("price must not be negative")
	}
	if p.Stock < 0 {
		return Invalid("stock must not be negative")
	}
	return nil
}

// Review это оценка товара пользователем.
type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Review) Identity() *int64 { return &r.ID }

func (r *Review) Validate() error {
	if r.ProductID <= 0 || r.UserID <= 0 {
		return Invalid("product_id and user_id are required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return Invalid("rating must be between 1 and 5")
	}
	return nil
}
