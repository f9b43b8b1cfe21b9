package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order создаётся при оформлении, в PAID его переводит задача оплаты.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (o *Order) Identity() *int64 { return &o.ID }

func (o *Order) Validate() error {
	if o.UserID <= 0 {
		return Invalid("user_id is required")
	}
	if o.TotalAmount.IsNegative() {
		return Invalid("total_amount must not be negative")
	}
	switch o.Status {
	case "":
		o.Status = OrderStatusPending
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled:
	default:
		return Invalid("unknown order status %q", o.Status)
	}
	return nil
}

// OrderItem это строка заказа; Price это цена за единицу на момент заказа.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (i *OrderItem) Identity() *int64 { return &i.ID }

func (i *OrderItem) Validate() error {
	if i.OrderID <= 0 || i.ProductID <= 0 {
		return Invalid("order_id and product_id are required")
	}
	if i.Quantity <= 0 {
		return Invalid("quantity must be positive")
	}
	if i.Price.IsNegative() {
		return Invalid("price must not be negative")
	}
	return nil
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusProcessed PaymentStatus = "PROCESSED"
)

// Payment отслеживает оплату одного заказа. Статус меняется только PENDING -> PROCESSED.
type Payment struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      PaymentStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at"`
}

func (p *Payment) Identity() *int64 { return &p.ID }

func (p *Payment) Validate() error {
	if p.OrderID <= 0 {
		return Invalid("order_id is required")
	}
	if p.Amount.IsNegative() {
		return Invalid("amount must not be negative")
	}
	switch p.Status {
	case "":
		p.Status = PaymentStatusPending
	case PaymentStatusPending, PaymentStatusProcessed:
	default:
		return Invalid("unknown payment status %q", p.Status)
	}
	return nil
}

// MarkProcessed переводит платёж в PROCESSED. Возвращает false, если платёж
// уже обработан.
func (p *Payment) MarkProcessed(at time.Time) bool {
	if p.Status == PaymentStatusProcessed {
		return false
	}
	p.Status = PaymentStatusProcessed
	p.ProcessedAt = &at
	return true
}

// CheckTransition отклоняет любую смену статуса. Вперёд платёж двигает
// только MarkProcessed.
func (p *Payment) CheckTransition(next PaymentStatus) error {
	if next != p.Status {
		return Invalid("payment %d status is %s and cannot be set to %q", p.ID, p.Status, next)
	}
	return nil
}
