package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/shop-service/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateOrder сохраняет заказ со строками и платежом, затем ставит для него
// задачи письма-подтверждения и оплаты.
type CreateOrder struct {
	Orders   domain.OrderRepository
	Products domain.Repository[domain.Product]
	Jobs     domain.JobQueue
	Logger   *zap.Logger
}

func (uc CreateOrder) Execute(ctx context.Context, userID int64, lines []OrderLine) (domain.Order, error) {
	if userID <= 0 {
		return domain.Order{}, domain.Invalid("user not authenticated")
	}
	items := make([]domain.OrderItem, 0, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		if l.ProductID <= 0 {
			return domain.Order{}, domain.Invalid("line %d: product_id is required", i+1)
		}
		if l.Quantity <= 0 {
			return domain.Order{}, domain.Invalid("line %d: quantity must be positive", i+1)
		}
		p, err := uc.Products.Get(ctx, l.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Order{}, fmt.Errorf("%w: line %d: %w", domain.ErrValidation, i+1, err)
		}
		if err != nil {
			return domain.Order{}, err
		}
		items = append(items, domain.OrderItem{ProductID: p.ID, Quantity: l.Quantity, Price: p.Price})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	order := domain.Order{UserID: userID, TotalAmount: total, Status: domain.OrderStatusPending}
	payment := domain.Payment{Amount: total, Status: domain.PaymentStatusPending}
	if err := uc.Orders.CreateWithItems(ctx, &order, items, &payment); err != nil {
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrPersistence) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	// заказ уже записан; уход клиента не должен обрывать постановку задач
	jobCtx := context.WithoutCancel(ctx)
	uc.dispatch(jobCtx, domain.JobSendOrderConfirmation, domain.OrderJob{OrderID: order.ID})
	uc.dispatch(jobCtx, domain.JobProcessPayment, domain.OrderJob{OrderID: order.ID, PaymentID: payment.ID})

	uc.Logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(items)))
	return order, nil
}

// dispatch не возвращает ошибок: неудачная постановка только пишется в лог.
func (uc CreateOrder) dispatch(ctx context.Context, name string, payload domain.OrderJob) {
	h, err := uc.Jobs.Enqueue(ctx, name, payload)
	if err != nil {
		uc.Logger.Error("enqueue failed",
			zap.String("job", name),
			zap.Int64("order_id", payload.OrderID),
			zap.Error(err))
		return
	}
	uc.Logger.Debug("job enqueued", zap.String("job", name), zap.String("job_id", h.ID), zap.Int64("order_id", payload.OrderID))
}
