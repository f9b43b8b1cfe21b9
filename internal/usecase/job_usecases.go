package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/shop-service/internal/domain"
	"go.uber.org/zap"
)

// SendOrderConfirmation отправляет владельцу заказа письмо-подтверждение с суммой.
type SendOrderConfirmation struct {
	Orders domain.Repository[domain.Order]
	Users  domain.Repository[domain.User]
	Mailer domain.Mailer
	From   string
}

func (uc SendOrderConfirmation) Execute(ctx context.Context, orderID int64) error {
	o, err := uc.Orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	u, err := uc.Users.Get(ctx, o.UserID)
	if err != nil {
		return err
	}
	return uc.Mailer.Send(ctx, domain.Message{
		From:    uc.From,
		To:      []string{u.Email},
		Subject: fmt.Sprintf("Order Confirmation - %d", o.ID),
		Body:    fmt.Sprintf("Thank you for your order, %s. Your order total is %s.", u.Username, o.TotalAmount.StringFixed(2)),
	})
}

// ProcessPayment переводит платёж в PROCESSED, а заказ в PAID. Повторная
// обработка ничего не меняет.
type ProcessPayment struct {
	Payments domain.PaymentRepository
	Orders   domain.Repository[domain.Order]
	Now      func() time.Time
}

func (uc ProcessPayment) Execute(ctx context.Context, job domain.OrderJob) error {
	p, err := uc.load(ctx, job)
	if err != nil {
		return err
	}
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}
	if p.MarkProcessed(now().UTC()) {
		if err := uc.Payments.Update(ctx, &p); err != nil {
			return err
		}
	}
	o, err := uc.Orders.Get(ctx, p.OrderID)
	if err != nil {
		return err
	}
	if o.Status != domain.OrderStatusPending {
		return nil
	}
	o.Status = domain.OrderStatusPaid
	return uc.Orders.Update(ctx, &o)
}

func (uc ProcessPayment) load(ctx context.Context, job domain.OrderJob) (domain.Payment, error) {
	if job.PaymentID > 0 {
		return uc.Payments.Get(ctx, job.PaymentID)
	}
	if job.OrderID > 0 {
		return uc.Payments.FindByOrder(ctx, job.OrderID)
	}
	return domain.Payment{}, domain.Invalid("payment_id or order_id is required")
}

// RunJob направляет конверт задачи её обработчику. Любой сбой возвращается как
// *domain.JobFailure; сообщение вызывающий подтверждает в любом случае.
type RunJob struct {
	Email   SendOrderConfirmation
	Payment ProcessPayment
	Logger  *zap.Logger
}

func (uc RunJob) Execute(ctx context.Context, j domain.Job) error {
	start := time.Now()
	err := uc.run(ctx, j)
	if err != nil {
		fail := &domain.JobFailure{Job: j.Name, ID: j.ID, Err: err}
		uc.Logger.Error("job failed",
			zap.String("job", j.Name),
			zap.String("job_id", j.ID),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return fail
	}
	uc.Logger.Info("job done",
		zap.String("job", j.Name),
		zap.String("job_id", j.ID),
		zap.Duration("took", time.Since(start)))
	return nil
}

// HandleRaw декодирует сообщение брокера и выполняет его.
func (uc RunJob) HandleRaw(ctx context.Context, raw []byte) error {
	j, err := domain.DecodeJob(raw)
	if err != nil {
		uc.Logger.Error("undecodable job", zap.Int("bytes", len(raw)), zap.Error(err))
		return &domain.JobFailure{Job: "unknown", Err: err}
	}
	return uc.Execute(ctx, j)
}

func (uc RunJob) run(ctx context.Context, j domain.Job) error {
	var payload domain.OrderJob
	if err := json.Unmarshal(j.Payload, &payload); err != nil {
		return fmt.Errorf("%w: payload: %v", domain.ErrValidation, err)
	}
	switch j.Name {
	case domain.JobSendOrderConfirmation:
		return uc.Email.Execute(ctx, payload.OrderID)
	case domain.JobProcessPayment:
		return uc.Payment.Execute(ctx, payload)
	default:
		return errors.New("unknown job " + j.Name)
	}
}
