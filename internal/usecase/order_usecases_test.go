package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/example/shop-service/internal/adapter/repo"
	"github.com/example/shop-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedProduct(t *testing.T, repos domain.Repositories, name, price string) domain.Product {
	t.Helper()
	p := domain.Product{Name: name, Price: decimal.RequireFromString(price), Stock: 10}
	require.NoError(t, repos.Products.Create(context.Background(), &p))
	return p
}

func newCreateOrder(repos domain.Repositories, q domain.JobQueue) CreateOrder {
	return CreateOrder{Orders: repos.Orders, Products: repos.Products, Jobs: q, Logger: zap.NewNop()}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	repos := repo.NewMemory()
	mug := seedProduct(t, repos, "mug", "2.50")
	pen := seedProduct(t, repos, "pen", "1.10")
	q := &recordingQueue{}

	order, err := newCreateOrder(repos, q).Execute(ctx, 7, []OrderLine{
		{ProductID: mug.ID, Quantity: 2},
		{ProductID: pen.ID, Quantity: 3},
	})
	require.NoError(t, err)

	stored, err := repos.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stored.UserID)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
	assert.Equal(t, "8.30", stored.TotalAmount.StringFixed(2))

	items, err := repos.OrderItems.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Price.Equal(mug.Price))

	payment, err := repos.Payments.FindByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.True(t, payment.Amount.Equal(stored.TotalAmount))

	jobs := q.Jobs()
	require.Len(t, jobs, 2)
	names := map[string]domain.OrderJob{}
	for _, j := range jobs {
		assert.Equal(t, order.ID, j.Payload.OrderID)
		names[j.Name] = j.Payload
	}
	assert.Contains(t, names, domain.JobSendOrderConfirmation)
	require.Contains(t, names, domain.JobProcessPayment)
	assert.Equal(t, payment.ID, names[domain.JobProcessPayment].PaymentID)
}

func TestCreateOrderWithoutLinesUsesZeroTotal(t *testing.T) {
	repos := repo.NewMemory()
	q := &recordingQueue{}

	order, err := newCreateOrder(repos, q).Execute(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.IsZero())
	assert.Len(t, q.Jobs(), 2)
}

func TestCreateOrderRejects(t *testing.T) {
	repos := repo.NewMemory()
	mug := seedProduct(t, repos, "mug", "2.50")

	tests := []struct {
		name   string
		user   int64
		lines  []OrderLine
		wantIs []error
	}{
		{"unauthenticated", 0, []OrderLine{{ProductID: mug.ID, Quantity: 1}}, []error{domain.ErrValidation}},
		{"missing product id", 1, []OrderLine{{Quantity: 1}}, []error{domain.ErrValidation}},
		{"zero quantity", 1, []OrderLine{{ProductID: mug.ID}}, []error{domain.ErrValidation}},
		{"negative quantity", 1, []OrderLine{{ProductID: mug.ID, Quantity: -2}}, []error{domain.ErrValidation}},
		{"unknown product", 1, []OrderLine{{ProductID: 99, Quantity: 1}}, []error{domain.ErrValidation, domain.ErrNotFound}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &recordingQueue{}
			_, err := newCreateOrder(repos, q).Execute(context.Background(), tt.user, tt.lines)
			for _, want := range tt.wantIs {
				assert.ErrorIs(t, err, want)
			}
			assert.Empty(t, q.Jobs(), "no job may be enqueued for a rejected order")
		})
	}

	orders, err := repos.Orders.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrderPersistenceFailureEnqueuesNothing(t *testing.T) {
	repos := repo.NewMemory()
	q := &recordingQueue{}
	uc := newCreateOrder(repos, q)
	uc.Orders = failingOrders{repos.Orders}

	_, err := uc.Execute(context.Background(), 1, nil)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Empty(t, q.Jobs())
}

func TestCreateOrderSurvivesEnqueueFailure(t *testing.T) {
	repos := repo.NewMemory()
	q := &recordingQueue{err: errors.New("broker down")}

	order, err := newCreateOrder(repos, q).Execute(context.Background(), 1, nil)
	require.NoError(t, err)
	_, err = repos.Orders.Get(context.Background(), order.ID)
	assert.NoError(t, err)
}
