package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobAndDecode(t *testing.T) {
	j, err := NewJob(JobProcessPayment, OrderJob{OrderID: 4, PaymentID: 9})
	require.NoError(t, err)
	assert.NotEmpty(t, j.ID)
	assert.JSONEq(t, `{"order_id":4,"payment_id":9}`, string(j.Payload))
	assert.Equal(t, JobHandle{ID: j.ID, Name: JobProcessPayment}, j.Handle())

	raw := []byte(fmt.Sprintf(`{"id":%q,"name":%q,"payload":{"order_id":4}}`, j.ID, j.Name))
	got, err := DecodeJob(raw)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)

	_, err = NewJob("", nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = DecodeJob([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = DecodeJob([]byte(`garbage`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestJobFailureUnwraps(t *testing.T) {
	cause := fmt.Errorf("order 3: %w", ErrNotFound)
	var err error = &JobFailure{Job: JobSendOrderConfirmation, ID: "abc", Err: cause}
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), JobSendOrderConfirmation)

	var jf *JobFailure
	assert.True(t, errors.As(fmt.Errorf("worker: %w", err), &jf))
}

func TestOrderValidate(t *testing.T) {
	o := Order{UserID: 1, TotalAmount: decimal.Zero}
	require.NoError(t, o.Validate())
	assert.Equal(t, OrderStatusPending, o.Status, "empty status defaults to PENDING")

	assert.ErrorIs(t, (&Order{TotalAmount: decimal.Zero}).Validate(), ErrValidation)
	assert.ErrorIs(t, (&Order{UserID: 1, TotalAmount: decimal.NewFromInt(-1)}).Validate(), ErrValidation)
	assert.ErrorIs(t, (&Order{UserID: 1, Status: "SHIPPED"}).Validate(), ErrValidation)
}

func TestPaymentIsMonotonic(t *testing.T) {
	p := Payment{ID: 1, OrderID: 1, Status: PaymentStatusPending}
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, p.CheckTransition(PaymentStatusProcessed), ErrValidation)
	assert.NoError(t, p.CheckTransition(PaymentStatusPending))
	assert.True(t, p.MarkProcessed(first))
	assert.False(t, p.MarkProcessed(first.Add(time.Hour)))
	assert.Equal(t, first, *p.ProcessedAt)

	assert.ErrorIs(t, p.CheckTransition(PaymentStatusPending), ErrValidation)
	assert.NoError(t, p.CheckTransition(PaymentStatusProcessed))
}

func TestEntityValidation(t *testing.T) {
	tests := []struct {
		name string
		rec  interface{ Validate() error }
		ok   bool
	}{
		{"user", &User{Username: " ann ", Email: "ann@example.com"}, true},
		{"user without name", &User{Username: "  "}, false},
		{"user bad email", &User{Username: "ann", Email: "nope"}, false},
		{"category", &Category{Name: "Books"}, true},
		{"category without name", &Category{}, false},
		{"product", &Product{Name: "Mug", Price: decimal.RequireFromString("1.50")}, true},
		{"product negative price", &Product{Name: "Mug", Price: decimal.NewFromInt(-1)}, false},
		{"product negative stock", &Product{Name: "Mug", Stock: -1}, false},
		{"review", &Review{ProductID: 1, UserID: 1, Rating: 5}, true},
		{"review rating 0", &Review{ProductID: 1, UserID: 1}, false},
		{"review rating 6", &Review{ProductID: 1, UserID: 1, Rating: 6}, false},
		{"cart", &Cart{UserID: 1}, true},
		{"cart item zero qty", &CartItem{CartID: 1, ProductID: 1}, false},
		{"wishlist item", &WishlistItem{WishlistID: 1, ProductID: 1}, true},
		{"order item", &OrderItem{OrderID: 1, ProductID: 1, Quantity: 1}, true},
		{"payment unknown status", &Payment{OrderID: 1, Status: "LOST"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}
