package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	JobSendOrderConfirmation = "send_order_confirmation_email"
	JobProcessPayment        = "process_payment"
)

// Job это конверт задачи, общий для всех бэкендов очереди.
type Job struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

type JobHandle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (j Job) Handle() JobHandle { return JobHandle{ID: j.ID, Name: j.Name} }

// OrderJob это полезная нагрузка обеих задач заказа. PaymentID задан для process_payment.
type OrderJob struct {
	OrderID   int64 `json:"order_id"`
	PaymentID int64 `json:"payment_id,omitempty"`
}

// NewJob собирает конверт с новым идентификатором.
func NewJob(name string, payload any) (Job, error) {
	if name == "" {
		return Job{}, Invalid("job name is required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return Job{ID: uuid.NewString(), Name: name, Payload: raw, EnqueuedAt: time.Now().UTC()}, nil
}

// DecodeJob разбирает сырой конверт, прочитанный из брокера.
func DecodeJob(raw []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return Job{}, fmt.Errorf("%w: decode job: %v", ErrValidation, err)
	}
	if j.Name == "" {
		return Job{}, Invalid("job without name")
	}
	return j, nil
}
