package domain

import (
	"context"
	"time"
)

// Record реализуют указатели на сущности, хранимые в Repository.
type Record[T any] interface {
	*T
	Identity() *int64
	Validate() error
}

// Repository это порт персистентности, общий для всех ресурсов.
// Create назначает идентификатор; Get, Update и Delete возвращают ErrNotFound для неизвестных id.
type Repository[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, v *T) error
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, id int64) error
}

type UserRepository interface {
	Repository[User]
	FindByUsername(ctx context.Context, username string) (User, error)
}

type OrderRepository interface {
	Repository[Order]
	// CreateWithItems атомарно записывает заказ, его строки и платёж.
	CreateWithItems(ctx context.Context, o *Order, items []OrderItem, p *Payment) error
}

type PaymentRepository interface {
	Repository[Payment]
	FindByOrder(ctx context.Context, orderID int64) (Payment, error)
}

// Repositories собирает хранилища одного бэкенда.
type Repositories struct {
	Users         UserRepository
	Categories    Repository[Category]
	Products      Repository[Product]
	Orders        OrderRepository
	OrderItems    Repository[OrderItem]
	Carts         Repository[Cart]
	CartItems     Repository[CartItem]
	Payments      PaymentRepository
	Reviews       Repository[Review]
	Wishlists     Repository[Wishlist]
	WishlistItems Repository[WishlistItem]
}

// Cache это общее хранилище ключ-значение со сроком жизни записи.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ReadCache прикрывает дорогие чтения по схеме cache-aside.
type ReadCache interface {
	GetOrPopulate(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) ([]byte, error)) ([]byte, error)
	Invalidate(ctx context.Context, keys ...string)
}

// JobQueue ставит фоновые задачи. Enqueue не ждёт выполнения задачи.
type JobQueue interface {
	Enqueue(ctx context.Context, name string, payload any) (JobHandle, error)
}

// JobConsumer передаёт сырые конверты из брокера в handler, пока не завершится ctx.
// Сообщение подтверждается после возврата handler, что бы он ни вернул.
type JobConsumer interface {
	Consume(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error
}

type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenService выпускает и проверяет bearer-токены. Verify возвращает id пользователя.
type TokenService interface {
	Issue(u User) (TokenPair, error)
	Refresh(refresh string) (string, error)
	Verify(token string, kind TokenKind) (int64, error)
}
