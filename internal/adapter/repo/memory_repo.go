package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/shop-service/internal/domain"
)

// MemoryTable хранит строки одной сущности в map. Используется локально и в тестах.
type MemoryTable[T any, P domain.Record[T]] struct {
	def table[T]
	now func() time.Time

	mu   sync.RWMutex
	rows map[int64]T
	next int64
}

func newMemoryTable[T any, P domain.Record[T]](def table[T]) *MemoryTable[T, P] {
	return &MemoryTable[T, P]{def: def, now: time.Now, rows: make(map[int64]T)}
}

func (m *MemoryTable[T, P]) List(ctx context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.rows[id])
	}
	return out, nil
}

func (m *MemoryTable[T, P]) Get(ctx context.Context, id int64) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.rows[id]
	if !ok {
		var zero T
		return zero, m.notFound(id)
	}
	return v, nil
}

func (m *MemoryTable[T, P]) Create(ctx context.Context, v *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(v)
	return nil
}

func (m *MemoryTable[T, P]) insertLocked(v *T) {
	m.next++
	*P(v).Identity() = m.next
	m.def.stampCreated(v, m.now())
	m.rows[m.next] = *v
}

func (m *MemoryTable[T, P]) Update(ctx context.Context, v *T) error {
	id := *P(v).Identity()
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.rows[id]
	if !ok {
		return m.notFound(id)
	}
	m.def.keepCreated(v, &prev)
	m.rows[id] = *v
	return nil
}

func (m *MemoryTable[T, P]) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return m.notFound(id)
	}
	delete(m.rows, id)
	return nil
}

// find возвращает первую по id строку, подходящую под fn.
func (m *MemoryTable[T, P]) find(fn func(T) bool) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		best   T
		bestID int64
		found  bool
	)
	for id, v := range m.rows {
		if fn(v) && (!found || id < bestID) {
			best, bestID, found = v, id, true
		}
	}
	return best, found
}

func (m *MemoryTable[T, P]) notFound(id int64) error {
	return fmt.Errorf("%s %d: %w", m.def.name, id, domain.ErrNotFound)
}

type memoryUsers struct {
	*MemoryTable[domain.User, *domain.User]
}

func (u memoryUsers) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	v, ok := u.find(func(x domain.User) bool { return x.Username == username })
	if !ok {
		return domain.User{}, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	return v, nil
}

func (u memoryUsers) Create(ctx context.Context, v *domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.uniqueLocked(v); err != nil {
		return err
	}
	u.insertLocked(v)
	return nil
}

func (u memoryUsers) Update(ctx context.Context, v *domain.User) error {
	u.mu.Lock()
	prev, ok := u.rows[v.ID]
	if !ok {
		u.mu.Unlock()
		return u.notFound(v.ID)
	}
	err := u.uniqueLocked(v)
	if err == nil {
		u.def.keepCreated(v, &prev)
		u.rows[v.ID] = *v
	}
	u.mu.Unlock()
	return err
}

func (u memoryUsers) uniqueLocked(v *domain.User) error {
	for id, x := range u.rows {
		if id != v.ID && x.Username == v.Username {
			return domain.Invalid("username %q is already taken", v.Username)
		}
	}
	return nil
}

type memoryPayments struct {
	*MemoryTable[domain.Payment, *domain.Payment]
}

func (p memoryPayments) FindByOrder(ctx context.Context, orderID int64) (domain.Payment, error) {
	v, ok := p.find(func(x domain.Payment) bool { return x.OrderID == orderID })
	if !ok {
		return domain.Payment{}, fmt.Errorf("payment for order %d: %w", orderID, domain.ErrNotFound)
	}
	return v, nil
}

type memoryOrders struct {
	*MemoryTable[domain.Order, *domain.Order]
	items    *MemoryTable[domain.OrderItem, *domain.OrderItem]
	payments *MemoryTable[domain.Payment, *domain.Payment]
}

// CreateWithItems держит блокировки всех трёх таблиц, чтобы читатели не увидели заказ частично.
func (o memoryOrders) CreateWithItems(ctx context.Context, order *domain.Order, items []domain.OrderItem, p *domain.Payment) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items.mu.Lock()
	defer o.items.mu.Unlock()
	o.payments.mu.Lock()
	defer o.payments.mu.Unlock()

	o.insertLocked(order)
	for i := range items {
		items[i].OrderID = order.ID
		o.items.insertLocked(&items[i])
	}
	if p != nil {
		p.OrderID = order.ID
		o.payments.insertLocked(p)
	}
	return nil
}

// NewMemory возвращает репозитории в памяти процесса.
func NewMemory() domain.Repositories {
	users := newMemoryTable[domain.User, *domain.User](usersTable)
	orders := newMemoryTable[domain.Order, *domain.Order](ordersTable)
	items := newMemoryTable[domain.OrderItem, *domain.OrderItem](orderItemsTable)
	payments := newMemoryTable[domain.Payment, *domain.Payment](paymentsTable)
	return domain.Repositories{
		Users:         memoryUsers{users},
		Categories:    newMemoryTable[domain.Category, *domain.Category](categoriesTable),
		Products:      newMemoryTable[domain.Product, *domain.Product](productsTable),
		Orders:        memoryOrders{MemoryTable: orders, items: items, payments: payments},
		OrderItems:    items,
		Carts:         newMemoryTable[domain.Cart, *domain.Cart](cartsTable),
		CartItems:     newMemoryTable[domain.CartItem, *domain.CartItem](cartItemsTable),
		Payments:      memoryPayments{payments},
		Reviews:       newMemoryTable[domain.Review, *domain.Review](reviewsTable),
		Wishlists:     newMemoryTable[domain.Wishlist, *domain.Wishlist](wishlistsTable),
		WishlistItems: newMemoryTable[domain.WishlistItem, *domain.WishlistItem](wishlistItemsTable),
	}
}
