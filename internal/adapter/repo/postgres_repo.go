package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/shop-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier реализуют и *pgxpool.Pool, и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresTable реализует domain.Repository поверх одной таблицы.
type PostgresTable[T any, P domain.Record[T]] struct {
	def table[T]
	db  querier
	now func() time.Time
}

func newPostgresTable[T any, P domain.Record[T]](db querier, def table[T]) *PostgresTable[T, P] {
	return &PostgresTable[T, P]{def: def, db: db, now: time.Now}
}

// with возвращает копию таблицы, привязанную к другому querier, обычно к транзакции.
func (t *PostgresTable[T, P]) with(db querier) *PostgresTable[T, P] {
	c := *t
	c.db = db
	return &c
}

func (t *PostgresTable[T, P]) selectSQL() string {
	return "SELECT id, " + strings.Join(t.def.columns, ", ") + " FROM " + t.def.name
}

func (t *PostgresTable[T, P]) scan(row pgx.Row) (T, error) {
	var v T
	dest := append([]any{P(&v).Identity()}, t.def.fields(&v)...)
	err := row.Scan(dest...)
	return v, err
}

func (t *PostgresTable[T, P]) List(ctx context.Context) ([]T, error) {
	rows, err := t.db.Query(ctx, t.selectSQL()+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.def.name, err)
	}
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.def.name, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *PostgresTable[T, P]) Get(ctx context.Context, id int64) (T, error) {
	return t.one(ctx, fmt.Sprintf("%s %d", t.def.name, id), "id = $1", id)
}

// one загружает первую по id строку, подходящую под where.
func (t *PostgresTable[T, P]) one(ctx context.Context, what, where string, args ...any) (T, error) {
	v, err := t.scan(t.db.QueryRow(ctx, t.selectSQL()+" WHERE "+where+" ORDER BY id LIMIT 1", args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return v, fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("get %s: %w", what, err)
	}
	return v, nil
}

func (t *PostgresTable[T, P]) Create(ctx context.Context, v *T) error {
	t.def.stampCreated(v, t.now())
	marks := make([]string, len(t.def.columns))
	for i := range marks {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		t.def.name, strings.Join(t.def.columns, ", "), strings.Join(marks, ", "))
	if err := t.db.QueryRow(ctx, sql, t.def.values(v)...).Scan(P(v).Identity()); err != nil {
		return classify("insert "+t.def.name, err)
	}
	return nil
}

func (t *PostgresTable[T, P]) Update(ctx context.Context, v *T) error {
	values := t.def.values(v)
	sets := make([]string, 0, len(t.def.columns))
	args := make([]any, 0, len(values)+1)
	for i, col := range t.def.columns {
		if col == t.def.createdCol {
			continue
		}
		args = append(args, values[i])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	id := *P(v).Identity()
	args = append(args, id)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", t.def.name, strings.Join(sets, ", "), len(args))
	tag, err := t.db.Exec(ctx, sql, args...)
	if err != nil {
		return classify("update "+t.def.name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", t.def.name, id, domain.ErrNotFound)
	}
	if t.def.created != nil {
		// возвращаем сохранённую метку времени, как и бэкенд в памяти
		stored, err := t.Get(ctx, id)
		if err == nil {
			t.def.keepCreated(v, &stored)
		}
	}
	return nil
}

func (t *PostgresTable[T, P]) Delete(ctx context.Context, id int64) error {
	tag, err := t.db.Exec(ctx, "DELETE FROM "+t.def.name+" WHERE id = $1", id)
	if err != nil {
		return classify("delete "+t.def.name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", t.def.name, id, domain.ErrNotFound)
	}
	return nil
}

// classify превращает нарушения ограничений в ошибки валидации, а всё
// остальное в ошибки персистентности.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503", "23514", "23502":
			return fmt.Errorf("%w: %s: %s", domain.ErrValidation, op, pgErr.Message)
		}
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrPersistence, op, err)
}

type postgresUsers struct {
	*PostgresTable[domain.User, *domain.User]
}

func (u postgresUsers) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return u.one(ctx, fmt.Sprintf("user %q", username), "username = $1", username)
}

type postgresPayments struct {
	*PostgresTable[domain.Payment, *domain.Payment]
}

func (p postgresPayments) FindByOrder(ctx context.Context, orderID int64) (domain.Payment, error) {
	return p.one(ctx, fmt.Sprintf("payment for order %d", orderID), "order_id = $1", orderID)
}

type postgresOrders struct {
	*PostgresTable[domain.Order, *domain.Order]
	pool     *pgxpool.Pool
	items    *PostgresTable[domain.OrderItem, *domain.OrderItem]
	payments *PostgresTable[domain.Payment, *domain.Payment]
}

func (o postgresOrders) CreateWithItems(ctx context.Context, order *domain.Order, items []domain.OrderItem, p *domain.Payment) error {
	err := pgx.BeginFunc(ctx, o.pool, func(tx pgx.Tx) error {
		if err := o.with(tx).Create(ctx, order); err != nil {
			return err
		}
		lines := o.items.with(tx)
		for i := range items {
			items[i].OrderID = order.ID
			if err := lines.Create(ctx, &items[i]); err != nil {
				return err
			}
		}
		if p == nil {
			return nil
		}
		p.OrderID = order.ID
		return o.payments.with(tx).Create(ctx, p)
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrPersistence) {
			return err
		}
		return fmt.Errorf("%w: create order: %v", domain.ErrPersistence, err)
	}
	return nil
}

// NewPostgres возвращает репозитории поверх пула.
func NewPostgres(pool *pgxpool.Pool) domain.Repositories {
	items := newPostgresTable[domain.OrderItem, *domain.OrderItem](pool, orderItemsTable)
	payments := newPostgresTable[domain.Payment, *domain.Payment](pool, paymentsTable)
	return domain.Repositories{
		Users:      postgresUsers{newPostgresTable[domain.User, *domain.User](pool, usersTable)},
		Categories: newPostgresTable[domain.Category, *domain.Category](pool, categoriesTable),
		Products:   newPostgresTable[domain.Product, *domain.Product](pool, productsTable),
		Orders: postgresOrders{
			PostgresTable: newPostgresTable[domain.Order, *domain.Order](pool, ordersTable),
			pool:          pool,
			items:         items,
			payments:      payments,
		},
		OrderItems:    items,
		Carts:         newPostgresTable[domain.Cart, *domain.Cart](pool, cartsTable),
		CartItems:     newPostgresTable[domain.CartItem, *domain.CartItem](pool, cartItemsTable),
		Payments:      postgresPayments{payments},
		Reviews:       newPostgresTable[domain.Review, *domain.Review](pool, reviewsTable),
		Wishlists:     newPostgresTable[domain.Wishlist, *domain.Wishlist](pool, wishlistsTable),
		WishlistItems: newPostgresTable[domain.WishlistItem, *domain.WishlistItem](pool, wishlistItemsTable),
	}
}

var (
	_ domain.UserRepository    = postgresUsers{}
	_ domain.OrderRepository   = postgresOrders{}
	_ domain.PaymentRepository = postgresPayments{}
	_ domain.UserRepository    = memoryUsers{}
	_ domain.OrderRepository   = memoryOrders{}
	_ domain.PaymentRepository = memoryPayments{}
)
