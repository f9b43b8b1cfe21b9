package usecase

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/example/shop-service/internal/domain"
)

// Ключи кэша для чтения товаров. Префиксы разводят ключи списка и отдельных товаров.
const ProductListKey = "products:all"

func ProductKey(id int64) string { return "products:id:" + strconv.FormatInt(id, 10) }

// ListProducts возвращает список товаров в JSON, кэшируя его под ProductListKey.
type ListProducts struct {
	Products domain.Repository[domain.Product]
	Cache    domain.ReadCache
	TTL      time.Duration
}

func (uc ListProducts) Execute(ctx context.Context) ([]byte, error) {
	return uc.Cache.GetOrPopulate(ctx, ProductListKey, uc.TTL, func(ctx context.Context) ([]byte, error) {
		products, err := uc.Products.List(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(products)
	})
}

// GetProduct возвращает один товар в JSON, кэшируя его под ProductKey(id).
// Неизвестные id не кэшируются.
type GetProduct struct {
	Products domain.Repository[domain.Product]
	Cache    domain.ReadCache
	TTL      time.Duration
}

func (uc GetProduct) Execute(ctx context.Context, id int64) ([]byte, error) {
	return uc.Cache.GetOrPopulate(ctx, ProductKey(id), uc.TTL, func(ctx context.Context) ([]byte, error) {
		p, err := uc.Products.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(p)
	})
}

// InvalidateProduct сбрасывает закэшированные чтения, затронутые записью товара.
// При Enabled == false кэш отдаёт записи до истечения TTL.
type InvalidateProduct struct {
	Cache   domain.ReadCache
	Enabled bool
}

func (uc InvalidateProduct) Execute(ctx context.Context, id int64) {
	if !uc.Enabled {
		return
	}
	uc.Cache.Invalidate(ctx, ProductListKey, ProductKey(id))
}
