package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/shop-service/internal/adapter/auth"
	"github.com/example/shop-service/internal/adapter/cache"
	"github.com/example/shop-service/internal/adapter/repo"
	"github.com/example/shop-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []string
	ids  []int64
}

func (q *recordingQueue) Enqueue(_ context.Context, name string, payload any) (domain.JobHandle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, name)
	q.ids = append(q.ids, payload.(domain.OrderJob).OrderID)
	return domain.JobHandle{ID: name, Name: name}, nil
}

type countingProducts struct {
	domain.Repository[domain.Product]
	mu    sync.Mutex
	lists int
}

func (c *countingProducts) List(ctx context.Context) ([]domain.Product, error) {
	c.mu.Lock()
	c.lists++
	c.mu.Unlock()
	return c.Repository.List(ctx)
}

type fixture struct {
	srv      *Server
	repos    domain.Repositories
	products *countingProducts
	jobs     *recordingQueue
	tokens   *auth.JWTService
	user     domain.User
	product  domain.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := repo.NewMemory()
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := hasher.Hash("testpassword")
	require.NoError(t, err)
	u := domain.User{Username: "testuser", Email: "testuser@example.com", PasswordHash: hash}
	require.NoError(t, repos.Users.Create(ctx, &u))
	p := domain.Product{Name: "Test Product", Price: decimal.RequireFromString("10.00"), Stock: 100}
	require.NoError(t, repos.Products.Create(ctx, &p))

	f := &fixture{
		repos:    repos,
		products: &countingProducts{Repository: repos.Products},
		jobs:     &recordingQueue{},
		tokens:   auth.NewJWTService("test-secret", time.Minute, time.Hour),
		user:     u,
		product:  p,
	}
	repos.Products = f.products
	f.srv = NewServer(Deps{
		Repos:             repos,
		Cache:             cache.NewAside(cache.NewMemoryCache(), nil),
		CacheTTL:          300 * time.Second,
		InvalidateOnWrite: true,
		Jobs:              f.jobs,
		Hasher:            hasher,
		Tokens:            f.tokens,
	})
	return f
}

func (f *fixture) access(t *testing.T) string {
	t.Helper()
	pair, err := f.tokens.Issue(f.user)
	require.NoError(t, err)
	return pair.Access
}

type reqOpt func(*http.Request)

func withCSRF(r *http.Request) { r.Header.Set("X-CSRFToken", "test") }

func withBearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withForm(r *http.Request) {
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
}

func (f *fixture) do(t *testing.T, method, path, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
