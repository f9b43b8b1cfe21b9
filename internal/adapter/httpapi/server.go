package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/example/shop-service/internal/domain"
	"github.com/example/shop-service/internal/usecase"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Deps is everything the HTTP surface needs from the rest of the service.
type Deps struct {
	Repos             domain.Repositories
	Cache             domain.ReadCache
	CacheTTL          time.Duration
	InvalidateOnWrite bool
	Jobs              domain.JobQueue
	Hasher            domain.PasswordHasher
	Tokens            domain.TokenService
	AuthPrefix        string
	Logger            *zap.Logger

	// Ping reports readiness of the backing stores for /healthz. Optional.
	Ping func(ctx context.Context) error
}

type Server struct {
	// Router holds every /api/ route; it is served behind AccessGuard.
	Router *mux.Router

	handler http.Handler
	logger  *zap.Logger
	repos   domain.Repositories
	ping    func(ctx context.Context) error

	createOrder  usecase.CreateOrder
	listProducts usecase.ListProducts
	getProduct   usecase.GetProduct
	invalidate   usecase.InvalidateProduct
	issueToken   usecase.IssueToken
	refreshToken usecase.RefreshToken
	setPassword  usecase.SetPassword
}

func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := d.AuthPrefix
	if prefix == "" {
		prefix = "/api/auth/"
	}
	s := &Server{
		Router: mux.NewRouter(),
		logger: logger,
		repos:  d.Repos,
		ping:   d.Ping,

		createOrder:  usecase.CreateOrder{Orders: d.Repos.Orders, Products: d.Repos.Products, Jobs: d.Jobs, Logger: logger},
		listProducts: usecase.ListProducts{Products: d.Repos.Products, Cache: d.Cache, TTL: d.CacheTTL},
		getProduct:   usecase.GetProduct{Products: d.Repos.Products, Cache: d.Cache, TTL: d.CacheTTL},
		invalidate:   usecase.InvalidateProduct{Cache: d.Cache, Enabled: d.InvalidateOnWrite},
		issueToken:   usecase.IssueToken{Users: d.Repos.Users, Hasher: d.Hasher, Tokens: d.Tokens},
		refreshToken: usecase.RefreshToken{Tokens: d.Tokens},
		setPassword:  usecase.SetPassword{Hasher: d.Hasher},
	}
	s.routes()

	root := mux.NewRouter()
	root.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	root.HandleFunc("/csrf/", s.handleCSRF).Methods(http.MethodGet)
	root.PathPrefix("/api/").Handler(AccessGuard(d.Tokens, prefix, s.Router))
	root.NotFoundHandler = http.HandlerFunc(notFound)
	s.handler = logRequests(logger, root)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.Router
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/api/token/", s.handleToken).Methods(http.MethodPost)
	r.HandleFunc("/api/token/refresh/", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/me/", s.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/me/", s.handleUpdateMe).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/api/auth/me/", s.handleDeleteMe).Methods(http.MethodDelete)
	r.HandleFunc("/api/create_order/", s.handleCreateOrder).Methods(http.MethodPost)

	repos := s.repos
	(&resource[domain.User, *domain.User]{name: "users", repo: repos.Users, prepare: s.prepareUser}).mount(s, r)
	(&resource[domain.Category, *domain.Category]{name: "categories", repo: repos.Categories}).mount(s, r)
	(&resource[domain.Product, *domain.Product]{
		name:     "products",
		repo:     repos.Products,
		listJSON: s.listProducts.Execute,
		getJSON:  s.getProduct.Execute,
		written:  s.invalidate.Execute,
	}).mount(s, r)
	(&resource[domain.Order, *domain.Order]{name: "orders", repo: repos.Orders, create: s.handleCreateOrder}).mount(s, r)
	(&resource[domain.OrderItem, *domain.OrderItem]{name: "order-items", repo: repos.OrderItems}).mount(s, r)
	(&resource[domain.Cart, *domain.Cart]{name: "carts", repo: repos.Carts}).mount(s, r)
	(&resource[domain.CartItem, *domain.CartItem]{name: "cart-items", repo: repos.CartItems}).mount(s, r)
	(&resource[domain.Payment, *domain.Payment]{name: "payments", repo: repos.Payments, prepare: preparePayment}).mount(s, r)
	(&resource[domain.Review, *domain.Review]{name: "reviews", repo: repos.Reviews}).mount(s, r)
	(&resource[domain.Wishlist, *domain.Wishlist]{name: "wishlists", repo: repos.Wishlists}).mount(s, r)
	(&resource[domain.WishlistItem, *domain.WishlistItem]{name: "wishlist-items", repo: repos.WishlistItems}).mount(s, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeMessage(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCSRF hands out a token for clients that have no csrftoken cookie yet.
func (s *Server) handleCSRF(w http.ResponseWriter, r *http.Request) {
	token := uuid.NewString()
	if c, err := r.Cookie("csrftoken"); err == nil && c.Value != "" {
		token = c.Value
	}
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: token, Path: "/", SameSite: http.SameSiteLaxMode})
	writeJSON(w, http.StatusOK, map[string]string{"csrftoken": token})
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusNotFound, "not found")
}
