package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/shop-service/internal/domain"
	"github.com/example/shop-service/internal/usecase"
)

type orderRequest struct {
	usecase.OrderLine
	Items []usecase.OrderLine `json:"items"`
}

type orderCreated struct {
	OrderID int64              `json:"order_id"`
	Status  domain.OrderStatus `json:"status"`
	Message string             `json:"message"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	lines, err := decodeOrderLines(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	o, err := s.createOrder.Execute(r.Context(), UserID(r.Context()), lines)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderCreated{OrderID: o.ID, Status: o.Status, Message: "Order created successfully"})
}

// decodeOrderLines accepts a single top-level line, a list under items, or both.
func decodeOrderLines(r *http.Request) ([]usecase.OrderLine, error) {
	if form, ok, err := formValues(r); ok || err != nil {
		if err != nil {
			return nil, err
		}
		if form.Get("product_id") == "" && form.Get("quantity") == "" {
			return nil, nil
		}
		pid, err1 := strconv.ParseInt(form.Get("product_id"), 10, 64)
		qty, err2 := strconv.Atoi(form.Get("quantity"))
		if err1 != nil || err2 != nil {
			return nil, domain.Invalid("product_id and quantity must be integers")
		}
		return []usecase.OrderLine{{ProductID: pid, Quantity: qty}}, nil
	}

	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	var req orderRequest
	if err := decodeInto(body, &req); err != nil {
		return nil, err
	}
	lines := req.Items
	if req.ProductID != 0 || req.Quantity != 0 {
		lines = append([]usecase.OrderLine{req.OrderLine}, lines...)
	}
	return lines, nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Refresh  string `json:"refresh"`
}

func decodeCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if form, ok, err := formValues(r); ok || err != nil {
		if err != nil {
			return c, err
		}
		return credentials{Username: form.Get("username"), Password: form.Get("password"), Refresh: form.Get("refresh")}, nil
	}
	body, err := readBody(r)
	if err != nil {
		return c, err
	}
	return c, decodeInto(body, &c)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, err := s.issueToken.Execute(r.Context(), c.Username, c.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	access, err := s.refreshToken.Execute(c.Refresh)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	uid := UserID(r.Context())
	if uid == 0 {
		writeMessage(w, http.StatusUnauthorized, "User not authenticated")
		return domain.User{}, false
	}
	u, err := s.repos.Users.Get(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return domain.User{}, false
	}
	return u, true
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if u, ok := s.currentUser(w, r); ok {
		writeJSON(w, http.StatusOK, u)
	}
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	prev, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u := prev
	if err := decodeInto(body, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	u.ID = prev.ID
	if err := s.prepareUser(r.Context(), body, &u, &prev); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := u.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repos.Users.Update(r.Context(), &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	if err := s.repos.Users.Delete(r.Context(), u.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// prepareUser hashes a supplied password. Without one, an update keeps the
// stored hash and a create is rejected.
func (s *Server) prepareUser(_ context.Context, body []byte, u *domain.User, prev *domain.User) error {
	var in struct {
		Password *string `json:"password"`
	}
	if len(body) > 0 {
		_ = json.Unmarshal(body, &in)
	}
	if in.Password == nil {
		if prev == nil {
			return domain.Invalid("password is required")
		}
		u.PasswordHash = prev.PasswordHash
		return nil
	}
	return s.setPassword.Execute(u, *in.Password)
}

// preparePayment keeps status out of CRUD writes: payments are created
// PENDING and only the payment job marks them PROCESSED.
func preparePayment(_ context.Context, _ []byte, p *domain.Payment, prev *domain.Payment) error {
	if prev == nil {
		if p.Status != "" && p.Status != domain.PaymentStatusPending {
			return domain.Invalid("payment status %q cannot be set on create", p.Status)
		}
		p.ProcessedAt = nil
		return nil
	}
	p.ProcessedAt = prev.ProcessedAt
	if p.Status == "" {
		p.Status = prev.Status
	}
	return prev.CheckTransition(p.Status)
}

// formValues parses url-encoded and multipart bodies. ok is false for
// anything else, which callers decode as JSON.
func formValues(r *http.Request) (url.Values, bool, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return nil, false, nil
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, false, nil
	}
	switch mt {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, true, fmt.Errorf("%w: form: %v", domain.ErrValidation, err)
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBody); err != nil {
			return nil, true, fmt.Errorf("%w: form: %v", domain.ErrValidation, err)
		}
	default:
		return nil, false, nil
	}
	return r.PostForm, true, nil
}
