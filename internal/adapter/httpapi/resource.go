package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/example/shop-service/internal/domain"
	"github.com/gorilla/mux"
)

const maxBody = 1 << 20

// resource serves list, create, retrieve, replace, patch and delete for one
// repository. The optional hooks let a resource change how it is read or written.
type resource[T any, P domain.Record[T]] struct {
	name string
	repo domain.Repository[T]

	// prepare runs after decoding and before Validate; prev is nil on create.
	prepare func(ctx context.Context, body []byte, v P, prev *T) error
	// written runs after a successful create, update or delete.
	written func(ctx context.Context, id int64)

	listJSON func(ctx context.Context) ([]byte, error)
	getJSON  func(ctx context.Context, id int64) ([]byte, error)
	create   http.HandlerFunc
}

func (rs *resource[T, P]) mount(s *Server, router *mux.Router) {
	create := rs.create
	if create == nil {
		create = func(w http.ResponseWriter, r *http.Request) { rs.handleCreate(s, w, r) }
	}
	collection := "/api/" + rs.name + "/"
	item := collection + "{id:[0-9]+}/"
	router.HandleFunc(collection, func(w http.ResponseWriter, r *http.Request) { rs.handleList(s, w, r) }).Methods(http.MethodGet)
	router.HandleFunc(collection, create).Methods(http.MethodPost)
	router.HandleFunc(item, func(w http.ResponseWriter, r *http.Request) { rs.handleGet(s, w, r) }).Methods(http.MethodGet)
	router.HandleFunc(item, func(w http.ResponseWriter, r *http.Request) { rs.handleUpdate(s, w, r, false) }).Methods(http.MethodPut)
	router.HandleFunc(item, func(w http.ResponseWriter, r *http.Request) { rs.handleUpdate(s, w, r, true) }).Methods(http.MethodPatch)
	router.HandleFunc(item, func(w http.ResponseWriter, r *http.Request) { rs.handleDelete(s, w, r) }).Methods(http.MethodDelete)
}

func (rs *resource[T, P]) handleList(s *Server, w http.ResponseWriter, r *http.Request) {
	if rs.listJSON != nil {
		b, err := rs.listJSON(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeRaw(w, http.StatusOK, b)
		return
	}
	items, err := rs.repo.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (rs *resource[T, P]) handleGet(s *Server, w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rs.getJSON != nil {
		b, err := rs.getJSON(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeRaw(w, http.StatusOK, b)
		return
	}
	v, err := rs.repo.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (rs *resource[T, P]) handleCreate(s *Server, w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var v T
	if err := decodeInto(body, &v); err != nil {
		s.writeError(w, r, err)
		return
	}
	*P(&v).Identity() = 0
	if rs.prepare != nil {
		if err := rs.prepare(r.Context(), body, &v, nil); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if err := P(&v).Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := rs.repo.Create(r.Context(), &v); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := *P(&v).Identity()
	if rs.written != nil {
		rs.written(r.Context(), id)
	}
	writeJSON(w, http.StatusCreated, v)
}

// handleUpdate decodes a PUT onto an empty record and a PATCH onto the
// stored one. The id always comes from the path.
func (rs *resource[T, P]) handleUpdate(s *Server, w http.ResponseWriter, r *http.Request, partial bool) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	prev, err := rs.repo.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var v T
	if partial {
		v = prev
	}
	if err := decodeInto(body, &v); err != nil {
		s.writeError(w, r, err)
		return
	}
	*P(&v).Identity() = id
	if rs.prepare != nil {
		if err := rs.prepare(r.Context(), body, &v, &prev); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if err := P(&v).Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := rs.repo.Update(r.Context(), &v); err != nil {
		s.writeError(w, r, err)
		return
	}
	if rs.written != nil {
		rs.written(r.Context(), id)
	}
	// re-read so columns the store keeps (created_at) are reported as stored
	stored, err := rs.repo.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (rs *resource[T, P]) handleDelete(s *Server, w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := rs.repo.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if rs.written != nil {
		rs.written(r.Context(), id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("bad id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

func readBody(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrValidation, err)
	}
	return b, nil
}

func decodeInto(body []byte, v any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: malformed json: %v", domain.ErrValidation, err)
	}
	return nil
}
