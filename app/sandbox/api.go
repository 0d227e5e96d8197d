package sandbox

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
)

const apiPrefix = "/core/api/v1"

// meToken in filter values stands for the signed-in account name
const meToken = "@me"

// listResponse is the envelope of list endpoints
type listResponse struct {
	Results []Record `json:"results"`
	Total   int      `json:"total"`
}

// handleList returns records of the kind with sorts, filters, search and date range applied.
// Responses are cached per query until the kind is written.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if !isKind(kind) {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusNotFound, errors.New("unknown kind"), "unknown kind "+kind)
		return
	}

	values := r.URL.Query()
	acc, _ := accountFrom(r.Context())
	if f := values.Get("filters"); strings.Contains(f, meToken) {
		values.Set("filters", strings.ReplaceAll(f, meToken, acc.Name))
	}
	q, err := ParseQuery(values)
	if err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusBadRequest, err, "bad query")
		return
	}

	key := cacheKey(kind, values.Encode())
	body, err := s.cache.Get(key, func() ([]byte, error) {
		recs, err := s.store.List(r.Context(), kind)
		if err != nil {
			return nil, err
		}
		res := q.Apply(kind, recs)
		log.Printf("[DEBUG] list %s %q, %d of %d", kind, values.Encode(), len(res), len(recs))
		return json.Marshal(listResponse{Results: res, Total: len(res)})
	})
	if err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "can't list "+kind)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if _, err := w.Write(body); err != nil {
		log.Printf("[WARN] failed to write %s list: %v", kind, err)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := s.target(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Get(r.Context(), kind, id)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	rest.RenderJSON(w, rec)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if !isKind(kind) {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusNotFound, errors.New("unknown kind"), "unknown kind "+kind)
		return
	}
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil || rec == nil {
		if err == nil {
			err = errors.New("empty record")
		}
		rest.SendErrorJSON(w, r, log.Default(), http.StatusBadRequest, err, "bad record")
		return
	}
	created, err := s.store.Create(r.Context(), kind, rec)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	s.invalidate(kind)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	rest.RenderJSON(w, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := s.target(w, r)
	if !ok {
		return
	}
	var fields Record
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusBadRequest, err, "bad record")
		return
	}
	updated, err := s.store.Update(r.Context(), kind, id, fields)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	s.invalidate(kind)
	rest.RenderJSON(w, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := s.target(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), kind, id); err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	s.invalidate(kind)
	w.WriteHeader(http.StatusNoContent)
}

// handleLookup returns distinct values of a field, filter popovers list them as options
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	kind, field := r.PathValue("kind"), r.PathValue("field")
	if !isKind(kind) {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusNotFound, errors.New("unknown kind"), "unknown kind "+kind)
		return
	}
	recs, err := s.store.List(r.Context(), kind)
	if err != nil {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "can't list "+kind)
		return
	}
	rest.RenderJSON(w, rest.JSON{"values": distinctValues(kind, field, recs)})
}

func distinctValues(kind, field string, recs []Record) []string {
	seen := map[string]bool{}
	res := []string{}
	for _, rec := range recs {
		v := str(lookup(kind, rec, field))
		if isEmpty(v) || seen[v] {
			continue
		}
		seen[v] = true
		res = append(res, v)
	}
	sort.Slice(res, func(i, j int) bool { return strings.ToLower(res[i]) < strings.ToLower(res[j]) })
	return res
}

// handleMe returns the signed-in account
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	acc, _ := accountFrom(r.Context())
	rest.RenderJSON(w, rest.JSON{"email": acc.Email, "name": acc.Name, "role": acc.Role})
}

// target reads the kind and the numeric id of the path, errors are sent to the client
func (s *Server) target(w http.ResponseWriter, r *http.Request) (kind string, id int, ok bool) {
	kind = r.PathValue("kind")
	if !isKind(kind) {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusNotFound, errors.New("unknown kind"), "unknown kind "+kind)
		return "", 0, false
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusBadRequest, errors.New("bad id"), "bad id "+r.PathValue("id"))
		return "", 0, false
	}
	return kind, id, true
}

func (s *Server) sendStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		rest.SendErrorJSON(w, r, log.Default(), http.StatusNotFound, err, "not found")
		return
	}
	rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "store error")
}

// invalidate drops cached lists of the kind
func (s *Server) invalidate(kind string) {
	prefix := kind + "?"
	s.cache.Invalidate(func(key string) bool { return strings.HasPrefix(key, prefix) })
	log.Printf("[DEBUG] invalidated cached %s lists", kind)
}

func cacheKey(kind, query string) string {
	return kind + "?" + query
}
