// Package wptest runs an in-memory fake of the store API for tests.
//
// It implements the token, user, product, brand, homepage, media, price
// history and activity endpoints closely enough to exercise the client end to
// end, including bearer checks, refresh tokens and WordPress paging headers.
package wptest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

type account struct {
	password string
	user     wpapi.User
}

// Server is a fake store API.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	nextID        int
	accounts      map[string]*account
	tokens        map[string]int
	refreshTokens map[string]int
	brands        map[int]wpapi.Brand
	products      map[int]wpapi.Product
	categories    map[int]wpapi.Term
	tags          map[int]wpapi.Term
	homepage      map[int]wpapi.HomepageItem
	prices        map[int][]wpapi.PriceEntry
	events        []wpapi.Event
	media         []wpapi.Media
	calls         map[string]int

	failBatch  int
	failStatus map[string]int
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		nextID:        100,
		accounts:      make(map[string]*account),
		tokens:        make(map[string]int),
		refreshTokens: make(map[string]int),
		brands:        make(map[int]wpapi.Brand),
		products:      make(map[int]wpapi.Product),
		categories:    make(map[int]wpapi.Term),
		tags:          make(map[int]wpapi.Term),
		homepage:      make(map[int]wpapi.HomepageItem),
		prices:        make(map[int][]wpapi.PriceEntry),
		calls:         make(map[string]int),
		failStatus:    make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Get("/wp-json", s.index)
	r.Get("/wp-json/", s.index)
	r.Post("/wp-json/jwt-auth/v1/token", s.issueToken)
	r.Post("/wp-json/jwt-auth/v1/token/refresh", s.refreshToken)
	r.With(s.requireBearer).Post("/wp-json/jwt-auth/v1/token/validate", s.validateToken)

	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)

		r.Get("/wp-json/wp/v2/users/me", s.currentUser)
		r.Get("/wp-json/wp/v2/users", s.listUsers)
		r.Post("/wp-json/wp/v2/users", s.createUser)
		r.Get("/wp-json/wp/v2/users/{id}", s.getUser)
		r.Put("/wp-json/wp/v2/users/{id}", s.updateUser)
		r.Delete("/wp-json/wp/v2/users/{id}", s.deleteUser)

		r.Post("/wp-json/wp/v2/media", s.uploadMedia)

		r.Get("/wp-json/wc/v3/products", s.listProducts)
		r.Post("/wp-json/wc/v3/products", s.createProduct)
		r.Get("/wp-json/wc/v3/products/categories", s.listTerms(func() map[int]wpapi.Term { return s.categories }))
		r.Get("/wp-json/wc/v3/products/tags", s.listTerms(func() map[int]wpapi.Term { return s.tags }))

		r.Get("/wp-json/wc/v3/products/brands", s.listBrands)
		r.Post("/wp-json/wc/v3/products/brands", s.createBrand)
		r.Post("/wp-json/wc/v3/products/brands/batch", s.batchBrands)
		r.Get("/wp-json/wc/v3/products/brands/{id}", s.getBrand)
		r.Put("/wp-json/wc/v3/products/brands/{id}", s.updateBrand)
		r.Delete("/wp-json/wc/v3/products/brands/{id}", s.deleteBrand)

		r.Get("/wp-json/wc/v3/products/{id}", s.getProduct)
		r.Put("/wp-json/wc/v3/products/{id}", s.updateProduct)
		r.Delete("/wp-json/wc/v3/products/{id}", s.deleteProduct)

		r.Get("/wp-json/wc/v3/products/{id}/price-history", s.listPrices)
		r.Post("/wp-json/wc/v3/products/{id}/price-history", s.addPrice)
		r.Delete("/wp-json/wc/v3/products/{id}/price-history", s.clearPrices)
		r.Put("/wp-json/wc/v3/products/{id}/price-history/{entry}", s.updatePrice)
		r.Delete("/wp-json/wc/v3/products/{id}/price-history/{entry}", s.deletePrice)

		r.Get("/wp-json/twc/v1/homepage-items", s.listHomepage)
		r.Post("/wp-json/twc/v1/homepage-items", s.createHomepage)
		r.Post("/wp-json/twc/v1/homepage-items/batch", s.batchHomepage)
		r.Get("/wp-json/twc/v1/homepage-items/{id}", s.getHomepage)
		r.Put("/wp-json/twc/v1/homepage-items/{id}", s.updateHomepage)
		r.Delete("/wp-json/twc/v1/homepage-items/{id}", s.deleteHomepage)

		r.Get("/wp-json/simple-history/v1/events", s.listEvents)
		r.Get("/wp-json/simple-history/v1/events/new", s.newEvents)
		r.Get("/wp-json/simple-history/v1/events/{id}", s.getEvent)
		r.Get("/wp-json/simple-history/v1/stats/summary", s.eventSummary)
	})
	return r
}

// SiteName is announced by the API index.
const SiteName = "Test Store"

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        SiteName,
		"description": "In-memory store API",
		"url":         s.URL,
		"namespaces":  []string{"oembed/1.0", "jwt-auth/v1", "wp/v2", "wc/v3", "twc/v1", "simple-history/v1"},
	})
}

// record counts calls and applies injected failures.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls[key]++
		status := s.failStatus[key]
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, "injected_failure", "Injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		_, ok := s.tokens[token]
		s.mu.Unlock()
		if token == "" || !ok {
			writeError(w, http.StatusUnauthorized, "jwt_auth_invalid_token", "Expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Calls returns how many times method path was requested.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// FailNext makes the next n brand or homepage batch calls fail with 500.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failBatch = n
}

// FailAlways makes every method path request fail with status. Zero clears it.
func (s *Server) FailAlways(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failStatus, method+" "+path)
		return
	}
	s.failStatus[method+" "+path] = status
}

func (s *Server) id() int {
	s.nextID++
	return s.nextID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":    code,
		"message": message,
		"data":    map[string]int{"status": status},
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(r.Body)
	if err == nil && len(data) > 0 {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "rest_invalid_json", "Invalid JSON body")
		return false
	}
	return true
}

func urlID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusNotFound, "rest_no_route", "No route was found matching the URL and request method.")
		return 0, false
	}
	return id, true
}

// paginate writes one page of items with X-WP-Total and X-WP-TotalPages.
func paginate[T any](w http.ResponseWriter, r *http.Request, items []T) {
	perPage := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
		perPage = v
	}
	page := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}

	total := len(items)
	pages := (total + perPage - 1) / perPage
	w.Header().Set("X-WP-Total", strconv.Itoa(total))
	w.Header().Set("X-WP-TotalPages", strconv.Itoa(pages))

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	out := items[start:end]
	if out == nil {
		out = []T{}
	}
	writeJSON(w, http.StatusOK, out)
}

func sortedValues[T any](m map[int]T) []T {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func notFound(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotFound, "rest_"+what+"_invalid_id", fmt.Sprintf("Invalid %s ID.", what))
}
