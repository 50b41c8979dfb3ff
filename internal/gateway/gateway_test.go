package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/twcadmin/internal/credstore"
	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/log"
	"github.com/felixgeelhaar/twcadmin/internal/metrics"
)

// tokenServer accepts bearer "valid" on /wp-json/wc/v3/products and mints
// "valid" from refresh token "refresh-ok".
type tokenServer struct {
	mu          sync.Mutex
	apiCalls    int
	refreshHits int
	authHeaders []string
	requestIDs  []string
	refreshCode int
	alwaysDeny  bool
}

type serverCounts struct {
	apiCalls    int
	refreshHits int
	authHeaders []string
	requestIDs  []string
}

func (s *tokenServer) counts() serverCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return serverCounts{
		apiCalls:    s.apiCalls,
		refreshHits: s.refreshHits,
		authHeaders: append([]string(nil), s.authHeaders...),
		requestIDs:  append([]string(nil), s.requestIDs...),
	}
}

func (s *tokenServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/jwt-auth/v1/token/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.refreshHits++
		code := s.refreshCode
		s.mu.Unlock()

		if code != 0 {
			w.WriteHeader(code)
			_, _ = io.WriteString(w, `{"code":"jwt_auth_invalid_refresh_token","message":"Invalid refresh token"}`)
			return
		}
		if r.Header.Get("Authorization") != "Bearer refresh-ok" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, `{"token":"valid"}`)
	})
	mux.HandleFunc("/wp-json/wc/v3/products", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.apiCalls++
		s.authHeaders = append(s.authHeaders, r.Header.Get("Authorization"))
		s.requestIDs = append(s.requestIDs, r.Header.Get("X-Request-ID"))
		deny := s.alwaysDeny
		s.mu.Unlock()

		if deny || r.Header.Get("Authorization") != "Bearer valid" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":"jwt_auth_invalid_token","message":"Expired token"}`)
			return
		}
		w.Header().Set("X-WP-Total", "42")
		w.Header().Set("X-WP-TotalPages", "3")
		_, _ = io.WriteString(w, `[{"id":1,"name":"Kettle"}]`)
	})
	mux.HandleFunc("/wp-json/wc/v3/products/brands", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"term_exists","message":"A term with the name provided already exists."}`)
	})
	return mux
}

func newTestGateway(t *testing.T, srv *httptest.Server, store credstore.Store, opts ...Option) *Gateway {
	t.Helper()
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	g, err := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, store, opts...)
	require.NoError(t, err)
	return g
}

func seed(t *testing.T, store credstore.Store, token, refresh string) {
	t.Helper()
	ctx := context.Background()
	if token != "" {
		require.NoError(t, store.Set(ctx, credstore.TokenKey, token, credstore.TokenTTL))
	}
	if refresh != "" {
		require.NoError(t, store.Set(ctx, credstore.RefreshTokenKey, refresh, 0))
	}
}

func TestNew_ValidatesBaseURL(t *testing.T) {
	_, err := New(Config{}, credstore.NewMemoryStore())
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigMissing))

	_, err = New(Config{BaseURL: "shop.example.com"}, credstore.NewMemoryStore())
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
}

func TestDo_StampsBearerAndPagination(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	store := credstore.NewMemoryStore()
	seed(t, store, "valid", "")
	g := newTestGateway(t, srv, store)

	var items []map[string]any
	resp, err := g.DoJSON(context.Background(), Get("/wp-json/wc/v3/products", nil), &items)
	require.NoError(t, err)

	assert.Len(t, items, 1)
	assert.Equal(t, []string{"Bearer valid"}, ts.counts().authHeaders)
	assert.NotEmpty(t, ts.counts().requestIDs[0])
	assert.Equal(t, Pagination{Total: 42, TotalPages: 3, Known: true}, resp.Pagination())
}

func TestDo_ReadsTokenAtSendTime(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	store := credstore.NewMemoryStore()
	g := newTestGateway(t, srv, store)

	seed(t, store, "valid", "")
	_, err := g.Do(context.Background(), Get("/wp-json/wc/v3/products", nil))
	require.NoError(t, err)
	assert.Equal(t, "Bearer valid", ts.counts().authHeaders[0])
}

func TestDo_AnonymousSkipsBearerAndRefresh(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	store := credstore.NewMemoryStore()
	seed(t, store, "valid", "refresh-ok")
	g := newTestGateway(t, srv, store)

	_, err := g.Do(context.Background(), Request{Method: http.MethodGet, Path: "/wp-json/wc/v3/products", Anonymous: true})
	require.Error(t, err)

	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.Equal(t, []string{""}, ts.counts().authHeaders)
	assert.Zero(t, ts.counts().refreshHits)

	token, err := store.Get(context.Background(), credstore.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "valid", token, "anonymous 401 must not clear credentials")
}

func TestDo_RefreshesOnceAndRetries(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	store := credstore.NewMemoryStore()
	seed(t, store, "stale", "refresh-ok")
	_, m := metrics.NewRegistry()
	g := newTestGateway(t, srv, store, WithMetrics(m))

	_, err := g.Do(context.Background(), Get("/wp-json/wc/v3/products", nil))
	require.NoError(t, err)

	assert.Equal(t, 1, ts.counts().refreshHits)
	assert.Equal(t, []string{"Bearer stale", "Bearer valid"}, ts.counts().authHeaders)
	assert.Equal(t, ts.counts().requestIDs[0], ts.counts().requestIDs[1], "retry keeps the request id")

	token, err := store.Get(context.Background(), credstore.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "valid", token)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenRefreshes.WithLabelValues("success")))
}

func TestDo_SecondUnauthorizedExpiresSession(t *testing.T) {
	ts := &tokenServer{alwaysDeny: true}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	store := credstore.NewMemoryStore()
	seed(t, store, "valid", "refresh-ok")
	require.NoError(t, store.Set(context.Background(), credstore.ReturnToKey, "brands reorder", 0))

	var notified int32
	g := newTestGateway(t, srv, store)
	g.OnAuthExpired(func(context.Context) { atomic.AddInt32(&notified, 1) })

	_, err := g.Do(context.Background(), Get("/wp-json/wc/v3/products", nil))
	require.Error(t, err)

	assert.True(t, errors.HasCode(err, errors.ErrCodeAuthExpired))
	assert.Equal(t, 1, ts.counts().refreshHits, "a retried request never refreshes again")
	assert.Equal(t, 2, ts.counts().apiCalls)
	assert.Equal(t, int32(1), atomic.LoadInt32(&notified))

	_, err = store.Get(context.Background(), credstore.TokenKey)
	assert.ErrorIs(t, err, credstore.ErrNotFound)
	_, err = store.Get(context.Background(), credstore.RefreshTokenKey)
	assert.ErrorIs(t, err, credstore.ErrNotFound)
	_, err = store.Get(context.Background(), credstore.ReturnToKey)
	assert.NoError(t, err)
}

func TestDo_NoRefreshTokenIsUnrecoverable(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	store := credstore.NewMemoryStore()
	seed(t, store, "stale", "")
	g := newTestGateway(t, srv, store)

	_, err := g.Do(context.Background(), Get("/wp-json/wc/v3/products", nil))

	assert.True(t, errors.HasCode(err, errors.ErrCodeAuthExpired))
	assert.Zero(t, ts.counts().refreshHits)
	assert.Equal(t, 1, ts.counts().apiCalls)
	_, err = store.Get(context.Background(), credstore.TokenKey)
	assert.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestDo_RefreshFailureExpiresSession(t *testing.T) {
	ts := &tokenServer{refreshCode: http.StatusForbidden}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	store := credstore.NewMemoryStore()
	seed(t, store, "stale", "refresh-ok")
	_, m := metrics.NewRegistry()
	g := newTestGateway(t, srv, store, WithMetrics(m))

	_, err := g.Do(context.Background(), Get("/wp-json/wc/v3/products", nil))

	assert.True(t, errors.HasCode(err, errors.ErrCodeAuthExpired))
	assert.Equal(t, http.StatusForbidden, StatusOf(err))
	assert.Equal(t, 1, ts.counts().apiCalls, "the original request is not retried without a new token")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenRefreshes.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthExpirations))
}

func TestDo_ConcurrentUnauthorizedRetryAtMostOnce(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	store := credstore.NewMemoryStore()
	seed(t, store, "stale", "refresh-ok")
	g := newTestGateway(t, srv, store)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Do(context.Background(), Get("/wp-json/wc/v3/products", nil))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, ts.counts().apiCalls, 2*n)
	assert.GreaterOrEqual(t, ts.counts().refreshHits, 1)
	assert.LessOrEqual(t, ts.counts().refreshHits, n)
}

func TestDo_NonUnauthorizedErrorsPassThrough(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	store := credstore.NewMemoryStore()
	seed(t, store, "valid", "refresh-ok")
	g := newTestGateway(t, srv, store)

	_, err := g.Do(context.Background(), Post("/wp-json/wc/v3/products/brands", map[string]string{"name": "Acme"}))
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "term_exists", apiErr.Code)
	assert.Equal(t, "A term with the name provided already exists.", errors.UserMessage(err, "Failed to save brand"))
	assert.Zero(t, ts.counts().refreshHits)
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	g := newTestGateway(t, srv, credstore.NewMemoryStore())
	srv.Close()

	_, err := g.Do(context.Background(), Get("/wp-json/wc/v3/products", nil))
	assert.True(t, errors.HasCode(err, errors.ErrCodeNetwork))
}

func TestDo_MultipartUpload(t *testing.T) {
	var gotName, gotType string
	var gotContent []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotType = header.Header.Get("Content-Type")
		gotContent, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 9, "source_url": "https://cdn.test/logo.png"})
	}))
	defer srv.Close()

	g := newTestGateway(t, srv, credstore.NewMemoryStore())

	var out struct {
		ID        int    `json:"id"`
		SourceURL string `json:"source_url"`
	}
	_, err := g.DoJSON(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/wp-json/wp/v2/media",
		File:   &File{Name: "logo.png", ContentType: "image/png", Content: []byte("png-bytes")},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "logo.png", gotName)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, []byte("png-bytes"), gotContent)
	assert.Equal(t, 9, out.ID)
}

func TestResponse_PaginationMissingHeaders(t *testing.T) {
	resp := &Response{Header: http.Header{}}
	assert.False(t, resp.Pagination().Known)
}

func TestResponse_DecodeError(t *testing.T) {
	resp := &Response{Body: []byte("not json")}
	var v map[string]any
	assert.True(t, errors.HasCode(resp.Decode(&v), errors.ErrCodeDecode))
}
