package health

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/twcadmin/internal/credstore"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

type stubChecker struct {
	name   string
	result *Result
	delay  time.Duration
}

func (s *stubChecker) Name() string { return s.name }

func (s *stubChecker) Check(ctx context.Context) *Result {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Unhealthy("check cancelled")
		}
	}
	return s.result
}

type stubDiscoverer struct {
	idx *wpapi.SiteIndex
	err error
}

func (s stubDiscoverer) Discover(context.Context) (*wpapi.SiteIndex, error) { return s.idx, s.err }

type stubValidator bool

func (v stubValidator) ValidateToken(context.Context) bool { return bool(v) }

func bearer(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func TestManagerKeepsRegistrationOrder(t *testing.T) {
	m := NewManager()
	m.AddChecker(&stubChecker{name: "slow", result: Healthy("ok"), delay: 20 * time.Millisecond})
	m.AddChecker(&stubChecker{name: "fast", result: Degraded("meh")})

	reports := m.Check(context.Background())
	require.Len(t, reports, 2)
	assert.Equal(t, "slow", reports[0].Name)
	assert.Equal(t, "fast", reports[1].Name)
	assert.Positive(t, reports[0].Latency)
	assert.Equal(t, StatusDegraded, Overall(reports))
}

func TestManagerTimeout(t *testing.T) {
	m := NewManager().WithTimeout(10 * time.Millisecond)
	m.AddChecker(&stubChecker{name: "hang", result: Healthy("never"), delay: time.Second})
	m.AddChecker(&stubChecker{name: "nil"})

	reports := m.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, reports[0].Status)
	assert.Equal(t, "check returned no result", reports[1].Message)
}

func TestOverall(t *testing.T) {
	assert.Equal(t, StatusHealthy, Overall(nil))
	assert.Equal(t, StatusUnhealthy, Overall([]Report{
		{Name: "a", Result: Degraded("")},
		{Name: "b", Result: Unhealthy("")},
	}))
}

func TestStoreChecker(t *testing.T) {
	ctx := context.Background()

	r := NewStoreChecker(stubDiscoverer{idx: &wpapi.SiteIndex{
		Name:       "Shop",
		Namespaces: []string{"jwt-auth/v1", "wp/v2", "wc/v3"},
	}}).Check(ctx)
	assert.Equal(t, StatusHealthy, r.Status)

	r = NewStoreChecker(stubDiscoverer{idx: &wpapi.SiteIndex{Name: "Shop", Namespaces: []string{"wp/v2"}}}).Check(ctx)
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Contains(t, r.Message, "jwt-auth/v1, wc/v3")

	r = NewStoreChecker(stubDiscoverer{err: stderrors.New("dial tcp: refused")}).Check(ctx)
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Equal(t, "dial tcp: refused", r.Details["error"])
}

func TestCredentialsChecker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   string
		refresh string
		want    Status
	}{
		{name: "not signed in", want: StatusDegraded},
		{name: "valid", token: bearer(t, now.Add(time.Hour)), want: StatusHealthy},
		{name: "expired with refresh", token: bearer(t, now.Add(-time.Hour)), refresh: "r", want: StatusDegraded},
		{name: "expired without refresh", token: bearer(t, now.Add(-time.Hour)), want: StatusUnhealthy},
		{name: "opaque token", token: "opaque", want: StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := credstore.NewMemoryStore()
			if tt.token != "" {
				require.NoError(t, store.Set(ctx, credstore.TokenKey, tt.token, 0))
			}
			if tt.refresh != "" {
				require.NoError(t, store.Set(ctx, credstore.RefreshTokenKey, tt.refresh, 0))
			}
			c := NewCredentialsChecker(store)
			c.now = func() time.Time { return now }

			assert.Equal(t, tt.want, c.Check(ctx).Status)
		})
	}
}

func TestSessionChecker(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemoryStore()

	assert.Equal(t, StatusDegraded, NewSessionChecker(store, stubValidator(true)).Check(ctx).Status)

	require.NoError(t, store.Set(ctx, credstore.TokenKey, "t", 0))
	assert.Equal(t, StatusHealthy, NewSessionChecker(store, stubValidator(true)).Check(ctx).Status)
	assert.Equal(t, StatusUnhealthy, NewSessionChecker(store, stubValidator(false)).Check(ctx).Status)
}
