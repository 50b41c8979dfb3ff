package guard

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/twcadmin/internal/credstore"
	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/gateway"
	"github.com/felixgeelhaar/twcadmin/internal/metrics"
	"github.com/felixgeelhaar/twcadmin/internal/session"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
	"github.com/felixgeelhaar/twcadmin/internal/wptest"
)

type fakeSession struct {
	mu        sync.Mutex
	snap      session.Snapshot
	tokenErr  error
	validated int
	loggedOut int
	returnTo  string
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) CheckToken(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validated++
	return f.tokenErr
}

func (f *fakeSession) Logout(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut++
	f.snap = session.Snapshot{State: session.StateUnauthenticated}
}

func (f *fakeSession) SetReturnTo(_ context.Context, location string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.returnTo = location
}

func signedIn(profile session.UserProfile) *fakeSession {
	return &fakeSession{
		snap: session.Snapshot{State: session.StateAuthenticated, Token: "jwt", User: &profile},
	}
}

var (
	admin = session.UserProfile{
		Username:     "admin",
		Roles:        []string{"administrator"},
		Capabilities: map[string]bool{"manage_options": true, "edit_products": true},
	}
	shopManager = session.UserProfile{
		Username:     "sm",
		Roles:        []string{"shop_manager"},
		Capabilities: map[string]bool{"edit_products": true},
	}
	customer = session.UserProfile{Username: "c", Roles: []string{"customer"}}
)

func TestCheckPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		session *fakeSession
		req     Requirements
		want    Outcome
	}{
		{"loading waits", &fakeSession{snap: session.Snapshot{State: session.StateLoading}}, Requirements{RequireAdmin: true}, Pending},
		{"anonymous goes to sign in", &fakeSession{}, Requirements{}, RedirectSignIn},
		{"token without user is anonymous", &fakeSession{snap: session.Snapshot{State: session.StateAuthenticated, Token: "jwt"}}, Requirements{}, RedirectSignIn},
		{"any user passes empty requirements", signedIn(customer), Requirements{}, Allow},
		{"admin allowed", signedIn(admin), Requirements{RequireAdmin: true}, Allow},
		{"non admin demoted", signedIn(shopManager), Requirements{RequireAdmin: true}, RedirectRoot},
		{"capability held", signedIn(shopManager), Requirements{RequireCapability: "edit_products"}, Allow},
		{"capability missing", signedIn(customer), Requirements{RequireCapability: "edit_products"}, RedirectRoot},
		{"one of roles", signedIn(shopManager), Requirements{RequireRoles: []string{"administrator", "shop_manager"}}, Allow},
		{"no matching role", signedIn(customer), Requirements{RequireRoles: []string{"shop_manager"}}, RedirectRoot},
		{"admin checked before role", signedIn(shopManager), Requirements{RequireAdmin: true, RequireRoles: []string{"shop_manager"}}, RedirectRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.session)
			d := g.Check(context.Background(), tt.req, "brands list")
			g.Wait()
			assert.Equal(t, tt.want, d.Outcome)
		})
	}
}

func TestRedirectSignInRemembersLocation(t *testing.T) {
	s := &fakeSession{}
	g := New(s)

	d := g.Check(context.Background(), Requirements{}, "homepage reorder")

	assert.Equal(t, RedirectSignIn, d.Outcome)
	assert.Equal(t, SignInPath, d.Redirect)
	assert.Equal(t, "homepage reorder", d.ReturnTo)
	assert.Equal(t, "homepage reorder", s.returnTo)
}

func TestRedirectRootCarriesNoReturnLocation(t *testing.T) {
	s := signedIn(customer)
	g := New(s)

	d := g.Check(context.Background(), Requirements{RequireAdmin: true}, "users list")

	assert.Equal(t, RootPath, d.Redirect)
	assert.Empty(t, d.ReturnTo)
	assert.Empty(t, s.returnTo)
	assert.Zero(t, s.validated, "denied checks are not revalidated")
}

func TestRevalidationLogsOutOnRejection(t *testing.T) {
	s := signedIn(admin)
	s.tokenErr = errors.NewAuthExpiredError(nil)
	g := New(s)

	d := g.Check(context.Background(), Requirements{RequireAdmin: true}, "users list")
	g.Wait()

	assert.Equal(t, Allow, d.Outcome, "the admitted check stands")
	assert.Equal(t, 1, s.validated)
	assert.Equal(t, 1, s.loggedOut)
	assert.False(t, s.Snapshot().IsAuthenticated())
}

func TestRevalidationIgnoresServerFailures(t *testing.T) {
	cases := map[string]error{
		"unavailable":  &gateway.APIError{StatusCode: http.StatusServiceUnavailable},
		"rate limited": &gateway.APIError{StatusCode: http.StatusForbidden, Code: "rate_limited"},
		"network":      errors.NewNetworkError("POST /token/validate", stderrors.New("connection reset")),
	}
	for name, tokenErr := range cases {
		t.Run(name, func(t *testing.T) {
			s := signedIn(admin)
			s.tokenErr = tokenErr
			g := New(s)

			g.Check(context.Background(), Requirements{}, "dashboard")
			g.Wait()

			assert.Equal(t, 1, s.validated)
			assert.Zero(t, s.loggedOut)
			assert.True(t, s.Snapshot().IsAuthenticated())
		})
	}
}

func TestRevalidationKeepsSessionWhenValidateIsDown(t *testing.T) {
	srv := wptest.New(t)
	srv.AddUser("admin", "secret", wpapi.User{
		Roles:        []string{"administrator"},
		Capabilities: wpapi.Capabilities{"manage_options": true},
	})
	ctx := context.Background()
	store := credstore.NewMemoryStore()
	token, refresh := srv.Token("admin")
	require.NoError(t, store.Set(ctx, credstore.TokenKey, token, credstore.TokenTTL))
	require.NoError(t, store.Set(ctx, credstore.RefreshTokenKey, refresh, 0))

	gw, err := gateway.New(gateway.Config{BaseURL: srv.URL}, store)
	require.NoError(t, err)
	mgr := session.NewManager(wpapi.New(gw), store)
	gw.OnAuthExpired(mgr.HandleAuthExpired)
	mgr.Bootstrap(ctx)
	require.True(t, mgr.IsAuthenticated())

	srv.FailAlways(http.MethodPost, wpapi.PathTokenValidate, http.StatusServiceUnavailable)
	g := New(mgr)
	d := g.Check(ctx, Requirements{RequireAdmin: true}, "users list")
	g.Wait()

	assert.Equal(t, Allow, d.Outcome)
	assert.True(t, mgr.IsAuthenticated())
	stored, err := store.Get(ctx, credstore.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, token, stored)
}

func TestRevalidationKeepsValidSession(t *testing.T) {
	s := signedIn(admin)
	g := New(s)

	g.Check(context.Background(), Requirements{}, "dashboard")
	g.Wait()

	assert.Equal(t, 1, s.validated)
	assert.Zero(t, s.loggedOut)
}

func TestRevalidationDisabled(t *testing.T) {
	s := signedIn(admin)
	g := New(s, WithRevalidation(false))

	g.Check(context.Background(), Requirements{}, "dashboard")
	g.Wait()

	assert.Zero(t, s.validated)
}

func TestCheckRecordsMetrics(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	g := New(&fakeSession{}, WithMetrics(m))

	g.Check(context.Background(), Requirements{}, "dashboard")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisions.WithLabelValues("redirect_signin")))
}

func TestDecisionErr(t *testing.T) {
	req := Requirements{RequireAdmin: true}

	assert.NoError(t, Decision{Outcome: Allow}.Err(req, "users list"))

	err := Decision{Outcome: RedirectSignIn}.Err(req, "users list")
	assert.True(t, errors.HasCode(err, errors.ErrCodeAuthRequired))

	err = Decision{Outcome: RedirectRoot}.Err(req, "users list")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAuthForbidden))
	assert.Contains(t, err.Error(), "administrator")
}

func TestRequirementsFor(t *testing.T) {
	root := &cobra.Command{Use: "twcadmin"}
	users := Protect(&cobra.Command{Use: "users"}, Requirements{RequireAdmin: true})
	list := &cobra.Command{Use: "list"}
	products := Protect(&cobra.Command{Use: "products"}, Requirements{RequireRoles: []string{"administrator", "shop_manager"}})
	version := Public(&cobra.Command{Use: "version"})
	dashboard := &cobra.Command{Use: "dashboard"}
	users.AddCommand(list)
	root.AddCommand(users, products, version, dashboard)

	req, public := RequirementsFor(list)
	assert.False(t, public)
	assert.True(t, req.RequireAdmin, "inherited from parent")

	req, _ = RequirementsFor(products)
	assert.Equal(t, []string{"administrator", "shop_manager"}, req.RequireRoles)

	_, public = RequirementsFor(version)
	assert.True(t, public)

	req, public = RequirementsFor(dashboard)
	assert.False(t, public)
	assert.Equal(t, Requirements{}, req)

	auth := &cobra.Command{Use: "auth"}
	whoami := Authenticated(&cobra.Command{Use: "whoami"})
	logout := Public(&cobra.Command{Use: "logout"})
	auth.AddCommand(whoami, logout)
	root.AddCommand(auth)

	req, public = RequirementsFor(whoami)
	assert.False(t, public)
	assert.Equal(t, Requirements{}, req)

	_, public = RequirementsFor(logout)
	assert.True(t, public)

	_, public = RequirementsFor(auth)
	assert.False(t, public, "undeclared commands need a session")

	_, public = RequirementsFor(root)
	assert.False(t, public)

	assert.Equal(t, "users list", Location(list))
	assert.Equal(t, RootPath, Location(root))
}

func TestRequirementsForCobraBuiltins(t *testing.T) {
	root := &cobra.Command{Use: "twcadmin"}
	help := &cobra.Command{Use: "help"}
	completion := &cobra.Command{Use: "completion"}
	bash := &cobra.Command{Use: "bash"}
	complete := &cobra.Command{Use: cobra.ShellCompRequestCmd}
	completion.AddCommand(bash)
	root.AddCommand(help, completion, complete)

	for _, c := range []*cobra.Command{help, bash, complete} {
		_, public := RequirementsFor(c)
		assert.True(t, public, c.CommandPath())
	}
}
