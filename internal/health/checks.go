package health

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/felixgeelhaar/twcadmin/internal/credstore"
	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/session"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

// Discoverer reads the store's API index.
type Discoverer interface {
	Discover(ctx context.Context) (*wpapi.SiteIndex, error)
}

// TokenValidator asks the store whether the stored bearer is accepted.
type TokenValidator interface {
	ValidateToken(ctx context.Context) bool
}

// StoreChecker verifies the API is reachable and serves every namespace the
// tool calls.
type StoreChecker struct {
	api Discoverer
}

// NewStoreChecker creates a checker over api.
func NewStoreChecker(api Discoverer) *StoreChecker {
	return &StoreChecker{api: api}
}

// Name returns "store".
func (c *StoreChecker) Name() string { return "store" }

// Check reads the API index.
func (c *StoreChecker) Check(ctx context.Context) *Result {
	idx, err := c.api.Discover(ctx)
	if err != nil {
		return Unhealthy(errors.UserMessage(err, "store unreachable")).
			WithDetail("error", err.Error())
	}
	if missing := idx.MissingNamespaces(); len(missing) > 0 {
		return Degraded("missing API namespaces: "+strings.Join(missing, ", ")).
			WithDetail("site", idx.Name)
	}
	return Healthy(idx.Name+" serves every required namespace").
		WithDetail("site", idx.Name).
		WithDetail("namespaces", len(idx.Namespaces))
}

// CredentialsChecker verifies the credential store is readable and reports
// the stored bearer's expiry.
type CredentialsChecker struct {
	store credstore.Store
	now   func() time.Time
}

// NewCredentialsChecker creates a checker over store.
func NewCredentialsChecker(store credstore.Store) *CredentialsChecker {
	return &CredentialsChecker{store: store, now: time.Now}
}

// Name returns "credentials".
func (c *CredentialsChecker) Name() string { return "credentials" }

// Check reads the stored tokens without contacting the store.
func (c *CredentialsChecker) Check(ctx context.Context) *Result {
	token, err := c.store.Get(ctx, credstore.TokenKey)
	switch {
	case stderrors.Is(err, credstore.ErrNotFound):
		return Degraded("not signed in")
	case err != nil:
		return Unhealthy("credential store unreadable").WithDetail("error", err.Error())
	}

	_, refreshErr := c.store.Get(ctx, credstore.RefreshTokenKey)
	hasRefresh := refreshErr == nil

	exp, ok := session.TokenExpiry(token)
	if !ok {
		return Healthy("token stored").WithDetail("refresh_token", hasRefresh)
	}
	if exp.Before(c.now()) {
		if hasRefresh {
			return Degraded("token expired " + humanize.Time(exp) + "; it is refreshed on the next request").
				WithDetail("expires_at", exp)
		}
		return Unhealthy("token expired " + humanize.Time(exp) + "; sign in again").
			WithDetail("expires_at", exp)
	}
	return Healthy("token expires "+humanize.Time(exp)).
		WithDetail("expires_at", exp).
		WithDetail("refresh_token", hasRefresh)
}

// SessionChecker asks the store to validate the stored bearer.
type SessionChecker struct {
	store     credstore.Store
	validator TokenValidator
}

// NewSessionChecker creates a checker that validates through v.
func NewSessionChecker(store credstore.Store, v TokenValidator) *SessionChecker {
	return &SessionChecker{store: store, validator: v}
}

// Name returns "session".
func (c *SessionChecker) Name() string { return "session" }

// Check validates the bearer. Without one there is nothing to validate.
func (c *SessionChecker) Check(ctx context.Context) *Result {
	if _, err := c.store.Get(ctx, credstore.TokenKey); err != nil {
		return Degraded("skipped: not signed in")
	}
	if !c.validator.ValidateToken(ctx) {
		return Unhealthy("the store rejected the stored session; sign in again")
	}
	return Healthy("the store accepts the stored session")
}
