// Package guard decides whether a protected location may be entered.
package guard

import (
	"context"
	"strings"
	"sync"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/log"
	"github.com/felixgeelhaar/twcadmin/internal/metrics"
	"github.com/felixgeelhaar/twcadmin/internal/session"
)

// Redirect targets.
const (
	SignInPath = "/auth/signin"
	RootPath   = "/"
)

// Outcome is the result of a check.
type Outcome int

const (
	Pending Outcome = iota
	Allow
	RedirectSignIn
	RedirectRoot
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectSignIn:
		return "redirect_signin"
	case RedirectRoot:
		return "redirect_root"
	default:
		return "pending"
	}
}

// Requirements describe what a location needs. The zero value only needs a
// signed-in user.
type Requirements struct {
	RequireAdmin      bool
	RequireCapability string
	RequireRoles      []string
}

func (r Requirements) String() string {
	var parts []string
	if r.RequireAdmin {
		parts = append(parts, "administrator")
	}
	if r.RequireCapability != "" {
		parts = append(parts, "capability "+r.RequireCapability)
	}
	if len(r.RequireRoles) > 0 {
		parts = append(parts, "role "+strings.Join(r.RequireRoles, " or "))
	}
	if len(parts) == 0 {
		return "a signed-in user"
	}
	return strings.Join(parts, ", ")
}

// Decision is the guard's answer for one check.
type Decision struct {
	Outcome  Outcome
	Redirect string
	ReturnTo string
}

// Session is what the guard reads and acts on.
type Session interface {
	Snapshot() session.Snapshot
	CheckToken(ctx context.Context) error
	Logout(ctx context.Context)
	SetReturnTo(ctx context.Context, location string)
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// WithMetrics records decisions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// WithRevalidation toggles the background token check. It is on by default.
func WithRevalidation(enabled bool) Option {
	return func(g *Guard) { g.revalidate = enabled }
}

// Guard checks sessions against requirements.
type Guard struct {
	session    Session
	logger     *log.Logger
	metrics    *metrics.Metrics
	revalidate bool

	wg sync.WaitGroup
}

// New creates a guard over s.
func New(s Session, opts ...Option) *Guard {
	g := &Guard{
		session:    s,
		logger:     log.Discard(),
		revalidate: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check evaluates req for location. Rules apply in order: loading sessions
// wait, anonymous users are sent to sign in with location remembered, then
// admin, capability and role requirements each demote to the root.
func (g *Guard) Check(ctx context.Context, req Requirements, location string) Decision {
	d := g.decide(ctx, req, location)
	g.metrics.ObserveGuard(d.Outcome.String())
	g.logger.DebugContext(ctx, "guard decision",
		"location", location,
		"outcome", d.Outcome.String(),
		"requires", req.String(),
	)
	return d
}

func (g *Guard) decide(ctx context.Context, req Requirements, location string) Decision {
	snap := g.session.Snapshot()

	if snap.State == session.StateLoading {
		return Decision{Outcome: Pending}
	}
	if !snap.IsAuthenticated() {
		g.session.SetReturnTo(ctx, location)
		return Decision{Outcome: RedirectSignIn, Redirect: SignInPath, ReturnTo: location}
	}

	user := snap.User
	if req.RequireAdmin && !user.IsAdmin() {
		return Decision{Outcome: RedirectRoot, Redirect: RootPath}
	}
	if req.RequireCapability != "" && !user.Can(req.RequireCapability) {
		return Decision{Outcome: RedirectRoot, Redirect: RootPath}
	}
	if len(req.RequireRoles) > 0 && !user.HasAnyRole(req.RequireRoles...) {
		return Decision{Outcome: RedirectRoot, Redirect: RootPath}
	}

	if g.revalidate {
		g.startRevalidation(ctx)
	}
	return Decision{Outcome: Allow}
}

// startRevalidation confirms the token with the server in the background and
// signs out if the token is rejected. A server that cannot answer leaves the
// session alone. The admitted location is not withdrawn.
func (g *Guard) startRevalidation(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		err := g.session.CheckToken(ctx)
		switch {
		case err == nil:
			return
		case session.Rejected(err):
			g.logger.WarnContext(ctx, "token rejected on revalidation; signing out")
			g.metrics.ObserveGuard("revalidation_failed")
			g.session.Logout(ctx)
		default:
			g.logger.WarnContext(ctx, "could not revalidate token; keeping session", "error", err)
			g.metrics.ObserveGuard("revalidation_skipped")
		}
	}()
}

// Wait blocks until background revalidations have finished.
func (g *Guard) Wait() {
	g.wg.Wait()
}

// Err maps a decision to the error a command reports. Allow maps to nil.
func (d Decision) Err(req Requirements, location string) error {
	switch d.Outcome {
	case Allow:
		return nil
	case RedirectSignIn:
		return errors.NewAuthRequiredError(location)
	case RedirectRoot:
		return errors.NewForbiddenError(location, req.String()).
			WithSuggestion("The web admin silently returns to the dashboard in this case")
	default:
		return errors.New(errors.ErrCodeAuthRequired, "session is still loading")
	}
}
