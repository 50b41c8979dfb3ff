// Package session tracks who is signed in.
//
// A Manager owns the in-memory view of the bearer token and the user profile
// and keeps it in step with the credential store. It is the only writer of the
// bearer token apart from the gateway's refresh path.
package session

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/twcadmin/internal/credstore"
	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/gateway"
	"github.com/felixgeelhaar/twcadmin/internal/log"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

// LoginFailedMessage is shown when the server gives no reason for a failed login.
const LoginFailedMessage = "Login failed. Please check your credentials."

// State is the session lifecycle state.
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// API is the part of the store API the session needs.
type API interface {
	IssueToken(ctx context.Context, username, password string) (*wpapi.Token, error)
	ValidateToken(ctx context.Context) error
	CurrentUser(ctx context.Context) (*wpapi.User, error)
}

// Snapshot is a consistent copy of the session.
type Snapshot struct {
	State State        `json:"state" yaml:"state"`
	Token string       `json:"-" yaml:"-"`
	User  *UserProfile `json:"user,omitempty" yaml:"user,omitempty"`
}

// IsAuthenticated holds only when both a token and a user are present.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithTokenTTL overrides the lifetime given to stored bearer tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// Manager holds the session state.
type Manager struct {
	api    API
	store  credstore.Store
	logger *log.Logger
	ttl    time.Duration

	mu    sync.RWMutex
	state State
	token string
	user  *UserProfile
}

// NewManager creates an unauthenticated manager. Call Bootstrap to pick up
// stored credentials.
func NewManager(api API, store credstore.Store, opts ...Option) *Manager {
	m := &Manager{
		api:    api,
		store:  store,
		logger: log.Discard(),
		ttl:    credstore.TokenTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the current session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{State: m.state, Token: m.token}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// IsAuthenticated reports whether a token and user are both held.
func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().IsAuthenticated()
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Bootstrap restores a stored session. It never fails: any problem leaves the
// session unauthenticated with both stored tokens removed.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.set(StateLoading, "", nil)

	token, err := m.store.Get(ctx, credstore.TokenKey)
	if err != nil {
		if !stderrors.Is(err, credstore.ErrNotFound) {
			m.logger.WarnContext(ctx, "credential store unreadable", "error", err)
		}
		m.set(StateUnauthenticated, "", nil)
		return
	}

	if err := m.api.ValidateToken(ctx); err != nil {
		m.logger.InfoContext(ctx, "stored token rejected", "error", err)
		m.drop(ctx)
		return
	}

	u, err := m.api.CurrentUser(ctx)
	if err != nil {
		m.logger.InfoContext(ctx, "could not load current user", "error", err)
		m.drop(ctx)
		return
	}

	// A refresh during validation may have replaced the bearer.
	if current, err := m.store.Get(ctx, credstore.TokenKey); err == nil {
		token = current
	}
	profile := ProfileFromUser(*u)
	m.set(StateAuthenticated, token, &profile)
	m.logger.DebugContext(ctx, "session restored", "user", profile.Username)
}

// Login signs in with a username or email and password. On failure the
// previous session is left exactly as it was.
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	prev := m.Snapshot()
	prevCreds := m.readCredentials(ctx)
	m.set(StateLoading, prev.Token, prev.User)

	fail := func(cause error) error {
		m.restoreCredentials(ctx, prevCreds)
		m.set(prev.State, prev.Token, prev.User)
		return errors.NewAuthInvalidError(errors.UserMessage(cause, LoginFailedMessage), cause)
	}

	tok, err := m.api.IssueToken(ctx, identifier, secret)
	if err != nil {
		m.logger.InfoContext(ctx, "login rejected", "identifier", identifier, "error", err)
		return fail(err)
	}
	if tok.Token == "" {
		return fail(nil)
	}

	if err := m.store.Set(ctx, credstore.TokenKey, tok.Token, m.ttl); err != nil {
		return fail(err)
	}
	if tok.RefreshToken != "" {
		if err := m.store.Set(ctx, credstore.RefreshTokenKey, tok.RefreshToken, 0); err != nil {
			return fail(err)
		}
	} else if err := m.store.Delete(ctx, credstore.RefreshTokenKey); err != nil {
		return fail(err)
	}

	u, err := m.api.CurrentUser(ctx)
	if err != nil {
		return fail(err)
	}

	profile := ProfileFromUser(*u)
	m.set(StateAuthenticated, tok.Token, &profile)
	m.logger.InfoContext(ctx, "signed in", "user", profile.Username)
	return nil
}

// Logout drops the session locally. The server is not contacted.
func (m *Manager) Logout(ctx context.Context) {
	m.drop(ctx)
	m.logger.InfoContext(ctx, "signed out")
}

// ValidateToken asks the server whether the stored token is still good.
func (m *Manager) ValidateToken(ctx context.Context) bool {
	return m.CheckToken(ctx) == nil
}

// CheckToken is ValidateToken with the server's answer kept. Use Rejected to
// tell a refused token from a server that could not answer.
func (m *Manager) CheckToken(ctx context.Context) error {
	return m.api.ValidateToken(ctx)
}

// Rejected reports whether err means the token itself was refused: an
// unrecoverable 401 or a jwt-auth 403. Outages, rate limits and other remote
// errors are not rejections.
func Rejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.HasCode(err, errors.ErrCodeAuthExpired) {
		return true
	}
	var apiErr *gateway.APIError
	if !stderrors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return strings.HasPrefix(apiErr.Code, "jwt_auth")
	default:
		return false
	}
}

// RefreshUser reloads the user profile.
func (m *Manager) RefreshUser(ctx context.Context) error {
	u, err := m.api.CurrentUser(ctx)
	if err != nil {
		return err
	}
	profile := ProfileFromUser(*u)

	m.mu.Lock()
	m.user = &profile
	m.mu.Unlock()
	return nil
}

// HandleAuthExpired is registered with the gateway. The gateway has already
// cleared the stored tokens.
func (m *Manager) HandleAuthExpired(ctx context.Context) {
	m.set(StateUnauthenticated, "", nil)
	m.logger.WarnContext(ctx, "session expired")
}

// ReturnTo returns the location captured when sign-in was demanded.
func (m *Manager) ReturnTo(ctx context.Context) string {
	loc, err := m.store.Get(ctx, credstore.ReturnToKey)
	if err != nil {
		return ""
	}
	return loc
}

// SetReturnTo records where to go after signing in.
func (m *Manager) SetReturnTo(ctx context.Context, location string) {
	if err := m.store.Set(ctx, credstore.ReturnToKey, location, 0); err != nil {
		m.logger.WarnContext(ctx, "could not store return location", "error", err)
	}
}

// ConsumeReturnTo returns the captured location and forgets it.
func (m *Manager) ConsumeReturnTo(ctx context.Context) string {
	loc := m.ReturnTo(ctx)
	if loc != "" {
		if err := m.store.Delete(ctx, credstore.ReturnToKey); err != nil {
			m.logger.WarnContext(ctx, "could not clear return location", "error", err)
		}
	}
	return loc
}

func (m *Manager) set(state State, token string, user *UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.token = token
	m.user = user
}

func (m *Manager) drop(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.WarnContext(ctx, "could not clear credentials", "error", err)
	}
	m.set(StateUnauthenticated, "", nil)
}

type storedCredentials struct {
	token, refresh string
}

func (m *Manager) readCredentials(ctx context.Context) storedCredentials {
	var c storedCredentials
	c.token, _ = m.store.Get(ctx, credstore.TokenKey)
	c.refresh, _ = m.store.Get(ctx, credstore.RefreshTokenKey)
	return c
}

func (m *Manager) restoreCredentials(ctx context.Context, c storedCredentials) {
	var err error
	if c.token != "" {
		err = m.store.Set(ctx, credstore.TokenKey, c.token, m.ttl)
	} else {
		err = m.store.Delete(ctx, credstore.TokenKey)
	}
	if err == nil {
		if c.refresh != "" {
			err = m.store.Set(ctx, credstore.RefreshTokenKey, c.refresh, 0)
		} else {
			err = m.store.Delete(ctx, credstore.RefreshTokenKey)
		}
	}
	if err != nil {
		m.logger.WarnContext(ctx, "could not restore credentials", "error", err)
	}
}
