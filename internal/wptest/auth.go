package wptest

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

// TokenLifetime is the expiry stamped into issued bearer tokens.
const TokenLifetime = 7 * 24 * time.Hour

var signingKey = []byte("wptest-signing-key")

// AddUser registers an account that can sign in with username or email.
func (s *Server) AddUser(username, password string, u wpapi.User) wpapi.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password, u)
}

func (s *Server) addUserLocked(username, password string, u wpapi.User) wpapi.User {
	if u.ID == 0 {
		u.ID = s.id()
	}
	u.Username = username
	if u.Slug == "" {
		u.Slug = strings.ToLower(username)
	}
	if u.Roles == nil {
		u.Roles = []string{"subscriber"}
	}
	if u.Capabilities == nil {
		u.Capabilities = wpapi.Capabilities{}
	}
	s.accounts[username] = &account{password: password, user: u}
	return u
}

// Token mints a valid bearer and refresh token for username without a login call.
func (s *Server) Token(username string) (token, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		panic(fmt.Sprintf("wptest: unknown user %q", username))
	}
	return s.mintLocked(acc.user.ID)
}

func (s *Server) mintLocked(userID int) (string, string) {
	token := s.signLocked(userID, TokenLifetime)
	refresh := s.signLocked(userID, 30*24*time.Hour)
	s.tokens[token] = userID
	s.refreshTokens[refresh] = userID
	return token, refresh
}

// signLocked issues an HS256 token shaped like the jwt-auth plugin's.
func (s *Server) signLocked(userID int, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.URL,
		Subject:   strconv.Itoa(userID),
		ID:        strconv.Itoa(s.id()),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(fmt.Sprintf("wptest: sign token: %v", err))
	}
	return signed
}

// ExpireTokens invalidates every issued bearer. Refresh tokens keep working.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]int)
}

// RevokeRefreshTokens invalidates every refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]int)
}

// Users returns all accounts ordered by id.
func (s *Server) Users() []wpapi.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[int]wpapi.User, len(s.accounts))
	for _, acc := range s.accounts {
		byID[acc.user.ID] = acc.user
	}
	return sortedValues(byID)
}

func (s *Server) findAccount(login string) *account {
	if acc, ok := s.accounts[login]; ok {
		return acc
	}
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, login) {
			return acc
		}
	}
	return nil
}

func (s *Server) userForRequest(r *http.Request) (wpapi.User, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return wpapi.User{}, false
	}
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc.user, true
		}
	}
	return wpapi.User{}, false
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	acc := s.findAccount(body.Username)
	if acc == nil || acc.password != body.Password {
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, "[jwt_auth] incorrect_password",
			"<strong>Error:</strong> The password you entered is incorrect.")
		return
	}
	token, refresh := s.mintLocked(acc.user.ID)
	u := acc.user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, wpapi.Token{
		Token:           token,
		RefreshToken:    refresh,
		UserEmail:       u.Email,
		UserNicename:    u.Slug,
		UserDisplayName: u.Name,
	})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	refresh := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	userID, ok := s.refreshTokens[refresh]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "jwt_auth_invalid_refresh_token", "Invalid refresh token")
		return
	}
	token := s.signLocked(userID, TokenLifetime)
	s.tokens[token] = userID
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) validateToken(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"code": "jwt_auth_valid_token",
		"data": map[string]int{"status": 200},
	})
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.userForRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "rest_not_logged_in", "You are not currently logged in.")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	roles := r.URL.Query().Get("roles")

	var out []wpapi.User
	for _, u := range s.Users() {
		if !matches(search, u.Username, u.Name, u.Email) {
			continue
		}
		if roles != "" && !hasAnyRole(u, strings.Split(roles, ",")) {
			continue
		}
		out = append(out, u)
	}
	paginate(w, r, out)
}

func hasAnyRole(u wpapi.User, roles []string) bool {
	for _, want := range roles {
		for _, have := range u.Roles {
			if want == have {
				return true
			}
		}
	}
	return false
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	for _, u := range s.Users() {
		if u.ID == id {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	notFound(w, "user")
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in wpapi.UserInput
	if !decode(w, r, &in) {
		return
	}
	if in.Username == "" || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "rest_missing_callback_param", "Missing parameter(s): username, email, password")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[in.Username]; exists {
		writeError(w, http.StatusBadRequest, "existing_user_login", "Sorry, that username already exists!")
		return
	}
	u := s.addUserLocked(in.Username, in.Password, wpapi.User{
		Name:      in.Name,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Roles:     in.Roles,
	})
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var in wpapi.UserInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.ID != id {
			continue
		}
		if in.Email != "" {
			acc.user.Email = in.Email
		}
		if in.Name != "" {
			acc.user.Name = in.Name
		}
		if in.FirstName != "" {
			acc.user.FirstName = in.FirstName
		}
		if in.LastName != "" {
			acc.user.LastName = in.LastName
		}
		if len(in.Roles) > 0 {
			acc.user.Roles = in.Roles
		}
		if in.Password != "" {
			acc.password = in.Password
		}
		writeJSON(w, http.StatusOK, acc.user)
		return
	}
	notFound(w, "user")
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if r.URL.Query().Get("force") != "true" {
		writeError(w, http.StatusNotImplemented, "rest_trash_not_supported", "Users do not support trashing. Set 'force' to true to delete.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, acc := range s.accounts {
		if acc.user.ID == id {
			delete(s.accounts, name)
			writeJSON(w, http.StatusOK, map[string]any{
				"deleted":  true,
				"previous": acc.user,
				"reassign": r.URL.Query().Get("reassign"),
			})
			return
		}
	}
	notFound(w, "user")
}

