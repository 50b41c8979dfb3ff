package session

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

// Role and capability names the admin checks against.
const (
	RoleAdministrator    = "administrator"
	CapabilityManageSite = "manage_options"
)

// UserProfile is the signed-in user as the session sees it.
type UserProfile struct {
	ID           int               `json:"id" yaml:"id"`
	Username     string            `json:"username" yaml:"username"`
	DisplayName  string            `json:"display_name" yaml:"display_name"`
	Email        string            `json:"email" yaml:"email"`
	Roles        []string          `json:"roles" yaml:"roles"`
	Capabilities map[string]bool   `json:"capabilities" yaml:"capabilities"`
	AvatarURLs   map[string]string `json:"avatar_urls,omitempty" yaml:"avatar_urls,omitempty"`
}

// ProfileFromUser converts an API user into a profile.
func ProfileFromUser(u wpapi.User) UserProfile {
	p := UserProfile{
		ID:           u.ID,
		Username:     u.Login(),
		DisplayName:  u.Name,
		Email:        u.Email,
		Roles:        slices.Clone(u.Roles),
		Capabilities: make(map[string]bool, len(u.Capabilities)),
		AvatarURLs:   make(map[string]string, len(u.AvatarURLs)),
	}
	for k, v := range u.Capabilities {
		p.Capabilities[k] = v
	}
	for k, v := range u.AvatarURLs {
		p.AvatarURLs[k] = v
	}
	if p.DisplayName == "" {
		p.DisplayName = p.Username
	}
	return p
}

// HasRole reports whether the user holds role.
func (p UserProfile) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// HasAnyRole reports whether the user holds at least one of roles.
func (p UserProfile) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// Can reports whether capability is granted.
func (p UserProfile) Can(capability string) bool {
	return p.Capabilities[capability]
}

// IsAdmin reports whether the user is an administrator or can manage options.
func (p UserProfile) IsAdmin() bool {
	return p.HasRole(RoleAdministrator) || p.Can(CapabilityManageSite)
}

// TokenExpiry reads the exp claim of a bearer without verifying its
// signature. The client never holds the signing key; the server remains the
// authority on validity.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
