package wpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Capabilities maps capability names to grants. WordPress encodes an empty
// map as [], which decodes to an empty Capabilities.
type Capabilities map[string]bool

// UnmarshalJSON implements json.Unmarshaler.
func (c *Capabilities) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || bytes.HasPrefix(trimmed, []byte("[")) {
		*c = Capabilities{}
		return nil
	}
	m := map[string]bool{}
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return err
	}
	*c = m
	return nil
}

// AvatarURLs maps pixel sizes to avatar URLs.
type AvatarURLs map[string]string

// UnmarshalJSON implements json.Unmarshaler.
func (a *AvatarURLs) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || bytes.HasPrefix(trimmed, []byte("[")) {
		*a = AvatarURLs{}
		return nil
	}
	m := map[string]string{}
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return err
	}
	*a = m
	return nil
}

// User is a WordPress user.
type User struct {
	ID             int          `json:"id"`
	Username       string       `json:"username"`
	Slug           string       `json:"slug"`
	Name           string       `json:"name"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Email          string       `json:"email"`
	Roles          []string     `json:"roles"`
	Capabilities   Capabilities `json:"capabilities"`
	AvatarURLs     AvatarURLs   `json:"avatar_urls"`
	RegisteredDate string       `json:"registered_date"`
}

// Login returns the username, falling back to the slug.
func (u User) Login() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Slug
}

// UserInput creates or updates a user.
type UserInput struct {
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email,omitempty"`
	Password  string   `json:"password,omitempty"`
	Name      string   `json:"name,omitempty"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// UserListParams filters the user list.
type UserListParams struct {
	ListParams
	Roles []string
}

// ListUsers returns one page of users.
func (c *Client) ListUsers(ctx context.Context, p UserListParams) (*Page[User], error) {
	q := p.values()
	q.Set("context", "edit")
	if len(p.Roles) > 0 {
		q.Set("roles", strings.Join(p.Roles, ","))
	}
	return list[User](ctx, c, PathUsers, q, "Failed to load users")
}

// GetUser returns one user.
func (c *Client) GetUser(ctx context.Context, id int) (*User, error) {
	var u User
	q := url.Values{"context": []string{"edit"}}
	if err := c.get(ctx, itemPath(PathUsers, id), q, &u, "Failed to load user"); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser creates a user.
func (c *Client) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	var u User
	if err := c.send(ctx, http.MethodPost, PathUsers, in, &u, "Failed to create user"); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser updates a user.
func (c *Client) UpdateUser(ctx context.Context, id int, in UserInput) (*User, error) {
	var u User
	if err := c.send(ctx, http.MethodPut, itemPath(PathUsers, id), in, &u, "Failed to update user"); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser permanently deletes a user, handing their content to reassign
// when it is non-zero.
func (c *Client) DeleteUser(ctx context.Context, id, reassign int) error {
	q := forceQuery()
	if reassign > 0 {
		q.Set("reassign", strconv.Itoa(reassign))
	}
	return c.delete(ctx, itemPath(PathUsers, id), q, "Failed to delete user")
}
