package wpapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/felixgeelhaar/twcadmin/internal/gateway"
)

// Token is the token-issue response.
type Token struct {
	Token           string `json:"token"`
	RefreshToken    string `json:"refresh_token,omitempty"`
	UserEmail       string `json:"user_email"`
	UserNicename    string `json:"user_nicename"`
	UserDisplayName string `json:"user_display_name"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// IssueToken exchanges a username or email and password for a bearer token.
// The call is anonymous; a stale stored token is never sent with it.
func (c *Client) IssueToken(ctx context.Context, username, password string) (*Token, error) {
	req := gateway.Request{
		Method:    http.MethodPost,
		Path:      PathToken,
		Body:      credentials{Username: username, Password: password},
		Anonymous: true,
	}

	var tok Token
	if _, err := c.gw.DoJSON(ctx, req, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// ValidateToken checks the stored bearer with the server.
func (c *Client) ValidateToken(ctx context.Context) error {
	_, err := c.gw.Do(ctx, gateway.Post(PathTokenValidate, nil))
	return err
}

// CurrentUser returns the signed-in user with roles and capabilities.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	q := url.Values{"context": []string{"edit"}}
	if err := c.get(ctx, PathCurrentUser, q, &u, "Failed to load current user"); err != nil {
		return nil, err
	}
	return &u, nil
}
