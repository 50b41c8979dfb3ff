// Package wpapi is a typed client for the WordPress, WooCommerce and plugin
// endpoints the admin tool uses. Every call goes through a gateway.Gateway.
package wpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/gateway"
)

// Endpoint paths.
const (
	PathToken         = "/wp-json/jwt-auth/v1/token"
	PathTokenValidate = "/wp-json/jwt-auth/v1/token/validate"
	PathUsers         = "/wp-json/wp/v2/users"
	PathCurrentUser   = "/wp-json/wp/v2/users/me"
	PathMedia         = "/wp-json/wp/v2/media"
	PathProducts      = "/wp-json/wc/v3/products"
	PathCategories    = "/wp-json/wc/v3/products/categories"
	PathTags          = "/wp-json/wc/v3/products/tags"
	PathBrands        = "/wp-json/wc/v3/products/brands"
	PathHomepageItems = "/wp-json/twc/v1/homepage-items"
	PathEvents        = "/wp-json/simple-history/v1/events"
	PathEventStats    = "/wp-json/simple-history/v1/stats/summary"
)

// MaxPerPage is the largest page size the REST API accepts.
const MaxPerPage = 100

// defaultPerPage is the page size the REST API uses when none is requested.
const defaultPerPage = 10

// Client calls the store API.
type Client struct {
	gw *gateway.Gateway
}

// New creates a client over gw.
func New(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// Gateway returns the underlying gateway.
func (c *Client) Gateway() *gateway.Gateway {
	return c.gw
}

// Page is one page of a collection.
type Page[T any] struct {
	Items      []T
	Total      int
	TotalPages int
}

// ListParams are the paging and sorting parameters shared by collections.
type ListParams struct {
	Page    int
	PerPage int
	Search  string
	OrderBy string
	Order   string
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.OrderBy != "" {
		q.Set("orderby", p.OrderBy)
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	return q
}

func list[T any](ctx context.Context, c *Client, path string, q url.Values, fallback string) (*Page[T], error) {
	var items []T
	resp, err := c.gw.DoJSON(ctx, gateway.Get(path, q), &items)
	if err != nil {
		return nil, wrap(err, fallback)
	}

	page := &Page[T]{Items: items}
	p := resp.Pagination()
	if p.Known {
		page.Total = p.Total
		page.TotalPages = p.TotalPages
		if page.TotalPages == 0 && page.Total > 0 {
			page.TotalPages = pagesFor(page.Total, q)
		}
	} else {
		page.Total = len(items)
		page.TotalPages = 1
	}
	return page, nil
}

// pagesFor derives the page count from the total and the requested page size
// when X-WP-TotalPages is missing.
func pagesFor(total int, q url.Values) int {
	perPage := defaultPerPage
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil && n > 0 {
		perPage = n
	}
	return (total + perPage - 1) / perPage
}

// listAll walks every page at MaxPerPage.
func listAll[T any](ctx context.Context, c *Client, path string, q url.Values, fallback string) ([]T, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("per_page", strconv.Itoa(MaxPerPage))

	var all []T
	for page := 1; ; page++ {
		q.Set("page", strconv.Itoa(page))
		p, err := list[T](ctx, c, path, q, fallback)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Items...)
		if page >= p.TotalPages || len(p.Items) < MaxPerPage {
			return all, nil
		}
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any, fallback string) error {
	if _, err := c.gw.DoJSON(ctx, gateway.Get(path, q), out); err != nil {
		return wrap(err, fallback)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, fallback string) error {
	req := gateway.Request{Method: method, Path: path, Body: body}
	if _, err := c.gw.DoJSON(ctx, req, out); err != nil {
		return wrap(err, fallback)
	}
	return nil
}

func (c *Client) delete(ctx context.Context, path string, q url.Values, fallback string) error {
	if _, err := c.gw.Do(ctx, gateway.Delete(path, q)); err != nil {
		return wrap(err, fallback)
	}
	return nil
}

// wrap turns a gateway error into a user-facing one. Errors that already carry
// a code (session expiry, network) pass through unchanged.
func wrap(err error, fallback string) error {
	if err == nil {
		return nil
	}
	if errors.CodeOf(err) != "" {
		return err
	}
	if gateway.StatusOf(err) == http.StatusNotFound {
		return errors.Wrap(errors.ErrCodeNotFound, errors.UserMessage(err, fallback), err)
	}
	return errors.NewRemoteError(fallback, err)
}

func itemPath(base string, id int) string {
	return fmt.Sprintf("%s/%d", base, id)
}

func forceQuery() url.Values {
	return url.Values{"force": []string{"true"}}
}
