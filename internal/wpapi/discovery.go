package wpapi

import (
	"context"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/felixgeelhaar/twcadmin/internal/gateway"
)

// PathIndex is the REST API index. It is served without authentication.
const PathIndex = "/wp-json/"

// Namespaces the admin tool depends on.
var RequiredNamespaces = []string{"jwt-auth/v1", "wp/v2", "wc/v3"}

// SiteIndex describes the store as announced by the API index.
type SiteIndex struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	URL         string   `json:"url" yaml:"url"`
	Namespaces  []string `json:"namespaces" yaml:"namespaces"`
}

// MissingNamespaces returns the required namespaces the site does not serve.
func (s SiteIndex) MissingNamespaces() []string {
	var missing []string
	for _, ns := range RequiredNamespaces {
		if !slices.Contains(s.Namespaces, ns) {
			missing = append(missing, ns)
		}
	}
	return missing
}

// Discover reads the API index anonymously.
func (c *Client) Discover(ctx context.Context) (*SiteIndex, error) {
	req := gateway.Get(PathIndex, nil)
	req.Anonymous = true
	resp, err := c.gw.Do(ctx, req)
	if err != nil {
		return nil, wrap(err, "Failed to reach the store")
	}

	body := gjson.ParseBytes(resp.Body)
	idx := &SiteIndex{
		Name:        body.Get("name").String(),
		Description: body.Get("description").String(),
		URL:         body.Get("url").String(),
	}
	for _, ns := range body.Get("namespaces").Array() {
		idx.Namespaces = append(idx.Namespaces, ns.String())
	}
	return idx, nil
}
