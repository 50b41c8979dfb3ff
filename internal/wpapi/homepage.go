package wpapi

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/twcadmin/internal/reorder"
)

// Link types of a homepage item.
const (
	LinkBrand    = "brand"
	LinkCategory = "category"
	LinkCustom   = "custom"
)

// HomepageItem is a hero or collection highlight on the storefront homepage.
// SortOrder is its sort key.
type HomepageItem struct {
	ID               int    `json:"id"`
	TitleEn          string `json:"title_en"`
	TitleID          string `json:"title_id"`
	SubtitleEn       string `json:"subtitle_en,omitempty"`
	SubtitleID       string `json:"subtitle_id,omitempty"`
	LinkType         string `json:"link_type"`
	LinkedBrandID    int    `json:"linked_brand_id,omitempty"`
	LinkedCategoryID int    `json:"linked_category_id,omitempty"`
	CustomURL        string `json:"custom_url,omitempty"`
	ImageURL         string `json:"image_url"`
	Status           string `json:"status"`
	SortOrder        int    `json:"sort_order"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

// ItemID implements reorder.Item.
func (h HomepageItem) ItemID() int { return h.ID }

// SortKey implements reorder.Item.
func (h HomepageItem) SortKey() int { return h.SortOrder }

type homepageOrder struct {
	ID        int `json:"id"`
	SortOrder int `json:"sort_order"`
}

type homepageBatch struct {
	Update []homepageOrder `json:"update"`
}

// AllHomepageItems returns every homepage item.
func (c *Client) AllHomepageItems(ctx context.Context) ([]HomepageItem, error) {
	return listAll[HomepageItem](ctx, c, PathHomepageItems, nil, "Failed to load homepage items")
}

// GetHomepageItem returns one homepage item.
func (c *Client) GetHomepageItem(ctx context.Context, id int) (*HomepageItem, error) {
	var h HomepageItem
	if err := c.get(ctx, itemPath(PathHomepageItems, id), nil, &h, "Failed to load homepage item"); err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateHomepageItem creates a homepage item.
func (c *Client) CreateHomepageItem(ctx context.Context, in HomepageItem) (*HomepageItem, error) {
	var h HomepageItem
	if err := c.send(ctx, http.MethodPost, PathHomepageItems, in, &h, "Failed to save homepage item"); err != nil {
		return nil, err
	}
	return &h, nil
}

// UpdateHomepageItem replaces a homepage item.
func (c *Client) UpdateHomepageItem(ctx context.Context, id int, in HomepageItem) (*HomepageItem, error) {
	var h HomepageItem
	if err := c.send(ctx, http.MethodPut, itemPath(PathHomepageItems, id), in, &h, "Failed to save homepage item"); err != nil {
		return nil, err
	}
	return &h, nil
}

// DeleteHomepageItem deletes a homepage item.
func (c *Client) DeleteHomepageItem(ctx context.Context, id int) error {
	return c.delete(ctx, itemPath(PathHomepageItems, id), nil, "Failed to delete homepage item")
}

// ReorderHomepageItems writes sort_order for all updates in one batch call.
func (c *Client) ReorderHomepageItems(ctx context.Context, updates []reorder.OrderUpdate) error {
	batch := homepageBatch{Update: make([]homepageOrder, len(updates))}
	for i, u := range updates {
		batch.Update[i] = homepageOrder{ID: u.ID, SortOrder: u.Key}
	}
	return c.send(ctx, http.MethodPost, PathHomepageItems+"/batch", batch, nil, "Failed to update homepage order")
}

// HomepageItems adapts the homepage endpoints to reorder.Collection.
type HomepageItems struct {
	c *Client
}

// HomepageItems returns the homepage item collection.
func (c *Client) HomepageItems() HomepageItems {
	return HomepageItems{c: c}
}

// Load implements reorder.Collection.
func (h HomepageItems) Load(ctx context.Context) ([]HomepageItem, error) {
	return h.c.AllHomepageItems(ctx)
}

// ApplyOrder implements reorder.Collection.
func (h HomepageItems) ApplyOrder(ctx context.Context, updates []reorder.OrderUpdate) error {
	return h.c.ReorderHomepageItems(ctx, updates)
}
