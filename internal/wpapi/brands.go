package wpapi

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/twcadmin/internal/reorder"
)

// Brand is a product brand term. MenuOrder is the brand's sort key.
type Brand struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Image       *Image `json:"image"`
	Count       int    `json:"count"`
	MenuOrder   int    `json:"menu_order"`
}

// ItemID implements reorder.Item.
func (b Brand) ItemID() int { return b.ID }

// SortKey implements reorder.Item.
func (b Brand) SortKey() int { return b.MenuOrder }

// BrandInput creates or updates a brand.
type BrandInput struct {
	Name        string `json:"name,omitempty"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	Image       *Image `json:"image,omitempty"`
	MenuOrder   *int   `json:"menu_order,omitempty"`
}

type brandOrder struct {
	ID        int `json:"id"`
	MenuOrder int `json:"menu_order"`
}

type brandBatch struct {
	Update []brandOrder `json:"update"`
}

// ListBrands returns one page of brands.
func (c *Client) ListBrands(ctx context.Context, p ListParams) (*Page[Brand], error) {
	return list[Brand](ctx, c, PathBrands, p.values(), "Failed to load brands")
}

// AllBrands returns every brand across all pages.
func (c *Client) AllBrands(ctx context.Context) ([]Brand, error) {
	return listAll[Brand](ctx, c, PathBrands, nil, "Failed to load brands")
}

// GetBrand returns one brand.
func (c *Client) GetBrand(ctx context.Context, id int) (*Brand, error) {
	var b Brand
	if err := c.get(ctx, itemPath(PathBrands, id), nil, &b, "Failed to load brand"); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBrand creates a brand.
func (c *Client) CreateBrand(ctx context.Context, in BrandInput) (*Brand, error) {
	var b Brand
	if err := c.send(ctx, http.MethodPost, PathBrands, in, &b, "Failed to save brand"); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBrand updates a brand.
func (c *Client) UpdateBrand(ctx context.Context, id int, in BrandInput) (*Brand, error) {
	var b Brand
	if err := c.send(ctx, http.MethodPut, itemPath(PathBrands, id), in, &b, "Failed to save brand"); err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteBrand permanently deletes a brand.
func (c *Client) DeleteBrand(ctx context.Context, id int) error {
	return c.delete(ctx, itemPath(PathBrands, id), forceQuery(), "Failed to delete brand")
}

// ReorderBrands writes menu_order for all updates in one batch call.
func (c *Client) ReorderBrands(ctx context.Context, updates []reorder.OrderUpdate) error {
	batch := brandBatch{Update: make([]brandOrder, len(updates))}
	for i, u := range updates {
		batch.Update[i] = brandOrder{ID: u.ID, MenuOrder: u.Key}
	}
	return c.send(ctx, http.MethodPost, PathBrands+"/batch", batch, nil, "Failed to update brand order")
}

// Brands adapts the brand endpoints to reorder.Collection.
type Brands struct {
	c *Client
}

// Brands returns the brand collection.
func (c *Client) Brands() Brands {
	return Brands{c: c}
}

// Load implements reorder.Collection.
func (b Brands) Load(ctx context.Context) ([]Brand, error) {
	return b.c.AllBrands(ctx)
}

// ApplyOrder implements reorder.Collection.
func (b Brands) ApplyOrder(ctx context.Context, updates []reorder.OrderUpdate) error {
	return b.c.ReorderBrands(ctx, updates)
}
