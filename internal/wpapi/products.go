package wpapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// TermRef references a taxonomy term by id.
type TermRef struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

// Image is a product or term image.
type Image struct {
	ID  int    `json:"id,omitempty"`
	Src string `json:"src,omitempty"`
	Alt string `json:"alt,omitempty"`
}

// Product is a WooCommerce product.
type Product struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	SKU              string    `json:"sku"`
	Price            string    `json:"price"`
	RegularPrice     string    `json:"regular_price"`
	SalePrice        string    `json:"sale_price"`
	OnSale           bool      `json:"on_sale"`
	StockStatus      string    `json:"stock_status"`
	StockQuantity    *int      `json:"stock_quantity"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description"`
	DateCreated      string    `json:"date_created"`
	Categories       []TermRef `json:"categories"`
	Tags             []TermRef `json:"tags"`
	Brands           []TermRef `json:"brands"`
	Images           []Image   `json:"images"`
}

// ProductInput creates or updates a product.
type ProductInput struct {
	Name             string    `json:"name,omitempty"`
	Type             string    `json:"type,omitempty"`
	Status           string    `json:"status,omitempty"`
	SKU              string    `json:"sku,omitempty"`
	RegularPrice     string    `json:"regular_price,omitempty"`
	SalePrice        *string   `json:"sale_price,omitempty"`
	Description      string    `json:"description,omitempty"`
	ShortDescription string    `json:"short_description,omitempty"`
	StockStatus      string    `json:"stock_status,omitempty"`
	ManageStock      *bool     `json:"manage_stock,omitempty"`
	StockQuantity    *int      `json:"stock_quantity,omitempty"`
	Categories       []TermRef `json:"categories,omitempty"`
	Tags             []TermRef `json:"tags,omitempty"`
	Brands           []TermRef `json:"brands,omitempty"`
	Images           []Image   `json:"images,omitempty"`
}

// ProductListParams filters the product list.
type ProductListParams struct {
	ListParams
	Status      string
	StockStatus string
	Brands      []int
	Category    int
}

func (p ProductListParams) query() url.Values {
	q := p.values()
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.StockStatus != "" {
		q.Set("stock_status", p.StockStatus)
	}
	if len(p.Brands) > 0 {
		ids := make([]string, len(p.Brands))
		for i, id := range p.Brands {
			ids[i] = strconv.Itoa(id)
		}
		q.Set("brand", strings.Join(ids, ","))
	}
	if p.Category > 0 {
		q.Set("category", strconv.Itoa(p.Category))
	}
	return q
}

// ListProducts returns one page of products.
func (c *Client) ListProducts(ctx context.Context, p ProductListParams) (*Page[Product], error) {
	return list[Product](ctx, c, PathProducts, p.query(), "Failed to load products")
}

// GetProduct returns one product.
func (c *Client) GetProduct(ctx context.Context, id int) (*Product, error) {
	var p Product
	if err := c.get(ctx, itemPath(PathProducts, id), nil, &p, "Failed to load product"); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct creates a product.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var p Product
	if err := c.send(ctx, http.MethodPost, PathProducts, in, &p, "Failed to create product"); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct updates a product.
func (c *Client) UpdateProduct(ctx context.Context, id int, in ProductInput) (*Product, error) {
	var p Product
	if err := c.send(ctx, http.MethodPut, itemPath(PathProducts, id), in, &p, "Failed to update product"); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct trashes a product, or deletes it permanently when force is set.
func (c *Client) DeleteProduct(ctx context.Context, id int, force bool) error {
	q := url.Values{"force": []string{strconv.FormatBool(force)}}
	return c.delete(ctx, itemPath(PathProducts, id), q, "Failed to delete product")
}

// Term is a product category or tag.
type Term struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Parent      int    `json:"parent,omitempty"`
	Description string `json:"description"`
	Count       int    `json:"count"`
	Image       *Image `json:"image,omitempty"`
}

// ListCategories returns one page of product categories.
func (c *Client) ListCategories(ctx context.Context, p ListParams) (*Page[Term], error) {
	return list[Term](ctx, c, PathCategories, p.values(), "Failed to load categories")
}

// ListTags returns one page of product tags.
func (c *Client) ListTags(ctx context.Context, p ListParams) (*Page[Term], error) {
	return list[Term](ctx, c, PathTags, p.values(), "Failed to load tags")
}
