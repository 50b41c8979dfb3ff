// Package dashboard builds the catalog overview shown on the landing screen.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

// Sizes of the ranked lists.
const (
	RecentProducts = 5
	TopTerms       = 5
)

// maxConcurrent bounds parallel requests so the store is not flooded.
const maxConcurrent = 4

// API is the part of the store API the dashboard reads.
type API interface {
	ListProducts(ctx context.Context, p wpapi.ProductListParams) (*wpapi.Page[wpapi.Product], error)
	ListBrands(ctx context.Context, p wpapi.ListParams) (*wpapi.Page[wpapi.Brand], error)
	ListCategories(ctx context.Context, p wpapi.ListParams) (*wpapi.Page[wpapi.Term], error)
}

// Totals are collection sizes taken from the X-WP-Total header.
type Totals struct {
	Products   int `json:"products" yaml:"products"`
	Brands     int `json:"brands" yaml:"brands"`
	Categories int `json:"categories" yaml:"categories"`
	Published  int `json:"published" yaml:"published"`
	Drafts     int `json:"drafts" yaml:"drafts"`
	InStock    int `json:"in_stock" yaml:"in_stock"`
	OutOfStock int `json:"out_of_stock" yaml:"out_of_stock"`
}

// Ranked is a term with its product count.
type Ranked struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// Summary is the dashboard content.
type Summary struct {
	Totals        Totals          `json:"totals" yaml:"totals"`
	Recent        []wpapi.Product `json:"recent_products" yaml:"recent_products"`
	TopBrands     []Ranked        `json:"top_brands" yaml:"top_brands"`
	TopCategories []Ranked        `json:"top_categories" yaml:"top_categories"`
}

// Load fetches everything concurrently. The first failure cancels the rest.
func Load(ctx context.Context, api API) (*Summary, error) {
	var s Summary
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	count := func(dst *int, p wpapi.ProductListParams) {
		g.Go(func() error {
			p.PerPage = 1
			page, err := api.ListProducts(ctx, p)
			if err != nil {
				return err
			}
			*dst = page.Total
			return nil
		})
	}
	count(&s.Totals.Products, wpapi.ProductListParams{})
	count(&s.Totals.Published, wpapi.ProductListParams{Status: "publish"})
	count(&s.Totals.Drafts, wpapi.ProductListParams{Status: "draft"})
	count(&s.Totals.InStock, wpapi.ProductListParams{StockStatus: "instock"})
	count(&s.Totals.OutOfStock, wpapi.ProductListParams{StockStatus: "outofstock"})

	g.Go(func() error {
		page, err := api.ListProducts(ctx, wpapi.ProductListParams{
			ListParams: wpapi.ListParams{PerPage: RecentProducts, OrderBy: "date", Order: "desc"},
		})
		if err != nil {
			return err
		}
		s.Recent = page.Items
		return nil
	})

	g.Go(func() error {
		page, err := api.ListBrands(ctx, topParams())
		if err != nil {
			return err
		}
		s.Totals.Brands = page.Total
		s.TopBrands = make([]Ranked, 0, len(page.Items))
		for _, b := range page.Items {
			s.TopBrands = append(s.TopBrands, Ranked{ID: b.ID, Name: b.Name, Count: b.Count})
		}
		return nil
	})

	g.Go(func() error {
		page, err := api.ListCategories(ctx, topParams())
		if err != nil {
			return err
		}
		s.Totals.Categories = page.Total
		s.TopCategories = make([]Ranked, 0, len(page.Items))
		for _, c := range page.Items {
			s.TopCategories = append(s.TopCategories, Ranked{ID: c.ID, Name: c.Name, Count: c.Count})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}

func topParams() wpapi.ListParams {
	return wpapi.ListParams{PerPage: TopTerms, OrderBy: "count", Order: "desc"}
}
