package wpapi

import (
	"context"
	"fmt"
	"net/http"
)

// PriceEntry is one point of a product's price history.
type PriceEntry struct {
	ID     int     `json:"id,omitempty"`
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
	Source string  `json:"source,omitempty"`
}

func priceHistoryPath(productID int) string {
	return fmt.Sprintf("%s/%d/price-history", PathProducts, productID)
}

// PriceHistory returns a product's price history.
func (c *Client) PriceHistory(ctx context.Context, productID int) ([]PriceEntry, error) {
	var entries []PriceEntry
	if err := c.get(ctx, priceHistoryPath(productID), nil, &entries, "Failed to load price history"); err != nil {
		return nil, err
	}
	return entries, nil
}

// AddPriceEntry appends an entry to a product's price history.
func (c *Client) AddPriceEntry(ctx context.Context, productID int, e PriceEntry) (*PriceEntry, error) {
	var out PriceEntry
	if err := c.send(ctx, http.MethodPost, priceHistoryPath(productID), e, &out, "Failed to add price entry"); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePriceEntry replaces one entry.
func (c *Client) UpdatePriceEntry(ctx context.Context, productID, entryID int, e PriceEntry) (*PriceEntry, error) {
	var out PriceEntry
	path := itemPath(priceHistoryPath(productID), entryID)
	if err := c.send(ctx, http.MethodPut, path, e, &out, "Failed to update price entry"); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePriceEntry removes one entry.
func (c *Client) DeletePriceEntry(ctx context.Context, productID, entryID int) error {
	return c.delete(ctx, itemPath(priceHistoryPath(productID), entryID), nil, "Failed to delete price entry")
}

// ClearPriceHistory removes every entry of a product.
func (c *Client) ClearPriceHistory(ctx context.Context, productID int) error {
	return c.delete(ctx, priceHistoryPath(productID), nil, "Failed to clear price history")
}
