// Package reorder keeps a remotely stored, ordered collection in sync with
// local drag-style moves.
//
// A move is applied to the local slice first, then committed as one batch
// that renumbers every item densely from BaseKey. Whether the batch succeeds
// or fails, the local slice is replaced by a fresh server load; optimistic
// state never outlives its commit.
package reorder

import (
	"context"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
)

// BaseKey is the first key of a dense renumbering.
const BaseKey = 1

// Item is an element of an ordered collection.
type Item interface {
	ItemID() int
	// SortKey returns the item's position key. Missing keys are reported as 0.
	SortKey() int
}

// OrderUpdate assigns Key to the item with ID.
type OrderUpdate struct {
	ID  int
	Key int
}

// Collection is the remote side of an ordered list.
type Collection[T Item] interface {
	// Load returns the whole collection in server order.
	Load(ctx context.Context) ([]T, error)
	// ApplyOrder writes all updates in a single batch call.
	ApplyOrder(ctx context.Context, updates []OrderUpdate) error
}

// Sorted returns a copy of items ordered by key ascending. Equal keys keep
// their arrival order.
func Sorted[T Item](items []T) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey() < out[j].SortKey()
	})
	return out
}

// Dense returns one update per item assigning BaseKey, BaseKey+1, ... in slice order.
func Dense[T Item](items []T) []OrderUpdate {
	updates := make([]OrderUpdate, len(items))
	for i, item := range items {
		updates[i] = OrderUpdate{ID: item.ItemID(), Key: BaseKey + i}
	}
	return updates
}

// Move returns a copy of items with the element at from relocated to to.
func Move[T any](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return nil, errors.New(errors.ErrCodeReorderIndex,
			fmt.Sprintf("cannot move position %d to %d in a list of %d", from+1, to+1, len(items)))
	}

	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)

	moved := items[from]
	out = append(out, moved)
	copy(out[to+1:], out[to:len(out)-1])
	out[to] = moved
	return out, nil
}

// PlanShift returns the updates that make room for an item written with
// requestedKey: every other item whose key is >= requestedKey moves up by one.
// excludeID is the item being edited, or 0 for a new item.
func PlanShift[T Item](items []T, requestedKey, excludeID int) []OrderUpdate {
	var updates []OrderUpdate
	for _, item := range items {
		if excludeID != 0 && item.ItemID() == excludeID {
			continue
		}
		if item.SortKey() >= requestedKey {
			updates = append(updates, OrderUpdate{ID: item.ItemID(), Key: item.SortKey() + 1})
		}
	}
	return updates
}

// IndexOf returns the position of the item with id, or -1.
func IndexOf[T Item](items []T, id int) int {
	for i, item := range items {
		if item.ItemID() == id {
			return i
		}
	}
	return -1
}
