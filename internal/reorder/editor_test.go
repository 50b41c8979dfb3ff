package reorder

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/log"
	"github.com/felixgeelhaar/twcadmin/internal/metrics"
)

// fakeCollection stores keys by id and returns items in map-independent id order.
type fakeCollection struct {
	mu        sync.Mutex
	keys      map[int]int
	order     []int
	batches   [][]OrderUpdate
	loads     int
	failApply error
	failLoad  error
	// block, when set, is received from inside ApplyOrder.
	block chan struct{}
	// entered is closed when ApplyOrder starts.
	entered chan struct{}
}

func newFake(items ...brand) *fakeCollection {
	f := &fakeCollection{keys: make(map[int]int)}
	for _, b := range items {
		f.keys[b.id] = b.key
		f.order = append(f.order, b.id)
	}
	return f
}

func (f *fakeCollection) Load(context.Context) ([]brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.failLoad != nil {
		return nil, f.failLoad
	}
	out := make([]brand, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, brand{id: id, key: f.keys[id]})
	}
	return out, nil
}

func (f *fakeCollection) ApplyOrder(_ context.Context, updates []OrderUpdate) error {
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, updates)
	if f.failApply != nil {
		return f.failApply
	}
	for _, u := range updates {
		f.keys[u.ID] = u.Key
	}
	return nil
}

func (f *fakeCollection) add(id, key int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[id] = key
	f.order = append(f.order, id)
}

func newTestEditor(t *testing.T, f *fakeCollection, opts ...Option) *Editor[brand] {
	t.Helper()
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	e := NewEditor[brand]("brand", f, opts...)
	require.NoError(t, e.Load(context.Background()))
	return e
}

func TestEditor_LoadSortsByKey(t *testing.T) {
	f := newFake(brand{1, 3}, brand{2, 1}, brand{3, 0}, brand{4, 1})
	e := newTestEditor(t, f)

	assert.Equal(t, []int{3, 2, 4, 1}, ids(e.Items()))
	assert.True(t, e.Confirmed())
	assert.False(t, e.Sorting())
}

func TestEditor_MoveCommitsDenseKeysAndReloads(t *testing.T) {
	f := newFake(brand{10, 1}, brand{20, 2}, brand{30, 3}, brand{40, 4})
	_, m := metrics.NewRegistry()
	e := newTestEditor(t, f, WithMetrics(m))

	require.NoError(t, e.Move(context.Background(), 0, 2))

	require.Len(t, f.batches, 1)
	assert.Equal(t, []OrderUpdate{{20, 1}, {30, 2}, {10, 3}, {40, 4}}, f.batches[0])
	assert.Equal(t, 2, f.loads, "initial load plus reload after commit")

	items := e.Items()
	assert.Equal(t, []int{20, 30, 10, 40}, ids(items))
	for i, b := range items {
		assert.Equal(t, BaseKey+i, b.key)
	}
	assert.True(t, e.Confirmed())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReorderCommits.WithLabelValues("brand", "success")))
}

func TestEditor_FailedCommitRestoresServerOrder(t *testing.T) {
	f := newFake(brand{10, 1}, brand{20, 2}, brand{30, 3})
	e := newTestEditor(t, f)
	f.failApply = fmt.Errorf("status 500")

	// Another client renumbers in the meantime; the reload must show it.
	f.mu.Lock()
	f.keys[10] = 9
	f.mu.Unlock()

	err := e.Move(context.Background(), 2, 0)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeReorderConflict))
	assert.Equal(t, []int{20, 30, 10}, ids(e.Items()))
	assert.True(t, e.Confirmed())
	assert.False(t, e.Sorting())
}

func TestEditor_FailedCommitAndReloadRestoresSnapshot(t *testing.T) {
	f := newFake(brand{10, 1}, brand{20, 2}, brand{30, 3})
	e := newTestEditor(t, f)
	f.failApply = fmt.Errorf("status 500")
	f.failLoad = fmt.Errorf("connection reset")

	err := e.Move(context.Background(), 0, 2)

	assert.True(t, errors.HasCode(err, errors.ErrCodeReorderConflict))
	assert.Equal(t, []int{10, 20, 30}, ids(e.Items()), "optimistic order is discarded")
}

func TestEditor_ReloadFailureAfterSuccessfulCommit(t *testing.T) {
	f := newFake(brand{10, 1}, brand{20, 2})
	e := newTestEditor(t, f)
	f.failLoad = fmt.Errorf("connection reset")

	err := e.Move(context.Background(), 0, 1)

	assert.True(t, errors.HasCode(err, errors.ErrCodeRemote))
	assert.False(t, e.Confirmed())
	assert.Equal(t, []int{20, 10}, ids(e.Items()))
}

func TestEditor_MoveSameIndexIsNoOp(t *testing.T) {
	f := newFake(brand{10, 1}, brand{20, 2})
	e := newTestEditor(t, f)

	require.NoError(t, e.Move(context.Background(), 1, 1))
	assert.Empty(t, f.batches)
}

func TestEditor_MoveWhileSortingIsBusy(t *testing.T) {
	f := newFake(brand{10, 1}, brand{20, 2}, brand{30, 3})
	f.block = make(chan struct{})
	f.entered = make(chan struct{})
	e := newTestEditor(t, f)

	done := make(chan error, 1)
	go func() { done <- e.Move(context.Background(), 0, 1) }()

	<-f.entered
	assert.True(t, e.Sorting())
	assert.False(t, e.Confirmed())

	err := e.Move(context.Background(), 1, 2)
	assert.True(t, errors.HasCode(err, errors.ErrCodeReorderBusy))

	err = e.SaveWithKey(context.Background(), 1, 0, func(context.Context) error { return nil })
	assert.True(t, errors.HasCode(err, errors.ErrCodeReorderBusy))

	close(f.block)
	require.NoError(t, <-done)
	assert.Len(t, f.batches, 1)
}

func TestEditor_MoveID(t *testing.T) {
	f := newFake(brand{10, 1}, brand{20, 2}, brand{30, 3})
	e := newTestEditor(t, f)

	require.NoError(t, e.MoveID(context.Background(), 30, 1))
	assert.Equal(t, []int{30, 10, 20}, ids(e.Items()))

	err := e.MoveID(context.Background(), 99, 1)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))

	err = e.MoveID(context.Background(), 10, 4)
	assert.True(t, errors.HasCode(err, errors.ErrCodeReorderIndex))
}

func TestEditor_SaveWithKeyShiftsBeforeSave(t *testing.T) {
	f := newFake(brand{10, 1}, brand{20, 2}, brand{30, 3})
	_, m := metrics.NewRegistry()
	e := newTestEditor(t, f, WithMetrics(m))

	var shiftedBeforeSave bool
	err := e.SaveWithKey(context.Background(), 2, 0, func(context.Context) error {
		f.mu.Lock()
		shiftedBeforeSave = f.keys[20] == 3 && f.keys[30] == 4
		f.mu.Unlock()
		f.add(40, 2)
		return nil
	})
	require.NoError(t, err)

	assert.True(t, shiftedBeforeSave)
	assert.Equal(t, []OrderUpdate{{20, 3}, {30, 4}}, f.batches[0])
	assert.Equal(t, []int{10, 40, 20, 30}, ids(e.Items()))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReorderShifted.WithLabelValues("brand")))
}

func TestEditor_SaveWithKeyExcludesEditedItem(t *testing.T) {
	f := newFake(brand{10, 1}, brand{20, 2}, brand{30, 3})
	e := newTestEditor(t, f)

	err := e.SaveWithKey(context.Background(), 3, 30, func(context.Context) error { return nil })
	require.NoError(t, err)

	assert.Empty(t, f.batches, "only the edited item holds key 3")
}

func TestEditor_SaveWithKeyShiftFailureSkipsSave(t *testing.T) {
	f := newFake(brand{10, 1})
	f.failApply = fmt.Errorf("status 500")
	e := newTestEditor(t, f)

	called := false
	err := e.SaveWithKey(context.Background(), 1, 0, func(context.Context) error {
		called = true
		return nil
	})

	assert.True(t, errors.HasCode(err, errors.ErrCodeRemote))
	assert.False(t, called)
	assert.False(t, e.Sorting())
}

func TestEditor_SaveErrorIsReturned(t *testing.T) {
	f := newFake(brand{10, 1})
	e := newTestEditor(t, f)
	want := fmt.Errorf("name taken")

	err := e.SaveWithKey(context.Background(), 5, 0, func(context.Context) error { return want })
	assert.ErrorIs(t, err, want)
}
