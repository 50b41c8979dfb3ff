package reorder

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/log"
	"github.com/felixgeelhaar/twcadmin/internal/metrics"
	"github.com/felixgeelhaar/twcadmin/internal/telemetry"
)

// Option configures an Editor.
type Option func(*options)

type options struct {
	logger  *log.Logger
	metrics *metrics.Metrics
}

// WithLogger sets the editor's logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records commits on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Editor holds the local view of one collection.
//
// At most one commit runs at a time; a second Move or SaveWithKey while a
// commit is pending fails with REORDER-002.
type Editor[T Item] struct {
	name       string
	collection Collection[T]
	logger     *log.Logger
	metrics    *metrics.Metrics

	mu        sync.Mutex
	items     []T
	confirmed bool
	sorting   bool
}

// NewEditor creates an editor for collection. name is used in messages and
// metric labels, e.g. "brand".
func NewEditor[T Item](name string, collection Collection[T], opts ...Option) *Editor[T] {
	o := options{logger: log.DefaultLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Editor[T]{
		name:       name,
		collection: collection,
		logger:     o.logger,
		metrics:    o.metrics,
	}
}

// Name returns the collection name.
func (e *Editor[T]) Name() string {
	return e.name
}

// Load replaces the local items with the server's order.
func (e *Editor[T]) Load(ctx context.Context) error {
	items, err := e.collection.Load(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.items = Sorted(items)
	e.confirmed = true
	e.mu.Unlock()
	return nil
}

// Items returns a copy of the local order.
func (e *Editor[T]) Items() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]T(nil), e.items...)
}

// Confirmed reports whether the local order came from the server. It is false
// while an optimistic move awaits its commit.
func (e *Editor[T]) Confirmed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.confirmed
}

// Sorting reports whether a commit is in flight.
func (e *Editor[T]) Sorting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sorting
}

// Move relocates the item at index from to index to (0-based), commits a
// dense renumbering and reloads. Moving an item onto itself is a no-op.
func (e *Editor[T]) Move(ctx context.Context, from, to int) error {
	e.mu.Lock()
	if e.sorting {
		e.mu.Unlock()
		return errors.NewReorderBusyError(e.name)
	}
	if from == to && from >= 0 && from < len(e.items) {
		e.mu.Unlock()
		return nil
	}
	moved, err := Move(e.items, from, to)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	snapshot := e.items
	e.items = moved
	e.confirmed = false
	e.sorting = true
	updates := Dense(moved)
	e.mu.Unlock()

	defer e.finish()

	ctx, span := telemetry.StartReorderSpan(ctx, e.name, len(updates))
	defer span.End()

	commitErr := e.collection.ApplyOrder(ctx, updates)
	e.metrics.ObserveReorder(e.name, commitErr == nil)

	reloadErr := e.reload(ctx, snapshot, commitErr != nil)

	if commitErr != nil {
		e.logger.WarnContext(ctx, "reorder commit failed", "collection", e.name, "error", commitErr)
		cause := commitErr
		if reloadErr != nil {
			cause = stderrors.Join(commitErr, reloadErr)
		}
		err := errors.NewReorderConflictError(e.name, cause)
		telemetry.RecordError(span, err)
		return err
	}
	if reloadErr != nil {
		err := errors.NewRemoteError(fmt.Sprintf("%s order saved but the list could not be reloaded", e.name), reloadErr)
		telemetry.RecordError(span, err)
		return err
	}

	telemetry.RecordSuccess(span)
	e.logger.DebugContext(ctx, "reorder committed", "collection", e.name, "items", len(updates))
	return nil
}

// MoveID moves the item with id to the 1-based position.
func (e *Editor[T]) MoveID(ctx context.Context, id, position int) error {
	e.mu.Lock()
	from := IndexOf(e.items, id)
	n := len(e.items)
	e.mu.Unlock()

	if from < 0 {
		return errors.New(errors.ErrCodeNotFound, fmt.Sprintf("%s %d is not in the list", e.name, id)).
			WithSuggestion("Reload the list; the item may have been deleted")
	}
	if position < 1 || position > n {
		return errors.New(errors.ErrCodeReorderIndex,
			fmt.Sprintf("position %d is outside 1..%d", position, n))
	}
	return e.Move(ctx, from, position-1)
}

// SaveWithKey writes one item with an explicit key. Every other item whose
// key is >= requestedKey is bumped by one in a batch before save runs, so
// keys stay distinct. excludeID is the id of the edited item, or 0 when
// creating. The local list is reloaded after a successful save.
func (e *Editor[T]) SaveWithKey(ctx context.Context, requestedKey, excludeID int, save func(ctx context.Context) error) error {
	e.mu.Lock()
	if e.sorting {
		e.mu.Unlock()
		return errors.NewReorderBusyError(e.name)
	}
	e.sorting = true
	e.mu.Unlock()
	defer e.finish()

	current, err := e.collection.Load(ctx)
	if err != nil {
		return err
	}

	shifts := PlanShift(current, requestedKey, excludeID)
	if len(shifts) > 0 {
		if err := e.collection.ApplyOrder(ctx, shifts); err != nil {
			e.metrics.ObserveReorder(e.name, false)
			return errors.NewRemoteError(fmt.Sprintf("Failed to save %s", e.name), err)
		}
		e.metrics.ObserveReorder(e.name, true)
		e.metrics.ObserveShift(e.name, len(shifts))
	}

	if err := save(ctx); err != nil {
		return err
	}

	if err := e.reload(ctx, nil, false); err != nil {
		e.logger.WarnContext(ctx, "reload after save failed", "collection", e.name, "error", err)
	}
	return nil
}

// reload replaces the local order with the server's. When the reload fails
// after a failed commit, the pre-move snapshot is restored.
func (e *Editor[T]) reload(ctx context.Context, snapshot []T, commitFailed bool) error {
	items, err := e.collection.Load(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		if commitFailed {
			e.items = snapshot
			e.confirmed = true
		}
		return err
	}
	e.items = Sorted(items)
	e.confirmed = true
	return nil
}

func (e *Editor[T]) finish() {
	e.mu.Lock()
	e.sorting = false
	e.mu.Unlock()
}
