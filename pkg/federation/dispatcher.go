package federation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"articlesync/pkg/types"
)

// CollectionKind tags a kind of collection an instance publishes.
type CollectionKind string

const KindArticles CollectionKind = "articles"

// ErrUnknownKind is returned for a collection kind with no registered handler.
var ErrUnknownKind = errors.New("unknown collection kind")

// ExportFunc produces the wire form of one collection kind.
type ExportFunc func(ctx context.Context, owner types.Instance) (any, error)

// Dispatcher routes export requests for several collection kinds through one
// entry point.
type Dispatcher struct {
	mu       sync.RWMutex
	owner    types.Instance
	handlers map[CollectionKind]ExportFunc
}

// NewDispatcher creates a dispatcher serving collections owned by owner.
func NewDispatcher(owner types.Instance) *Dispatcher {
	return &Dispatcher{
		owner:    owner,
		handlers: make(map[CollectionKind]ExportFunc),
	}
}

// Register installs fn for kind, replacing any previous handler.
func (d *Dispatcher) Register(kind CollectionKind, fn ExportFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = fn
}

// RegisterArticles installs sync's article collection export.
func (d *Dispatcher) RegisterArticles(sync *Synchronizer) {
	d.Register(KindArticles, func(ctx context.Context, owner types.Instance) (any, error) {
		return sync.Export(ctx, owner)
	})
}

// Export runs the handler registered for kind.
func (d *Dispatcher) Export(ctx context.Context, kind CollectionKind) (any, error) {
	d.mu.RLock()
	fn, ok := d.handlers[kind]
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return fn(ctx, d.owner)
}

// Kinds lists the registered kinds in sorted order.
func (d *Dispatcher) Kinds() []CollectionKind {
	d.mu.RLock()
	defer d.mu.RUnlock()

	kinds := make([]CollectionKind, 0, len(d.handlers))
	for k := range d.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
