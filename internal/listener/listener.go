// Package listener implements the change listener (component C): a
// multi-subscriber event bus that fans the four raw mutation events out to
// every interested observer (the override store, the base linker's forward
// hook, external bridges), firing Changing before and Changed after a
// member update, and ItemChanging/ItemChanged around every collection or
// dictionary item mutation (§4.3).
//
// Nodes attached to one AssetPropertyGraph (propertygraph.New rehosts the
// root tree; reconciler clones are built on the graph's host) share a
// single Bus as their event sink, so there is no per-object
// subscribe/unsubscribe bookkeeping. Inserting a sub-tree through Add,
// Restore, Update or SetTarget does not rehost it: a sub-tree built on a
// different host keeps firing into that host's sink. This mirrors the teacher's
// mutex-guarded single-dispatcher listener
// (anysync.TreeUpdateListener.processChanges) rather than the
// per-instance-event subscription model spec.md's source language used.
package listener

import (
	"sync"

	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/model"
)

// Bus is a graph.EventSink that fans events out to registered observers in
// registration order, matching the strict Changing-before-Changed pairing
// and depth-first nested-mutation ordering required by §5.
type Bus struct {
	mu        sync.Mutex
	observers []graph.EventSink
}

// New creates an empty Bus.
func New() *Bus { return &Bus{} }

// Subscribe registers an observer. Order of registration is the order
// observers are notified.
func (b *Bus) Subscribe(o graph.EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

// Unsubscribe removes a previously registered observer. Safe to call
// multiple times (idempotent) and safe to call for an observer that was
// never registered.
func (b *Bus) Unsubscribe(o graph.EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, obs := range b.observers {
		if obs == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

func (b *Bus) snapshot() []graph.EventSink {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]graph.EventSink, len(b.observers))
	copy(out, b.observers)
	return out
}

func (b *Bus) OnChanging(m *graph.Member, old any) {
	for _, o := range b.snapshot() {
		o.OnChanging(m, old)
	}
}

func (b *Bus) OnChanged(m *graph.Member, old, new any, origin model.MutationOrigin) {
	for _, o := range b.snapshot() {
		o.OnChanged(m, old, new, origin)
	}
}

func (b *Bus) OnItemChanging(n graph.IndexedObject, kind model.ChangeKind, idx model.Index, old any) {
	for _, o := range b.snapshot() {
		o.OnItemChanging(n, kind, idx, old)
	}
}

func (b *Bus) OnItemChanged(n graph.IndexedObject, kind model.ChangeKind, idx model.Index, id model.ItemId, new any, origin model.MutationOrigin) {
	for _, o := range b.snapshot() {
		o.OnItemChanged(n, kind, idx, id, new, origin)
	}
}

var _ graph.EventSink = (*Bus)(nil)
