// Package propertygraph assembles the asset property graph (§3.5): the
// root node, arena, event bus, override store, base link state, and
// reconciler into one owning type that implements the Graph API (§6).
//
// Grounded on the teacher's Reconciler/Registry wiring in cmd/server/main.go,
// which constructs one long-lived collaborator graph (store, collectors,
// notifier, scheduler) behind a single entry point; this package is that
// entry point for one asset instance instead of one server process.
package propertygraph

import (
	"github.com/noslopforever/assetgraph/internal/clone"
	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/linker"
	"github.com/noslopforever/assetgraph/internal/listener"
	"github.com/noslopforever/assetgraph/internal/metadata"
	"github.com/noslopforever/assetgraph/internal/model"
	"github.com/noslopforever/assetgraph/internal/override"
	"github.com/noslopforever/assetgraph/internal/reconciler"
)

// BaseContentChangedFunc is invoked after a base-driven propagation pass
// completes (§4.6.3 step 5, "fire BaseContentChanged upward").
type BaseContentChangedFunc func(g *Graph)

// Graph is one asset's live property graph: its root node plus every
// piece of engine state needed to reconcile it against a base.
type Graph struct {
	root  *graph.Object
	arena *graph.Arena
	bus   *listener.Bus

	override *override.Store
	linker   *linker.Linker
	recon    *reconciler.Reconciler

	logger graph.Logger

	base      *Graph
	propagate bool
	relay     *baseChangeRelay
	updating  bool
	onBaseChg BaseContentChangedFunc
}

var _ graph.Host = (*Graph)(nil)

// New creates a graph rooted at root (which must already be attached to
// the returned Graph's bus via SetHost — New does this). canUpdate may be
// nil to allow every reconciliation decision.
func New(root *graph.Object, logger graph.Logger, canUpdate reconciler.CanUpdateFunc) *Graph {
	if logger == nil {
		logger = graph.NopHost.Logger()
	}
	g := &Graph{
		root:     root,
		arena:    graph.NewArena(),
		bus:      listener.New(),
		override: override.New(),
		linker:   linker.New(),
		logger:   logger,
	}
	g.recon = reconciler.New(logger, canUpdate)
	g.bus.Subscribe(g.override)
	g.override.SetBaseChecker(g.linker)
	root.SetHost(g)
	g.registerArena(root)
	return g
}

func (g *Graph) registerArena(root *graph.Object) {
	graph.Walk(root, graph.Visitor{
		VisitObject: func(o *graph.Object) bool {
			if o.ItemID != model.EmptyItemId {
				g.arena.Put(o.ItemID, o)
			}
			return true
		},
	})
}

// Sink returns the graph's event bus, satisfying graph.Host.
func (g *Graph) Sink() graph.EventSink { return g.bus }

// Logger returns the graph's logger, satisfying graph.Host.
func (g *Graph) Logger() graph.Logger { return g.logger }

// RootNode returns the asset's root object.
func (g *Graph) RootNode() *graph.Object { return g.root }

// Arena exposes the id-keyed object registry for advanced callers
// (debugapi, tests).
func (g *Graph) Arena() *graph.Arena { return g.arena }

// Override exposes the override store for advanced callers.
func (g *Graph) Override() *override.Store { return g.override }

// SetPropagateChangesFromBase controls whether a base Changed/ItemChanged
// event triggers an automatic reconciliation pass (§4.6.3), mirroring the
// Container-level flag of the same name (§6).
func (g *Graph) SetPropagateChangesFromBase(v bool) { g.propagate = v }

// SetOnBaseContentChanged installs the callback fired after a
// base-driven propagation pass completes.
func (g *Graph) SetOnBaseContentChanged(f BaseContentChangedFunc) { g.onBaseChg = f }

// RefreshBase re-links this graph against a new base graph (or detaches
// entirely if newBase is nil), re-running link_to_base from the root.
func (g *Graph) RefreshBase(newBase *Graph) {
	if g.base != nil && g.relay != nil {
		g.base.bus.Unsubscribe(g.relay)
	}
	g.linker.ClearAllBaseLinks()
	g.base = newBase
	if newBase == nil {
		g.relay = nil
		return
	}
	g.linker.Link(g.root, newBase.root)
	g.relay = &baseChangeRelay{derived: g}
	newBase.bus.Subscribe(g.relay)
}

// ReconcileWithBase runs the reconciler over the whole graph from the root.
// It takes no node argument; a pass cannot be scoped to a subtree.
func (g *Graph) ReconcileWithBase() {
	if g.base == nil {
		return
	}
	g.recon.Reconcile(reconciler.Env{
		Host:     g,
		Linker:   g.linker,
		Override: g.override,
		Arena:    g.arena,
	}, g.root)
}

// baseChangeRelay implements graph.EventSink and is subscribed to a base
// graph's bus on behalf of exactly one derived Graph, implementing
// §4.6.3's base-driven propagation.
type baseChangeRelay struct {
	derived *Graph
}

func (r *baseChangeRelay) OnChanging(*graph.Member, any) {}
func (r *baseChangeRelay) OnChanged(m *graph.Member, old, new any, origin model.MutationOrigin) {
	r.derived.onBaseEvent()
}
func (r *baseChangeRelay) OnItemChanging(graph.IndexedObject, model.ChangeKind, model.Index, any) {}
func (r *baseChangeRelay) OnItemChanged(n graph.IndexedObject, kind model.ChangeKind, idx model.Index, id model.ItemId, new any, origin model.MutationOrigin) {
	r.derived.onBaseEvent()
}

var _ graph.EventSink = (*baseChangeRelay)(nil)

func (g *Graph) onBaseEvent() {
	if !g.propagate || g.updating {
		return
	}
	g.updating = true
	g.linker.Link(g.root, g.base.root)
	g.ReconcileWithBase()
	g.updating = false
	if g.onBaseChg != nil {
		g.onBaseChg(g)
	}
}

// ResetOverride clears override bits on node (a *graph.Member or a
// graph.IndexedObject) and its structural descendants, then reconciles,
// matching §6's reset_override.
func (g *Graph) ResetOverride(node graph.Node) {
	switch n := node.(type) {
	case *graph.Member:
		g.override.SetContentOverride(n, model.OverrideBase)
		switch t := n.Target.(type) {
		case *graph.Object:
			g.resetOverrideObject(t)
		case *graph.Collection:
			g.resetOverrideIndexed(t)
		case *graph.Dictionary:
			g.resetOverrideIndexed(t)
		}
	case *graph.Object:
		g.resetOverrideObject(n)
	case *graph.Collection:
		g.resetOverrideIndexed(n)
	case *graph.Dictionary:
		g.resetOverrideIndexed(n)
	}
	g.ReconcileWithBase()
}

func (g *Graph) resetOverrideObject(o *graph.Object) {
	for _, m := range o.Members() {
		g.override.SetContentOverride(m, model.OverrideBase)
		switch t := m.Target.(type) {
		case *graph.Object:
			g.resetOverrideObject(t)
		case *graph.Collection:
			g.resetOverrideIndexed(t)
		case *graph.Dictionary:
			g.resetOverrideIndexed(t)
		}
	}
}

func (g *Graph) resetOverrideIndexed(n graph.IndexedObject) {
	g.override.ForgetNode(n)
	for _, idx := range n.Indices() {
		if obj, ok := n.IndexedTarget(idx); ok {
			g.resetOverrideObject(obj)
		}
	}
}

// ClearAllOverrides wipes every override bit and returns a snapshot that
// can be handed to RestoreOverrides (§6, I5).
func (g *Graph) ClearAllOverrides() *override.Snapshot { return g.override.ClearAll() }

// RestoreOverrides reinstates a snapshot previously returned by
// ClearAllOverrides.
func (g *Graph) RestoreOverrides(snap *override.Snapshot) { g.override.Restore(snap) }

// PrepareForSave generates the two metadata blobs for this graph's
// current state (§4.7, §6).
func (g *Graph) PrepareForSave() *metadata.Blob {
	return metadata.Save(g.root, g.override)
}

// LoadFromSave applies a previously saved metadata blob to root (used
// when constructing a fresh Graph from a deserialized document), then
// resolves any object references that target content within root itself.
func LoadFromSave(root *graph.Object, logger graph.Logger, canUpdate reconciler.CanUpdateFunc, b *metadata.Blob) *Graph {
	g := New(root, logger, canUpdate)
	metadata.Load(g.root, g.override, b, logger)
	metadata.LinkReferences(g.root, g.arena, g.linker)
	return g
}

// InstantiateFromBase builds a fresh derived Graph whose initial content
// is a verbatim, identity-preserving copy of base's root (§9: initial
// derived content must share ItemIds with base so item-level
// reconciliation can match by identity from the start).
func InstantiateFromBase(base *Graph, logger graph.Logger, canUpdate reconciler.CanUpdateFunc) *Graph {
	root := clone.Materialize(graph.NopHost, base.root)
	g := New(root, logger, canUpdate)
	g.RefreshBase(base)
	return g
}
