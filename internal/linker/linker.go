// Package linker implements the base linker (component D) and the
// base→derived object-reference registry (component F). It walks a
// derived graph and its base in lockstep — matching members by name and
// identifiable items by ItemId — recording which derived node mirrors
// which base node, and lets the reconciler discover "does this node have
// a base" and "what base value should an unoverridden node converge to"
// without either side needing to know about the other's existence.
//
// Grounded on the teacher's Reconciler.reconcileAsset, which walks a
// scanned asset and its stored record in lockstep matching relationships
// by composite key, and on the hierarchical-namespaces reconciler's
// parent/child lockstep traversal with a pluggable redirect policy.
package linker

import (
	"sync"

	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/model"
	"github.com/noslopforever/assetgraph/internal/override"
)

// FindTargetFunc resolves which base member a derived member should link
// to. The default policy matches by name; a composite asset (one whose
// members can redirect through a nested, separately-identified asset) may
// supply a policy that resolves through that boundary instead.
type FindTargetFunc func(baseParent *graph.Object, derivedMember *graph.Member) (*graph.Member, bool)

func defaultFindTarget(baseParent *graph.Object, derivedMember *graph.Member) (*graph.Member, bool) {
	if baseParent == nil {
		return nil, false
	}
	return baseParent.Child(derivedMember.Name)
}

// Linker tracks the correspondence between one derived graph and its base.
type Linker struct {
	mu sync.Mutex

	memberBase map[*graph.Member]*graph.Member
	memberDer  map[*graph.Member]*graph.Member

	nodeBase map[graph.Node]graph.Node
	nodeDer  map[graph.Node]graph.Node

	pendingRefs map[model.ItemId][]*graph.Member

	findTarget FindTargetFunc
}

// New creates an empty Linker using the default name-matching policy.
func New() *Linker {
	return &Linker{
		memberBase:  make(map[*graph.Member]*graph.Member),
		memberDer:   make(map[*graph.Member]*graph.Member),
		nodeBase:    make(map[graph.Node]graph.Node),
		nodeDer:     make(map[graph.Node]graph.Node),
		pendingRefs: make(map[model.ItemId][]*graph.Member),
		findTarget:  defaultFindTarget,
	}
}

// SetFindTarget installs a custom member-matching policy, for composite
// assets whose derived members resolve through a nested asset boundary.
func (l *Linker) SetFindTarget(f FindTargetFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if f == nil {
		f = defaultFindTarget
	}
	l.findTarget = f
}

// Link walks derived and base in lockstep, recording base links for every
// member and identifiable item reached from derivedRoot. It does not
// require derived and base to be structurally identical: it only links
// what it can find a counterpart for, leaving the rest to the
// reconciler's insert/remove passes.
func (l *Linker) Link(derivedRoot, baseRoot *graph.Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.linkObject(derivedRoot, baseRoot)
}

func (l *Linker) linkObject(derived, base *graph.Object) {
	if derived == nil || base == nil {
		return
	}
	l.nodeBase[derived] = base
	l.nodeDer[base] = derived

	for _, dm := range derived.Members() {
		bm, ok := l.findTarget(base, dm)
		if !ok {
			continue
		}
		l.memberBase[dm] = bm
		l.memberDer[bm] = dm

		if dm.IsObjectReference && dm.ObjectRefID != model.EmptyItemId {
			l.pendingRefs[dm.ObjectRefID] = append(l.pendingRefs[dm.ObjectRefID], dm)
		}

		switch dt := dm.Target.(type) {
		case *graph.Object:
			if bo, ok := bm.Target.(*graph.Object); ok {
				l.linkObject(dt, bo)
			}
		case *graph.Collection:
			if bc, ok := bm.Target.(*graph.Collection); ok {
				l.linkIndexed(dt, bc)
			}
		case *graph.Dictionary:
			if bd, ok := bm.Target.(*graph.Dictionary); ok {
				l.linkIndexed(dt, bd)
			}
		}
	}
}

func (l *Linker) linkIndexed(derived, base graph.IndexedObject) {
	l.nodeBase[derived] = base
	l.nodeDer[base] = derived
	if !derived.IsIdentifiable() || !base.IsIdentifiable() {
		return
	}
	for _, idx := range derived.Indices() {
		id, ok := derived.ItemIDAt(idx)
		if !ok || id == model.EmptyItemId {
			continue
		}
		baseIdx, ok := base.IndexOf(id)
		if !ok {
			continue
		}
		dval, _ := derived.Retrieve(idx)
		bval, _ := base.Retrieve(baseIdx)
		dObj, dIsObj := dval.(*graph.Object)
		bObj, bIsObj := bval.(*graph.Object)
		if dIsObj && bIsObj {
			l.linkObject(dObj, bObj)
		}
	}
}

// ClearAllBaseLinks detaches a graph from its base entirely (§6's
// clear_all_base_links), used when a graph's base reference is removed.
func (l *Linker) ClearAllBaseLinks() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.memberBase = make(map[*graph.Member]*graph.Member)
	l.memberDer = make(map[*graph.Member]*graph.Member)
	l.nodeBase = make(map[graph.Node]graph.Node)
	l.nodeDer = make(map[graph.Node]graph.Node)
	l.pendingRefs = make(map[model.ItemId][]*graph.Member)
}

// BaseOfMember returns the base member a derived member is linked to.
func (l *Linker) BaseOfMember(m *graph.Member) (*graph.Member, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bm, ok := l.memberBase[m]
	return bm, ok
}

// DerivedOfMember returns the derived member linked to a base member, if
// any forward-propagation listener needs to reach it.
func (l *Linker) DerivedOfMember(m *graph.Member) (*graph.Member, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	dm, ok := l.memberDer[m]
	return dm, ok
}

// BaseOfNode returns the base structural node (Object, Collection, or
// Dictionary) a derived node is linked to.
func (l *Linker) BaseOfNode(n graph.Node) (graph.Node, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bn, ok := l.nodeBase[n]
	return bn, ok
}

// HasBase reports whether n has any recorded base link, satisfying
// override.BaseChecker.
func (l *Linker) HasBase(n graph.Node) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.nodeBase[n]
	return ok
}

var _ override.BaseChecker = (*Linker)(nil)

// RegisterPendingReference records that member m holds an unresolved
// object reference to targetID — used when the reconciler discovers a
// reference to an item that has not yet been inserted locally.
func (l *Linker) RegisterPendingReference(targetID model.ItemId, m *graph.Member) {
	if targetID == model.EmptyItemId {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pendingRefs[targetID] = append(l.pendingRefs[targetID], m)
}

// ResolvePendingReferences looks up every member waiting on targetID and,
// if it is now present in arena, points the member's Target at it.
func (l *Linker) ResolvePendingReferences(arena *graph.Arena, targetID model.ItemId) {
	obj, ok := arena.Lookup(targetID)
	if !ok {
		return
	}
	l.mu.Lock()
	waiters := l.pendingRefs[targetID]
	delete(l.pendingRefs, targetID)
	l.mu.Unlock()
	for _, m := range waiters {
		m.Target = obj
	}
}
