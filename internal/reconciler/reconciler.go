// Package reconciler implements component G: bringing a derived graph back
// into conformance with its linked base, skipping every position whose
// override bit says it was locally authored (§4.6).
//
// Grounded on the teacher's Reconciler (internal/reconciler/reconciler.go):
// a constructor taking its collaborators and a *zap.Logger, a top-level
// Reconcile that walks a record and logs-and-continues per item rather
// than aborting the whole pass, and a detectChanges-shaped per-field
// comparison that this package generalizes into ShouldReconcileMember /
// ShouldReconcileItem. The two-pass identifiable-collection algorithm is
// grounded on the archon three_way.go merge's insert/update/remove
// bucketing by logical key.
package reconciler

import (
	"reflect"

	"github.com/noslopforever/assetgraph/internal/clone"
	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/linker"
	"github.com/noslopforever/assetgraph/internal/model"
	"github.com/noslopforever/assetgraph/internal/override"
)

// CanUpdateFunc vetoes an insertion or in-place update during
// reconciliation (§6's can_update extension point). The zero value always
// allows the operation.
type CanUpdateFunc func(n graph.IndexedObject, kind model.ChangeKind, idx model.Index, value any) bool

func defaultCanUpdate(graph.IndexedObject, model.ChangeKind, model.Index, any) bool { return true }

// Reconciler enforces §4.6's invariant for one graph against its base.
type Reconciler struct {
	logger    graph.Logger
	canUpdate CanUpdateFunc
}

// New creates a Reconciler. A nil logger becomes a no-op logger; a nil
// canUpdate always allows the operation — matching the teacher's
// New(store, collectors, logger) constructor shape.
func New(logger graph.Logger, canUpdate CanUpdateFunc) *Reconciler {
	if canUpdate == nil {
		canUpdate = defaultCanUpdate
	}
	return &Reconciler{logger: logger, canUpdate: canUpdate}
}

func (r *Reconciler) warn(msg string, keysAndValues ...any) {
	if r.logger != nil {
		r.logger.Warnw(msg, keysAndValues...)
	}
}

// Env bundles the collaborators the reconciler needs but does not own,
// mirroring the teacher's pattern of passing a Registry/Notifier pair into
// Reconcile rather than storing graph-instance state on the Reconciler
// itself (one Reconciler serves every graph in a Container).
type Env struct {
	Host     graph.Host
	Linker   *linker.Linker
	Override *override.Store
	Arena    *graph.Arena
}

// Reconcile walks derivedRoot depth-first and, for every node reachable
// from it that has a recorded base link, applies §4.6.1/§4.6.2. Nodes
// without a base link are skipped for direct reconciliation but still
// descended into, since a composite asset may link sub-entities
// independently (§9's partial-linkage note).
func (r *Reconciler) Reconcile(env Env, derivedRoot *graph.Object) {
	r.reconcileObject(env, derivedRoot)
}

func (r *Reconciler) reconcileObject(env Env, obj *graph.Object) {
	if obj == nil {
		return
	}
	for _, m := range obj.Members() {
		r.reconcileMember(env, m)
	}
}

func (r *Reconciler) reconcileMember(env Env, dm *graph.Member) {
	bm, linked := env.Linker.BaseOfMember(dm)
	if linked {
		if dm.CanOverride {
			ov := env.Override.ContentOverride(dm)
			if ov == model.OverrideBase {
				r.reconcileMemberValue(env, dm, bm)
			}
		}
	}
	switch t := dm.Target.(type) {
	case *graph.Object:
		r.reconcileObject(env, t)
	case *graph.Collection:
		if bt, ok := baseIndexedOf(env, t); ok {
			r.reconcileIndexed(env, t, bt)
		}
		r.descendIndexed(env, t)
	case *graph.Dictionary:
		if bt, ok := baseIndexedOf(env, t); ok {
			r.reconcileIndexed(env, t, bt)
		}
		r.descendIndexed(env, t)
	}
}

func baseIndexedOf(env Env, n graph.IndexedObject) (graph.IndexedObject, bool) {
	bn, ok := env.Linker.BaseOfNode(n)
	if !ok {
		return nil, false
	}
	bio, ok := bn.(graph.IndexedObject)
	return bio, ok
}

func (r *Reconciler) descendIndexed(env Env, n graph.IndexedObject) {
	for _, idx := range n.Indices() {
		if obj, ok := n.IndexedTarget(idx); ok {
			r.reconcileObject(env, obj)
		}
	}
}

// shouldReconcileMember implements §4.6.1's ShouldReconcileMember rule.
func shouldReconcileMember(env Env, dm, bm *graph.Member) bool {
	if bm.IsObjectReference && bm.ObjectRefID != model.EmptyItemId {
		derivedTarget, ok := resolveBaseToDerived(env, bm.ObjectRefID)
		if !ok {
			return dm.Target != nil
		}
		cur, _ := dm.Target.(*graph.Object)
		return cur != derivedTarget
	}
	if dm.IsReference || bm.IsReference {
		return nodeKindOf(dm.Target) != nodeKindOf(bm.Target)
	}
	if isStructural(bm.Target) || isStructural(dm.Target) {
		// A Collection/Dictionary/Object-targeted member is never a
		// scalar-equality question: reconcileMember's type-directed switch
		// (reconcileIndexed / reconcileObject) is what keeps its content
		// converged afterward, item by item and member by member, each
		// respecting its own override bit. This only reports true when
		// the kinds disagree — i.e. the derived side has nothing of the
		// right shape yet and needs the one-time bootstrap clone below.
		return nodeKindOf(dm.Target) != nodeKindOf(bm.Target)
	}
	if dm.ContentRef != nil || bm.ContentRef != nil {
		if dm.ContentRef == nil || bm.ContentRef == nil {
			return true
		}
		return !dm.ContentRef.Equal(*bm.ContentRef)
	}
	return !reflect.DeepEqual(dm.Retrieve(), bm.Retrieve())
}

func nodeKindOf(n graph.Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.Kind().String()
}

// isStructural reports whether n is an Object/Collection/Dictionary,
// i.e. a member target whose content is reconciled by recursing into it
// rather than by comparing it as a value.
func isStructural(n graph.Node) bool {
	switch n.(type) {
	case *graph.Object, *graph.Collection, *graph.Dictionary:
		return true
	default:
		return false
	}
}

// resolveBaseToDerived looks up the derived-side identifiable object that
// mirrors base identity id, via the graph's arena (derived and base share
// identical ItemIds for materialized content, §9).
func resolveBaseToDerived(env Env, id model.ItemId) (*graph.Object, bool) {
	if env.Arena == nil {
		return nil, false
	}
	return env.Arena.Lookup(id)
}

func (r *Reconciler) reconcileMemberValue(env Env, dm, bm *graph.Member) {
	if !shouldReconcileMember(env, dm, bm) {
		return
	}
	if bm.IsObjectReference && bm.ObjectRefID != model.EmptyItemId {
		if target, ok := resolveBaseToDerived(env, bm.ObjectRefID); ok {
			dm.SetTarget(target, model.OriginResetOverride)
		} else {
			env.Linker.RegisterPendingReference(bm.ObjectRefID, dm)
		}
		return
	}
	// shouldReconcileMember only lets a structural bm.Target reach here when
	// dm has nothing of matching kind yet, so this is strictly the one-time
	// bootstrap clone, never a replacement of already-linked content: once
	// dm.Target agrees with bm.Target on kind, ongoing convergence happens
	// through reconcileIndexed/reconcileObject instead, preserving every
	// override bit recorded against the existing nested Members.
	switch bt := bm.Target.(type) {
	case *graph.Object:
		dm.SetTarget(clone.Materialize(env.Host, bt), model.OriginResetOverride)
	case *graph.Collection:
		dm.SetTarget(cloneIndexedStandalone(env.Host, bt), model.OriginResetOverride)
	case *graph.Dictionary:
		dm.SetTarget(cloneIndexedStandalone(env.Host, bt), model.OriginResetOverride)
	default:
		dm.Update(bm.Retrieve(), model.OriginResetOverride)
	}
}

func cloneIndexedStandalone(h graph.Host, src graph.Node) graph.Node {
	wrapper := graph.NewObject("", h)
	wm := wrapper.GetOrCreateMember("$value", "")
	wm.Target = src
	cloned := clone.Materialize(h, wrapper)
	if cm, ok := cloned.Child("$value"); ok {
		return cm.Target
	}
	return nil
}

// reconcileIndexed implements §4.6.2 for one identifiable collection or
// dictionary: two passes, operating purely on ItemIds.
func (r *Reconciler) reconcileIndexed(env Env, derived, base graph.IndexedObject) {
	if !derived.IsIdentifiable() || !base.IsIdentifiable() {
		return
	}

	baseIDs := make(map[model.ItemId]bool)
	baseOrder := make([]model.ItemId, 0, len(base.Indices()))
	for _, idx := range base.Indices() {
		id, ok := base.ItemIDAt(idx)
		if !ok || id == model.EmptyItemId {
			continue
		}
		baseIDs[id] = true
		baseOrder = append(baseOrder, id)
	}

	// Pass 1: removals and deleted-set cleanup.
	var toRemove []model.ItemId
	for _, idx := range derived.Indices() {
		id, ok := derived.ItemIDAt(idx)
		if !ok {
			continue
		}
		if id == model.EmptyItemId {
			r.warn("corrupted id map entry dropped during reconciliation")
			toRemove = append(toRemove, id)
			continue
		}
		if env.Override.IsItemOverridden(derived, id) {
			continue
		}
		if !baseIDs[id] {
			toRemove = append(toRemove, id)
		}
	}
	for id := range derived.DeletedItems() {
		if !baseIDs[id] {
			derived.UnmarkDeleted(id)
		}
	}

	// Pass 2: additions and value reconciliation, decided before pass-1
	// removals are applied. Insertion positions are computed later, after
	// the removals, against the derived layout as it then stands.
	type addition struct {
		id  model.ItemId
		key any
	}
	var toAdd []addition
	deletedSet := derived.DeletedItems()

	for _, id := range baseOrder {
		if _, deleted := deletedSet[id]; deleted {
			continue
		}
		dIdx, present := derived.IndexOf(id)
		if !present {
			if dict, isDict := derived.(*graph.Dictionary); isDict {
				bIdx, _ := base.IndexOf(id)
				key := bIdx.Key
				if dict.HasKey(key) || !r.canUpdate(derived, model.CollectionAdd, model.NewKeyIndex(key), nil) {
					derived.MarkDeleted(id)
					continue
				}
			} else if !r.canUpdate(derived, model.CollectionAdd, model.EmptyIndex, nil) {
				derived.MarkDeleted(id)
				continue
			}
			bIdx, _ := base.IndexOf(id)
			toAdd = append(toAdd, addition{id: id, key: bIdx.Key})
			continue
		}
		if env.Override.IsItemOverridden(derived, id) {
			continue
		}
		bIdx, _ := base.IndexOf(id)
		r.reconcileItemValue(env, derived, base, dIdx, bIdx, id)

		if dict, isDict := derived.(*graph.Dictionary); isDict {
			if env.Override.IsKeyOverridden(derived, id) {
				continue
			}
			oldKey, newKey := dIdx.Key, bIdx.Key
			if oldKey != newKey {
				if err := dict.Move(env.Host, oldKey, newKey, model.OriginBase); err != nil {
					r.warn("base key move failed", "id", id, "err", err)
				}
			}
		}
	}

	// Apply pass-1 removals (origin Base: not a deletion, just a
	// reconciliation step).
	for _, id := range toRemove {
		if id == model.EmptyItemId {
			r.removeFirstEmptyID(env, derived)
			continue
		}
		idx, ok := derived.IndexOf(id)
		if !ok {
			continue
		}
		if err := derived.Remove(env.Host, idx, model.OriginBase); err != nil {
			r.warn("reconciliation removal failed", "id", id, "err", err)
		}
	}

	// Apply pass-2 insertions.
	for _, a := range toAdd {
		bIdx, _ := base.IndexOf(a.id)
		val, _ := base.Retrieve(bIdx)
		var clonedVal any
		var clonedObj *graph.Object
		if obj, ok := val.(*graph.Object); ok {
			clonedObj = clone.Materialize(env.Host, obj)
		} else {
			clonedVal = val
		}

		if _, isDict := derived.(*graph.Dictionary); isDict {
			idx := model.NewKeyIndex(a.key)
			if err := derived.Restore(env.Host, idx, clonedVal, clonedObj, a.id, model.OriginBase); err != nil {
				r.warn("reconciliation insert failed", "id", a.id, "err", err)
			}
			continue
		}

		pos := insertionPosition(baseOrder, derived, a.id)
		idx := model.NewIntIndex(pos)
		if err := derived.Restore(env.Host, idx, clonedVal, clonedObj, a.id, model.OriginBase); err != nil {
			r.warn("reconciliation insert failed", "id", a.id, "err", err)
		}
		env.Linker.ResolvePendingReferences(env.Arena, a.id)
	}
}

func (r *Reconciler) removeFirstEmptyID(env Env, n graph.IndexedObject) {
	for _, idx := range n.Indices() {
		id, ok := n.ItemIDAt(idx)
		if ok && id == model.EmptyItemId {
			_ = n.Remove(env.Host, idx, model.OriginBase)
			return
		}
	}
}

func (r *Reconciler) reconcileItemValue(env Env, derived, base graph.IndexedObject, dIdx, bIdx model.Index, id model.ItemId) {
	dVal, _ := derived.Retrieve(dIdx)
	bVal, _ := base.Retrieve(bIdx)

	dObj, dIsObj := dVal.(*graph.Object)
	bObj, bIsObj := bVal.(*graph.Object)
	if dIsObj || bIsObj {
		// Structural item values are reconciled member-by-member once
		// linked, not replaced wholesale: fall through to the recursive
		// walk via descendIndexed, which runs after this pass completes.
		_ = dObj
		_ = bObj
		return
	}
	if reflect.DeepEqual(dVal, bVal) {
		return
	}
	if !r.canUpdate(derived, model.CollectionUpdate, dIdx, bVal) {
		return
	}
	if err := derived.Update(env.Host, dIdx, bVal, nil, model.OriginBase); err != nil {
		r.warn("reconciliation update failed", "id", id, "err", err)
	}
}

// insertionPosition implements §4.6.2's base-order reconstruction scan:
// scan base indices immediately preceding the inserted id; the first one
// that is also present in derived anchors the insertion at
// derived_position + 1. If none is found, insert at 0.
func insertionPosition(baseOrder []model.ItemId, derived graph.IndexedObject, id model.ItemId) int {
	baseIdx := -1
	for i, v := range baseOrder {
		if v == id {
			baseIdx = i
			break
		}
	}
	if baseIdx < 0 {
		return 0
	}
	for i := baseIdx - 1; i >= 0; i-- {
		if pos, ok := derivedPosition(derived, baseOrder[i]); ok {
			return pos + 1
		}
	}
	return 0
}

func derivedPosition(derived graph.IndexedObject, id model.ItemId) (int, bool) {
	for i, idx := range derived.Indices() {
		if existing, ok := derived.ItemIDAt(idx); ok && existing == id {
			return i, true
		}
	}
	return 0, false
}
