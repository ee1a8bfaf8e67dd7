// Package clone implements the two subtree-duplication operations the
// engine needs: Clone, which assigns every duplicated node a fresh
// ItemId (used when a user-facing "duplicate" operation genuinely mints
// a new item), and Materialize, which copies a base subtree verbatim,
// preserving every ItemId so the copy remains identity-matched to its
// base (§4.6.2's "restore() to preserve exact ItemIds on reinsertion",
// and the initial instantiation of a derived asset's content from base).
package clone

import (
	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/model"
)

// IDMap maps an ItemId from the source tree to the id it was given in the
// clone. For Materialize this is always the identity map.
type IDMap map[model.ItemId]model.ItemId

type pendingRef struct {
	member *graph.Member
	oldID  model.ItemId
}

// Clone deep-copies root into a fresh, detached tree hosted by h (pass
// graph.NopHost if the clone will be attached elsewhere immediately).
// Every identifiable Object, Collection entry, and Dictionary entry is
// given a brand new ItemId; object references within the cloned subtree
// are rewritten to point at the corresponding new id. A reference whose
// target lies outside the cloned subtree is left unchanged.
func Clone(h graph.Host, root *graph.Object) (*graph.Object, IDMap) {
	return duplicate(h, root, true)
}

// Materialize deep-copies root into a fresh, detached tree hosted by h,
// preserving every ItemId exactly. Used to instantiate derived content
// that must remain identity-matched to the base node it mirrors.
func Materialize(h graph.Host, root *graph.Object) *graph.Object {
	out, _ := duplicate(h, root, false)
	return out
}

func duplicate(h graph.Host, root *graph.Object, fresh bool) (*graph.Object, IDMap) {
	if root == nil {
		return nil, nil
	}
	if h == nil {
		h = graph.NopHost
	}
	ids := make(IDMap)
	var refs []pendingRef
	cloned := cloneObject(h, root, ids, &refs, fresh)
	for _, r := range refs {
		if newID, ok := ids[r.oldID]; ok {
			r.member.ObjectRefID = newID
		}
	}
	return cloned, ids
}

func remapID(old model.ItemId, ids IDMap, fresh bool) model.ItemId {
	if old == model.EmptyItemId {
		return model.EmptyItemId
	}
	if mapped, ok := ids[old]; ok {
		return mapped
	}
	out := old
	if fresh {
		out = model.NewItemId()
	}
	ids[old] = out
	return out
}

func cloneObject(h graph.Host, src *graph.Object, ids IDMap, refs *[]pendingRef, fresh bool) *graph.Object {
	dst := graph.NewObject(src.DeclaredType, h)
	if src.ItemID != model.EmptyItemId {
		dst.ItemID = remapID(src.ItemID, ids, fresh)
	}
	for _, sm := range src.Members() {
		dm := dst.GetOrCreateMember(sm.Name, sm.DeclaredType)
		dm.CanOverride = sm.CanOverride
		dm.IsReference = sm.IsReference
		dm.IsObjectReference = sm.IsObjectReference
		if sm.ContentRef != nil {
			ref := *sm.ContentRef
			dm.ContentRef = &ref
		}
		if sm.IsObjectReference && sm.ObjectRefID != model.EmptyItemId {
			*refs = append(*refs, pendingRef{member: dm, oldID: sm.ObjectRefID})
			dm.ObjectRefID = sm.ObjectRefID
		}
		switch t := sm.Target.(type) {
		case *graph.Object:
			dm.Target = cloneObject(h, t, ids, refs, fresh)
		case *graph.Collection:
			dm.Target = cloneCollection(h, t, ids, refs, fresh)
		case *graph.Dictionary:
			dm.Target = cloneDictionary(h, t, ids, refs, fresh)
		default:
			dm.Value = sm.Value
		}
	}
	return dst
}

func cloneCollection(h graph.Host, src *graph.Collection, ids IDMap, refs *[]pendingRef, fresh bool) *graph.Collection {
	dst := graph.NewCollection(src.Identifiable, h)
	dst.ItemsAreReferences = src.ItemsAreReferences
	for _, idx := range src.Indices() {
		val, _ := src.Retrieve(idx)
		id, _ := src.ItemIDAt(idx)
		newID := model.EmptyItemId
		if src.Identifiable {
			newID = remapID(id, ids, fresh)
		}
		var target *graph.Object
		var value any
		switch v := val.(type) {
		case *graph.Object:
			target = cloneObject(h, v, ids, refs, fresh)
		default:
			value = v
		}
		_ = dst.Restore(h, model.NewIntIndex(dst.Len()), value, target, newID, model.OriginBase)
	}
	return dst
}

func cloneDictionary(h graph.Host, src *graph.Dictionary, ids IDMap, refs *[]pendingRef, fresh bool) *graph.Dictionary {
	dst := graph.NewDictionary(src.Identifiable, h)
	dst.ItemsAreReferences = src.ItemsAreReferences
	for _, idx := range src.Indices() {
		val, _ := src.Retrieve(idx)
		id, _ := src.ItemIDAt(idx)
		newID := model.EmptyItemId
		if src.Identifiable {
			newID = remapID(id, ids, fresh)
		}
		var target *graph.Object
		var value any
		switch v := val.(type) {
		case *graph.Object:
			target = cloneObject(h, v, ids, refs, fresh)
		default:
			value = v
		}
		_ = dst.Restore(h, idx, value, target, newID, model.OriginBase)
	}
	return dst
}
