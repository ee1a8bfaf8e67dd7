package graph

import "github.com/noslopforever/assetgraph/internal/model"

// Resolve walks path from root, returning the node the path designates, the
// index/key the final step resolved (if any), and whether the final step
// was an Index/ItemId step at all (§4.2). A nil node return means the path
// is unreachable (PathUnreachable, §7) — callers must treat this as
// "skip this entry", never as fatal.
func Resolve(root *Object, path model.NodePath) (Node, model.Index, bool) {
	var cur Node = root
	lastIndex := model.EmptyIndex
	resolvedOnIndex := false

	for i, step := range path {
		last := i == len(path)-1

		switch step.Kind {
		case model.StepMember:
			obj, ok := asObject(cur)
			if !ok {
				return nil, model.EmptyIndex, false
			}
			child, ok := obj.Child(step.Name)
			if !ok {
				return nil, model.EmptyIndex, false
			}
			cur = child
			lastIndex = model.EmptyIndex
			resolvedOnIndex = false

		case model.StepIndex:
			io, ok := asIndexedObject(cur)
			if !ok {
				return nil, model.EmptyIndex, false
			}
			idx := step.Idx
			if _, ok := io.Retrieve(idx); !ok {
				return nil, model.EmptyIndex, false
			}
			lastIndex = idx
			resolvedOnIndex = true
			cur = io
			if !last {
				target, ok := io.IndexedTarget(idx)
				if !ok {
					return nil, model.EmptyIndex, false
				}
				cur = target
				lastIndex = model.EmptyIndex
				resolvedOnIndex = false
			}

		case model.StepItemId:
			io, ok := asIndexedObject(cur)
			if !ok {
				return nil, model.EmptyIndex, false
			}
			idx, ok := io.IndexOf(step.ID)
			if !ok {
				return nil, model.EmptyIndex, false
			}
			lastIndex = idx
			resolvedOnIndex = true
			cur = io
			if !last {
				target, ok := io.IndexedTarget(idx)
				if !ok {
					return nil, model.EmptyIndex, false
				}
				cur = target
				lastIndex = model.EmptyIndex
				resolvedOnIndex = false
			}
		}
	}

	return cur, lastIndex, resolvedOnIndex
}

// asObject extracts the *Object a Member/Object step should navigate from.
func asObject(n Node) (*Object, bool) {
	switch v := n.(type) {
	case *Object:
		return v, true
	case *Member:
		obj, ok := v.TargetObject()
		return obj, ok
	default:
		return nil, false
	}
}

// asIndexedObject extracts the IndexedObject an Index/ItemId step should
// navigate from.
func asIndexedObject(n Node) (IndexedObject, bool) {
	switch v := n.(type) {
	case *Collection:
		return v, true
	case *Dictionary:
		return v, true
	case *Member:
		io, ok := v.Target.(IndexedObject)
		return io, ok
	default:
		return nil, false
	}
}
