package graph

// Visitor is called once per structural node reached while walking a
// graph rooted at some Object. Returning false from VisitObject stops the
// walk from descending further into that object's members (used by
// traversals that only need the first occurrence of a cyclic object).
type Visitor struct {
	VisitObject func(o *Object) bool
	VisitMember func(m *Member)
	VisitColl   func(c *Collection)
	VisitDict   func(d *Dictionary)
}

// Walk performs a depth-first traversal from root, visiting every
// structural Object exactly once even in the presence of reference cycles
// among identifiable objects (§4.1, §9: "traversal operations must avoid
// revisiting the same structural object twice").
func Walk(root *Object, v Visitor) {
	seen := make(map[*Object]bool)
	walkObject(root, v, seen)
}

func walkObject(o *Object, v Visitor, seen map[*Object]bool) {
	if o == nil || seen[o] {
		return
	}
	seen[o] = true
	descend := true
	if v.VisitObject != nil {
		descend = v.VisitObject(o)
	}
	if !descend {
		return
	}
	for _, m := range o.Members() {
		if v.VisitMember != nil {
			v.VisitMember(m)
		}
		switch t := m.Target.(type) {
		case *Object:
			walkObject(t, v, seen)
		case *Collection:
			if v.VisitColl != nil {
				v.VisitColl(t)
			}
			for _, idx := range t.Indices() {
				if child, ok := t.IndexedTarget(idx); ok {
					walkObject(child, v, seen)
				}
			}
		case *Dictionary:
			if v.VisitDict != nil {
				v.VisitDict(t)
			}
			for _, idx := range t.Indices() {
				if child, ok := t.IndexedTarget(idx); ok {
					walkObject(child, v, seen)
				}
			}
		}
	}
}
