package graph

import "github.com/noslopforever/assetgraph/internal/model"

// Object is a structural value with named Member children (§4.1,
// ObjectNode). Objects reached only as identifiable items or as object
// reference targets carry a stable ItemID; plain nested objects (owned
// structurally, never addressed by id) have ItemID == EmptyItemId.
type Object struct {
	DeclaredType string
	ItemID       model.ItemId

	members     map[string]*Member
	memberOrder []string

	host Host
}

// NewObject creates an empty Object attached to host (use NopHost for a
// detached scratch object, e.g. inside the cloner).
func NewObject(declaredType string, h Host) *Object {
	if h == nil {
		h = NopHost
	}
	return &Object{
		DeclaredType: declaredType,
		members:      make(map[string]*Member),
		host:         h,
	}
}

func (o *Object) Kind() NodeKind { return KindObject }

// Child looks up a named member, matching the "ObjectNode contract" shared
// with Member for structural navigation (§4.1).
func (o *Object) Child(name string) (*Member, bool) {
	m, ok := o.members[name]
	return m, ok
}

// Members returns every member in declaration/insertion order.
func (o *Object) Members() []*Member {
	out := make([]*Member, 0, len(o.memberOrder))
	for _, name := range o.memberOrder {
		out = append(out, o.members[name])
	}
	return out
}

// MemberNames returns member names in insertion order.
func (o *Object) MemberNames() []string {
	out := make([]string, len(o.memberOrder))
	copy(out, o.memberOrder)
	return out
}

// GetOrCreateMember returns the named member, creating an empty one
// (can_override=true by default) if absent — the "get_or_create" shape of
// §4.1, specialized to members instead of the asset root.
func (o *Object) GetOrCreateMember(name, declaredType string) *Member {
	if m, ok := o.members[name]; ok {
		return m
	}
	m := &Member{
		Name:         name,
		DeclaredType: declaredType,
		CanOverride:  true,
		owner:        o,
		host:         o.host,
	}
	o.members[name] = m
	o.memberOrder = append(o.memberOrder, name)
	return m
}

// SetHost rebinds this object (and every existing member/descendant
// container it owns structurally) to a new event host. Used when an
// object built detached (e.g. by the cloner) is attached into a live
// graph.
func (o *Object) SetHost(h Host) {
	o.host = h
	for _, m := range o.members {
		m.setHost(h)
		switch t := m.Target.(type) {
		case *Object:
			t.SetHost(h)
		case *Collection:
			t.setHost(h)
		case *Dictionary:
			t.setHost(h)
		}
	}
}
