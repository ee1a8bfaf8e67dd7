package graph

import "github.com/noslopforever/assetgraph/internal/model"

// Member is a named field of an owning Object (§4.1, MemberNode).
type Member struct {
	Name        string
	DeclaredType string
	CanOverride bool

	// IsReference marks that Value/Target holds a reference into the
	// graph (possibly a non-owning one) rather than an owned value.
	IsReference bool
	// IsObjectReference marks that the value addresses an identifiable
	// object by id rather than containing it structurally.
	IsObjectReference bool
	// ObjectRefID is the identifiable id this member points at, valid
	// when IsObjectReference is true.
	ObjectRefID model.ItemId

	// Value holds a primitive (non-structural, non-reference) value.
	Value any
	// Target holds the structural/reference child when this member's
	// value is an Object, Collection, or Dictionary.
	Target Node
	// ContentRef holds an attached (id, url) pointer to another asset,
	// when this member's value is a content reference rather than a
	// plain primitive (§4.6.1).
	ContentRef *model.ContentReference

	owner *Object
	host  Host
}

func (m *Member) Kind() NodeKind { return KindMember }

// Owner returns the Object this member belongs to.
func (m *Member) Owner() *Object { return m.owner }

func (m *Member) setHost(h Host) { m.host = h }

func (m *Member) host_() Host {
	if m.host == nil {
		return NopHost
	}
	return m.host
}

// Retrieve returns the member's current value: its primitive Value, or its
// structural/reference Target if one is set.
func (m *Member) Retrieve() any {
	if m.Target != nil {
		return m.Target
	}
	return m.Value
}

// TargetObject returns the member's Target as an *Object, following a
// reference if IsReference is set. Returns (nil, false) if the member has
// no Object target (e.g. it targets a Collection/Dictionary, or has no
// target at all).
func (m *Member) TargetObject() (*Object, bool) {
	obj, ok := m.Target.(*Object)
	return obj, ok
}

// Update sets a new primitive value, firing Changing before and Changed
// after (§4.1: "update on a primitive member fires value-change events").
func (m *Member) Update(newValue any, origin model.MutationOrigin) {
	sink := m.host_().Sink()
	old := m.Value
	sink.OnChanging(m, old)
	m.Value = newValue
	m.Target = nil
	sink.OnChanged(m, old, newValue, origin)
}

// SetTarget attaches a structural or reference child node and clears
// Value, firing Changing before and Changed after with the member's old
// and new Retrieve() values.
func (m *Member) SetTarget(target Node, origin model.MutationOrigin) {
	sink := m.host_().Sink()
	old := m.Retrieve()
	sink.OnChanging(m, old)
	m.Target = target
	m.Value = nil
	sink.OnChanged(m, old, m.Retrieve(), origin)
}

// SetContentRef updates the member's content-reference value (§4.6.1).
func (m *Member) SetContentRef(ref *model.ContentReference, origin model.MutationOrigin) {
	sink := m.host_().Sink()
	old := m.Retrieve()
	sink.OnChanging(m, old)
	m.ContentRef = ref
	sink.OnChanged(m, old, m.Retrieve(), origin)
}
