package graph

import (
	"testing"

	"github.com/noslopforever/assetgraph/internal/model"
)

type recordingSink struct {
	events []string
}

func (s *recordingSink) OnChanging(m *Member, old any) { s.events = append(s.events, "Changing:"+m.Name) }
func (s *recordingSink) OnChanged(m *Member, old, new any, origin model.MutationOrigin) {
	s.events = append(s.events, "Changed:"+m.Name)
}
func (s *recordingSink) OnItemChanging(n IndexedObject, kind model.ChangeKind, idx model.Index, old any) {
	s.events = append(s.events, "ItemChanging:"+kind.String())
}
func (s *recordingSink) OnItemChanged(n IndexedObject, kind model.ChangeKind, idx model.Index, id model.ItemId, new any, origin model.MutationOrigin) {
	s.events = append(s.events, "ItemChanged:"+kind.String())
}

type testHost struct {
	sink *recordingSink
}

func (h testHost) Sink() EventSink { return h.sink }
func (h testHost) Logger() Logger  { return nopLogger{} }

func newTestHost() (Host, *recordingSink) {
	s := &recordingSink{}
	return testHost{sink: s}, s
}

func TestMemberUpdateFiresChangingThenChanged(t *testing.T) {
	h, s := newTestHost()
	o := NewObject("Prop", h)
	m := o.GetOrCreateMember("color", "string")
	m.Update("red", model.OriginLocal)

	want := []string{"Changing:color", "Changed:color"}
	if len(s.events) != len(want) {
		t.Fatalf("events = %v, want %v", s.events, want)
	}
	for i := range want {
		if s.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", s.events, want)
		}
	}
	if m.Retrieve() != "red" {
		t.Fatalf("Retrieve() = %v, want red", m.Retrieve())
	}
}

func TestCollectionAddAssignsFreshIdAndFiresEvents(t *testing.T) {
	h, s := newTestHost()
	c := NewCollection(true, h)

	id, err := c.Add(h, model.NewIntIndex(0), "outdoor", nil, model.OriginLocal)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == model.EmptyItemId {
		t.Fatalf("expected non-empty id")
	}
	want := []string{"ItemChanging:Add", "ItemChanged:Add"}
	if len(s.events) != 2 || s.events[0] != want[0] || s.events[1] != want[1] {
		t.Fatalf("events = %v, want %v", s.events, want)
	}
	if got, ok := c.IndexOf(id); !ok || got.Int != 0 {
		t.Fatalf("IndexOf(%v) = %v, %v", id, got, ok)
	}
}

func TestCollectionRemoveTracksRemovedId(t *testing.T) {
	h, _ := newTestHost()
	c := NewCollection(true, h)
	id, _ := c.Add(h, model.NewIntIndex(0), "outdoor", nil, model.OriginLocal)

	if err := c.Remove(h, model.NewIntIndex(0), model.OriginLocal); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
	if _, ok := c.IndexOf(id); ok {
		t.Fatalf("expected id to be gone from the live set")
	}
}

func TestDictionaryMoveFiresSingleEventPair(t *testing.T) {
	h, s := newTestHost()
	d := NewDictionary(true, h)
	id, err := d.Add(h, model.NewKeyIndex("k1"), "v1", nil, model.OriginLocal)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.events = nil

	if err := d.Move(h, "k1", "k2", model.OriginBase); err != nil {
		t.Fatalf("Move: %v", err)
	}
	want := []string{"ItemChanging:Move", "ItemChanged:Move"}
	if len(s.events) != 2 || s.events[0] != want[0] || s.events[1] != want[1] {
		t.Fatalf("events = %v, want %v (a rename must never look like a delete+insert)", s.events, want)
	}
	idx, ok := d.IndexOf(id)
	if !ok || idx.Key != "k2" {
		t.Fatalf("IndexOf(%v) = %v, %v, want key k2", id, idx, ok)
	}
	if d.HasKey("k1") {
		t.Fatalf("old key k1 should no longer be present")
	}
}

func TestResolveMemberThenItemId(t *testing.T) {
	h, _ := newTestHost()
	root := NewObject("Prop", h)
	tags := NewCollection(true, h)
	root.GetOrCreateMember("tags", "[]string").Target = tags
	id, _ := tags.Add(h, model.NewIntIndex(0), "outdoor", nil, model.OriginLocal)

	path := model.NodePath{model.MemberStep("tags"), model.ItemIdStep(id)}
	node, idx, resolvedOnIndex := Resolve(root, path)
	if node == nil {
		t.Fatalf("Resolve returned nil node")
	}
	if !resolvedOnIndex {
		t.Fatalf("expected resolvedOnIndex = true")
	}
	io, ok := node.(IndexedObject)
	if !ok {
		t.Fatalf("node is not an IndexedObject: %T", node)
	}
	val, ok := io.Retrieve(idx)
	if !ok || val != "outdoor" {
		t.Fatalf("Retrieve(%v) = %v, %v, want outdoor", idx, val, ok)
	}
}

func TestResolveUnreachablePathIsFailSoft(t *testing.T) {
	h, _ := newTestHost()
	root := NewObject("Prop", h)
	path := model.NodePath{model.MemberStep("nope")}
	node, _, _ := Resolve(root, path)
	if node != nil {
		t.Fatalf("expected nil for unreachable path, got %v", node)
	}
}

func TestWalkVisitsEachObjectOnce(t *testing.T) {
	h, _ := newTestHost()
	root := NewObject("Prop", h)
	child := NewObject("Tag", h)
	root.GetOrCreateMember("a", "Tag").Target = child
	root.GetOrCreateMember("b", "Tag").Target = child // same child reachable twice

	count := 0
	Walk(root, Visitor{VisitObject: func(o *Object) bool { count++; return true }})
	if count != 2 {
		t.Fatalf("visited %d objects, want 2 (root + child once)", count)
	}
}
