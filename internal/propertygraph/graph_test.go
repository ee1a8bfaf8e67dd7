package propertygraph

import (
	"testing"

	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/model"
)

func newPropAsset(color string) *graph.Object {
	root := graph.NewObject("Prop", graph.NopHost)
	root.GetOrCreateMember("color", "string").Value = color
	return root
}

// An unoverridden derived member follows its base when the base changes.
func TestScenarioS1BaseChangePropagates(t *testing.T) {
	base := New(newPropAsset("red"), nil, nil)
	derived := InstantiateFromBase(base, nil, nil)
	derived.SetPropagateChangesFromBase(true)

	colorMember, _ := base.RootNode().Child("color")
	colorMember.Update("green", model.OriginLocal)

	dm, _ := derived.RootNode().Child("color")
	if dm.Retrieve() != "green" {
		t.Fatalf("derived.color = %v, want green", dm.Retrieve())
	}
	if derived.Override().ContentOverride(dm) != model.OverrideBase {
		t.Fatalf("expected content_override = Base after base-driven update")
	}
}

// An overridden derived member ignores a subsequent base change.
func TestScenarioS2OverriddenMemberIgnoresBase(t *testing.T) {
	base := New(newPropAsset("red"), nil, nil)
	derived := InstantiateFromBase(base, nil, nil)
	derived.SetPropagateChangesFromBase(true)

	dm, _ := derived.RootNode().Child("color")
	dm.Update("blue", model.OriginLocal)

	colorMember, _ := base.RootNode().Child("color")
	colorMember.Update("green", model.OriginLocal)

	if dm.Retrieve() != "blue" {
		t.Fatalf("derived.color = %v, want blue (overridden)", dm.Retrieve())
	}
	if derived.Override().ContentOverride(dm) != model.OverrideNew {
		t.Fatalf("expected content_override = New")
	}
}

func newListAsset(items ...string) (*graph.Object, *graph.Collection) {
	root := graph.NewObject("Prop", graph.NopHost)
	coll := graph.NewCollection(true, graph.NopHost)
	root.GetOrCreateMember("tags", "[]string").Target = coll
	for i, v := range items {
		_, _ = coll.Add(graph.NopHost, model.NewIntIndex(i), v, nil, model.OriginLocal)
	}
	return root, coll
}

func collValues(t *testing.T, c *graph.Collection) []any {
	t.Helper()
	out := make([]any, 0, c.Len())
	for _, idx := range c.Indices() {
		v, _ := c.Retrieve(idx)
		out = append(out, v)
	}
	return out
}

// Removing an item from the base propagates to an inheriting derived list
// without recording it as a local deletion.
func TestScenarioS3BaseRemovalPropagates(t *testing.T) {
	baseRoot, baseColl := newListAsset("a", "b", "c")
	base := New(baseRoot, nil, nil)
	derived := InstantiateFromBase(base, nil, nil)
	derived.SetPropagateChangesFromBase(true)

	idxB, _ := baseColl.IndexOf(mustIDAt(t, baseColl, 1))
	if err := baseColl.Remove(base, idxB, model.OriginLocal); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	derivedColl := mustCollection(t, derived.RootNode())
	got := collValues(t, derivedColl)
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("derived tags = %v, want [a c]", got)
	}
	if len(derivedColl.DeletedItems()) != 0 {
		t.Fatalf("expected DeletedItems empty, got %v", derivedColl.DeletedItems())
	}
}

// A locally removed item stays removed after the base gains new items,
// while the base addition still flows through.
func TestScenarioS4LocalRemovalThenBaseAddition(t *testing.T) {
	baseRoot, baseColl := newListAsset("a", "b")
	base := New(baseRoot, nil, nil)
	derived := InstantiateFromBase(base, nil, nil)
	derived.SetPropagateChangesFromBase(true)

	derivedColl := mustCollection(t, derived.RootNode())
	bID := mustIDAt(t, derivedColl, 1)
	idx, _ := derivedColl.IndexOf(bID)
	if err := derivedColl.Remove(derived, idx, model.OriginLocal); err != nil {
		t.Fatalf("local Remove: %v", err)
	}
	if _, deleted := derivedColl.DeletedItems()[bID]; !deleted {
		t.Fatalf("expected b to be recorded as a deletion after local removal")
	}

	_, _ = baseColl.Add(base, model.NewIntIndex(baseColl.Len()), "d", nil, model.OriginLocal)

	got := collValues(t, derivedColl)
	if len(got) != 2 || got[0] != "a" || got[1] != "d" {
		t.Fatalf("derived tags = %v, want [a d]", got)
	}
	if _, stillDeleted := derivedColl.DeletedItems()[bID]; !stillDeleted {
		t.Fatalf("expected b to remain in DeletedItems")
	}
}

// Running reconciliation twice in a row must not change anything further.
func TestReconcileWithBaseIsIdempotent(t *testing.T) {
	baseRoot, _ := newListAsset("a", "b", "c")
	base := New(baseRoot, nil, nil)
	derived := InstantiateFromBase(base, nil, nil)

	derived.ReconcileWithBase()
	before := collValues(t, mustCollection(t, derived.RootNode()))
	derived.ReconcileWithBase()
	after := collValues(t, mustCollection(t, derived.RootNode()))

	if len(before) != len(after) {
		t.Fatalf("second reconcile changed length: before %v after %v", before, after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("second reconcile mutated values: before %v after %v", before, after)
		}
	}
}

func mustCollection(t *testing.T, root *graph.Object) *graph.Collection {
	t.Helper()
	m, ok := root.Child("tags")
	if !ok {
		t.Fatalf("no tags member")
	}
	c, ok := m.Target.(*graph.Collection)
	if !ok {
		t.Fatalf("tags member target is not a Collection: %T", m.Target)
	}
	return c
}

func mustIDAt(t *testing.T, c *graph.Collection, pos int) model.ItemId {
	t.Helper()
	idxs := c.Indices()
	if pos >= len(idxs) {
		t.Fatalf("position %d out of range (len=%d)", pos, len(idxs))
	}
	id, ok := c.ItemIDAt(idxs[pos])
	if !ok {
		t.Fatalf("no id at position %d", pos)
	}
	return id
}
