package reconciler

import (
	"testing"

	"github.com/noslopforever/assetgraph/internal/clone"
	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/linker"
	"github.com/noslopforever/assetgraph/internal/model"
	"github.com/noslopforever/assetgraph/internal/override"
)

type testHost struct{ s *override.Store }

func (h testHost) Sink() graph.EventSink { return h.s }
func (h testHost) Logger() graph.Logger  { return nil }

func registerArena(arena *graph.Arena, root *graph.Object) {
	graph.Walk(root, graph.Visitor{
		VisitObject: func(o *graph.Object) bool {
			if o.ItemID != model.EmptyItemId {
				arena.Put(o.ItemID, o)
			}
			return true
		},
	})
}

func newEnv(derivedRoot, baseRoot *graph.Object, h graph.Host, ovr *override.Store, canUpdate CanUpdateFunc) (Env, *Reconciler) {
	lk := linker.New()
	ovr.SetBaseChecker(lk)
	lk.Link(derivedRoot, baseRoot)
	arena := graph.NewArena()
	registerArena(arena, derivedRoot)
	return Env{Host: h, Linker: lk, Override: ovr, Arena: arena}, New(nil, canUpdate)
}

func TestReconcileMemberFollowsUnoverriddenBaseChange(t *testing.T) {
	ovr := override.New()
	h := testHost{ovr}
	base := graph.NewObject("Prop", h)
	base.GetOrCreateMember("color", "string").Value = "red"

	derived := clone.Materialize(h, base)
	derived.SetHost(h)
	env, r := newEnv(derived, base, h, ovr, nil)

	baseColor, _ := base.Child("color")
	baseColor.Update("green", model.OriginLocal)

	r.Reconcile(env, derived)

	dm, _ := derived.Child("color")
	if dm.Retrieve() != "green" {
		t.Fatalf("color = %v, want green", dm.Retrieve())
	}
}

func TestReconcileMemberSkipsOverriddenMember(t *testing.T) {
	ovr := override.New()
	h := testHost{ovr}
	base := graph.NewObject("Prop", h)
	base.GetOrCreateMember("color", "string").Value = "red"

	derived := clone.Materialize(h, base)
	derived.SetHost(h)
	env, r := newEnv(derived, base, h, ovr, nil)

	dm, _ := derived.Child("color")
	dm.Update("blue", model.OriginLocal)

	baseColor, _ := base.Child("color")
	baseColor.Update("green", model.OriginLocal)

	r.Reconcile(env, derived)

	if dm.Retrieve() != "blue" {
		t.Fatalf("color = %v, want blue (override must be respected)", dm.Retrieve())
	}
}

func newDictAsset(h graph.Host, pairs ...[2]string) (*graph.Object, *graph.Dictionary) {
	root := graph.NewObject("Prop", h)
	dict := graph.NewDictionary(true, h)
	root.GetOrCreateMember("byKey", "map[string]string").Target = dict
	for _, p := range pairs {
		_, _ = dict.Add(h, model.NewKeyIndex(p[0]), p[1], nil, model.OriginLocal)
	}
	return root, dict
}

// A base-driven rename of a dictionary key must carry over to an
// unoverridden derived entry without touching its identity.
func TestReconcileIndexedCarriesDictionaryKeyMoveFromBase(t *testing.T) {
	ovr := override.New()
	h := testHost{ovr}
	baseRoot, baseDict := newDictAsset(h, [2]string{"a", "v1"})
	id, _ := baseDict.ItemIDAt(model.NewKeyIndex("a"))

	derivedRoot := clone.Materialize(h, baseRoot)
	derivedRoot.SetHost(h)
	env, r := newEnv(derivedRoot, baseRoot, h, ovr, nil)

	if err := baseDict.Move(h, "a", "b", model.OriginLocal); err != nil {
		t.Fatalf("Move: %v", err)
	}

	r.Reconcile(env, derivedRoot)

	derivedDict := derivedRoot.GetOrCreateMember("byKey", "map[string]string").Target.(*graph.Dictionary)
	if derivedDict.HasKey("a") {
		t.Fatalf("expected old key a to be gone")
	}
	gotID, ok := derivedDict.ItemIDAt(model.NewKeyIndex("b"))
	if !ok || gotID != id {
		t.Fatalf("key b has id %v, %v, want %v, true (identity must survive the rename)", gotID, ok, id)
	}
}

func TestReconcileIndexedInsertsNewBaseItemsAtReconstructedPosition(t *testing.T) {
	ovr := override.New()
	h := testHost{ovr}
	baseRoot := graph.NewObject("Prop", h)
	baseColl := graph.NewCollection(true, h)
	baseRoot.GetOrCreateMember("tags", "[]string").Target = baseColl
	_, _ = baseColl.Add(h, model.NewIntIndex(0), "a", nil, model.OriginLocal)
	_, _ = baseColl.Add(h, model.NewIntIndex(1), "c", nil, model.OriginLocal)

	derivedRoot := clone.Materialize(h, baseRoot)
	derivedRoot.SetHost(h)
	env, r := newEnv(derivedRoot, baseRoot, h, ovr, nil)

	_, _ = baseColl.Add(h, model.NewIntIndex(1), "b", nil, model.OriginLocal) // base becomes [a,b,c]

	r.Reconcile(env, derivedRoot)

	derivedColl := derivedRoot.GetOrCreateMember("tags", "[]string").Target.(*graph.Collection)
	var got []any
	for _, idx := range derivedColl.Indices() {
		v, _ := derivedColl.Retrieve(idx)
		got = append(got, v)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("tags = %v, want [a b c]", got)
	}
}

func TestCanUpdateFuncVetoesInsertion(t *testing.T) {
	ovr := override.New()
	h := testHost{ovr}
	baseRoot := graph.NewObject("Prop", h)
	baseColl := graph.NewCollection(true, h)
	baseRoot.GetOrCreateMember("tags", "[]string").Target = baseColl
	_, _ = baseColl.Add(h, model.NewIntIndex(0), "a", nil, model.OriginLocal)

	derivedRoot := clone.Materialize(h, baseRoot)
	derivedRoot.SetHost(h)
	deny := func(n graph.IndexedObject, kind model.ChangeKind, idx model.Index, value any) bool {
		return kind != model.CollectionAdd
	}
	env, r := newEnv(derivedRoot, baseRoot, h, ovr, deny)

	_, _ = baseColl.Add(h, model.NewIntIndex(1), "b", nil, model.OriginLocal)

	r.Reconcile(env, derivedRoot)

	derivedColl := derivedRoot.GetOrCreateMember("tags", "[]string").Target.(*graph.Collection)
	if derivedColl.Len() != 1 {
		t.Fatalf("expected the vetoed insertion to be skipped, got len %d", derivedColl.Len())
	}
}

// An object-reference member resolves through the arena to the
// identity-matched derived counterpart of whatever the base points at.
func TestReconcileMemberResolvesObjectReferenceToDerivedTarget(t *testing.T) {
	ovr := override.New()
	h := testHost{ovr}

	baseRoot := graph.NewObject("Prop", h)
	baseItems := graph.NewCollection(true, h)
	baseRoot.GetOrCreateMember("items", "[]Tag").Target = baseItems
	tagObj := graph.NewObject("Tag", h)
	targetID, _ := baseItems.Add(h, model.NewIntIndex(0), nil, tagObj, model.OriginLocal)

	ref := baseRoot.GetOrCreateMember("favoriteTag", "Tag")
	ref.IsObjectReference = true
	ref.ObjectRefID = targetID

	derivedRoot := clone.Materialize(h, baseRoot)
	derivedRoot.SetHost(h)
	env, r := newEnv(derivedRoot, baseRoot, h, ovr, nil)

	r.Reconcile(env, derivedRoot)

	derivedRef, _ := derivedRoot.Child("favoriteTag")
	derivedItems := derivedRoot.GetOrCreateMember("items", "[]Tag").Target.(*graph.Collection)
	wantIdx, _ := derivedItems.IndexOf(targetID)
	wantVal, _ := derivedItems.Retrieve(wantIdx)
	wantObj, _ := wantVal.(*graph.Object)

	if derivedRef.Target != wantObj {
		t.Fatalf("favoriteTag.Target = %v, want the identity-matched derived item %v", derivedRef.Target, wantObj)
	}
}
