package metadata

import (
	"testing"

	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/linker"
	"github.com/noslopforever/assetgraph/internal/model"
	"github.com/noslopforever/assetgraph/internal/override"
)

func buildAsset(h graph.Host) (*graph.Object, *graph.Collection) {
	root := graph.NewObject("Prop", h)
	root.GetOrCreateMember("color", "string").Value = "red"
	tags := graph.NewCollection(true, h)
	root.GetOrCreateMember("tags", "[]string").Target = tags
	return root, tags
}

// Loading a previously saved blob into a freshly built tree reproduces the
// same content override state.
func TestSaveThenLoadRoundTripsOverrideState(t *testing.T) {
	ovr := override.New()
	h := testHost{ovr}
	root, _ := buildAsset(h)

	colorMember, _ := root.Child("color")
	colorMember.Update("blue", model.OriginLocal)

	blob := Save(root, ovr)
	if ov, ok := blob.Overrides[pathFor(t, root, "color")]; !ok || ov != model.OverrideNew {
		t.Fatalf("expected color to be saved as New override, got %v, %v", ov, ok)
	}

	ovr2 := override.New()
	root2, _ := buildAsset(h)

	Load(root2, ovr2, blob, nil)
	colorMember2, _ := root2.Child("color")
	if got := ovr2.ContentOverride(colorMember2); got != model.OverrideNew {
		t.Fatalf("Load did not restore content override: got %v", got)
	}
}

func TestLoadIsFailSoftOnUnreachablePath(t *testing.T) {
	ovr := override.New()
	h := testHost{ovr}
	root, _ := buildAsset(h)

	blob := &Blob{
		Overrides: map[string]model.OverrideType{
			"$.nonexistent": model.OverrideNew,
		},
		ObjectReferences: map[string]model.ItemId{},
	}

	// Must not panic even though the path cannot be resolved.
	Load(root, ovr, blob, nil)
}

func TestLinkReferencesResolvesObjectReferenceMembers(t *testing.T) {
	h := testHost{override.New()}
	arena := graph.NewArena()
	lk := linker.New()

	target := graph.NewObject("Tag", h)
	targetID := arena.Register(target)

	root := graph.NewObject("Prop", h)
	ref := root.GetOrCreateMember("favoriteTag", "Tag")
	ref.IsObjectReference = true
	ref.ObjectRefID = targetID

	LinkReferences(root, arena, lk)

	if ref.Target != target {
		t.Fatalf("LinkReferences did not resolve the reference: got %v, want %v", ref.Target, target)
	}
}

func TestBlobMarshalUnmarshalRoundTrip(t *testing.T) {
	b := &Blob{
		Overrides: map[string]model.OverrideType{
			"$.color": model.OverrideNew,
		},
		ObjectReferences: map[string]model.ItemId{
			"$.favoriteTag": model.NewItemId(),
		},
	}
	data, err := b.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Overrides["$.color"] != model.OverrideNew {
		t.Fatalf("round trip lost override: %v", got.Overrides)
	}
	if got.ObjectReferences["$.favoriteTag"] != b.ObjectReferences["$.favoriteTag"] {
		t.Fatalf("round trip lost object reference: %v", got.ObjectReferences)
	}
}

type testHost struct{ s *override.Store }

func (h testHost) Sink() graph.EventSink { return h.s }
func (h testHost) Logger() graph.Logger  { return nil }

func pathFor(t *testing.T, root *graph.Object, memberName string) string {
	t.Helper()
	return model.NodePath{model.MemberStep(memberName)}.String()
}
