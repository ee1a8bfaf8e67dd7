package debugapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/noslopforever/assetgraph/internal/container"
	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/model"
	"github.com/noslopforever/assetgraph/internal/propertygraph"
)

func newSampleContainer() (*container.Container, model.ItemId) {
	root := graph.NewObject("Prop", graph.NopHost)
	root.GetOrCreateMember("color", "string").Value = "red"
	g := propertygraph.New(root, nil, nil)

	c := container.New()
	id := model.NewItemId()
	c.Register(id, g)
	return c, id
}

func TestHandleListReturnsRegisteredIds(t *testing.T) {
	c, id := newSampleContainer()
	s := NewServer(c, nil)

	req := httptest.NewRequest(http.MethodGet, "/assets", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0] != id.String() {
		t.Fatalf("list = %v, want [%s]", got, id.String())
	}
}

func TestHandleDumpReturnsNodeTree(t *testing.T) {
	c, id := newSampleContainer()
	s := NewServer(c, nil)

	req := httptest.NewRequest(http.MethodGet, "/assets/"+id.String(), nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var got nodeDump
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != "Prop" || len(got.Members) != 1 || got.Members[0].Name != "color" {
		t.Fatalf("dump = %+v, want a Prop with one color member", got)
	}
}

func TestHandleDumpUnknownAssetIs404(t *testing.T) {
	c, _ := newSampleContainer()
	s := NewServer(c, nil)

	req := httptest.NewRequest(http.MethodGet, "/assets/"+model.NewItemId().String(), nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleResolveReturnsMemberValue(t *testing.T) {
	c, id := newSampleContainer()
	s := NewServer(c, nil)

	url := fmt.Sprintf("/assets/%s/resolve?path=%s", id.String(), "$.color")
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["value"] != "red" {
		t.Fatalf("resolve = %v, want value red", got)
	}
}

func TestHandleResolveUnreachablePathIs404(t *testing.T) {
	c, id := newSampleContainer()
	s := NewServer(c, nil)

	url := fmt.Sprintf("/assets/%s/resolve?path=%s", id.String(), "$.nope")
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
