// Package debugapi exposes a read-only HTTP introspection surface over a
// Container: list registered graphs, dump a graph's node tree and
// override state as JSON, and resolve a NodePath. It is additive tooling
// for an editor/UI process, not required by any engine invariant.
//
// Grounded on the teacher's internal/api package: a chi.Router wired with
// middleware.Recoverer and middleware.RequestID, and writeJSON/writeError
// helpers around http.ResponseWriter, generalized from "asset CRUD over
// Postgres" to "read-only graph introspection."
package debugapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/noslopforever/assetgraph/internal/container"
	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/model"
)

// Server is the HTTP handler for the debug introspection API.
type Server struct {
	router    chi.Router
	container *container.Container
	logger    graph.Logger
}

// NewServer builds a Server routing over c.
func NewServer(c *container.Container, logger graph.Logger) *Server {
	if logger == nil {
		logger = graph.NopHost.Logger()
	}
	s := &Server{container: c, logger: logger}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/assets", s.handleList)
	r.Get("/assets/{assetID}", s.handleDump)
	r.Get("/assets/{assetID}/resolve", s.handleResolve)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ids := s.container.Names()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	writeJSON(w, http.StatusOK, out)
}

type nodeDump struct {
	Type     string      `json:"type"`
	ItemID   string      `json:"itemId,omitempty"`
	Members  []memberDump `json:"members,omitempty"`
}

type memberDump struct {
	Name     string `json:"name"`
	Override string `json:"override"`
	Value    any    `json:"value,omitempty"`
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "assetID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	g, ok := s.container.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	writeJSON(w, http.StatusOK, dumpObject(g.RootNode(), g.Override()))
}

func dumpObject(o *graph.Object, ovr interface {
	ContentOverride(*graph.Member) model.OverrideType
}) nodeDump {
	out := nodeDump{Type: o.DeclaredType}
	if o.ItemID != model.EmptyItemId {
		out.ItemID = o.ItemID.String()
	}
	for _, m := range o.Members() {
		md := memberDump{Name: m.Name, Override: ovr.ContentOverride(m).String()}
		if obj, ok := m.TargetObject(); ok {
			md.Value = dumpObject(obj, ovr)
		} else {
			md.Value = m.Retrieve()
		}
		out.Members = append(out.Members, md)
	}
	return out
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "assetID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	g, ok := s.container.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	pathParam := r.URL.Query().Get("path")
	path, err := model.ParseNodePath(pathParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path: "+err.Error())
		return
	}
	node, _, _ := graph.Resolve(g.RootNode(), path)
	if node == nil {
		writeError(w, http.StatusNotFound, "path unreachable")
		return
	}
	switch n := node.(type) {
	case *graph.Member:
		writeJSON(w, http.StatusOK, map[string]any{"value": n.Retrieve()})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"kind": n.Kind().String()})
	}
}
