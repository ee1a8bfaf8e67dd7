// Package container implements component I: the Container owning every
// live asset graph in a process, keyed by asset id.
//
// Grounded directly on the teacher's internal/collector.Registry: a
// sync.RWMutex-guarded map with Register/Get/List/Names, generalized from
// "named collector instances" to "asset-id-keyed property graphs."
package container

import (
	"sync"

	"github.com/noslopforever/assetgraph/internal/graph"
	"github.com/noslopforever/assetgraph/internal/model"
	"github.com/noslopforever/assetgraph/internal/propertygraph"
	"github.com/noslopforever/assetgraph/internal/reconciler"
)

// Container owns every live Graph in a process, keyed by asset id (§6).
type Container struct {
	mu     sync.RWMutex
	graphs map[model.ItemId]*propertygraph.Graph

	// PropagateChangesFromBase is the default propagation flag applied to
	// every graph created through CreateGraph (§6).
	PropagateChangesFromBase bool
}

// New creates an empty Container.
func New() *Container {
	return &Container{graphs: make(map[model.ItemId]*propertygraph.Graph)}
}

// CreateGraph registers a freshly built graph rooted at root under
// assetID, applying the container's default propagation flag.
func (c *Container) CreateGraph(assetID model.ItemId, root *graph.Object, logger graph.Logger, canUpdate reconciler.CanUpdateFunc) *propertygraph.Graph {
	g := propertygraph.New(root, logger, canUpdate)
	g.SetPropagateChangesFromBase(c.PropagateChangesFromBase)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.graphs[assetID] = g
	return g
}

// Register stores an already-constructed graph under assetID (used when a
// graph was built via propertygraph.InstantiateFromBase or
// propertygraph.LoadFromSave elsewhere and only needs to join the
// registry).
func (c *Container) Register(assetID model.ItemId, g *propertygraph.Graph) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.graphs[assetID] = g
}

// Lookup returns the graph registered under assetID, if any.
func (c *Container) Lookup(assetID model.ItemId) (*propertygraph.Graph, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.graphs[assetID]
	return g, ok
}

// Remove unregisters assetID's graph, first detaching it from its base so
// teardown order never leaves a dangling base subscription (§5's resource
// policy: "each graph's teardown first unsubscribing from its base").
func (c *Container) Remove(assetID model.ItemId) {
	c.mu.Lock()
	g, ok := c.graphs[assetID]
	delete(c.graphs, assetID)
	c.mu.Unlock()
	if ok {
		g.RefreshBase(nil)
	}
}

// Names lists every registered asset id, in no particular order.
func (c *Container) Names() []model.ItemId {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ItemId, 0, len(c.graphs))
	for id := range c.graphs {
		out = append(out, id)
	}
	return out
}

// Len reports how many graphs are currently registered.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.graphs)
}
