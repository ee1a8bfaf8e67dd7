// Package graph implements the tagged-variant node graph (component B):
// MemberNode, ObjectNode, CollectionNode and DictionaryNode over an asset
// value tree, with reference and indexed-target navigation, plus the
// EventSink contract that change listeners (package listener) implement to
// observe every mutation.
package graph

import (
	"github.com/noslopforever/assetgraph/internal/model"
)

// NodeKind tags which of the four node variants a Node is.
type NodeKind int

const (
	KindMember NodeKind = iota
	KindObject
	KindCollection
	KindDictionary
)

func (k NodeKind) String() string {
	switch k {
	case KindMember:
		return "Member"
	case KindObject:
		return "Object"
	case KindCollection:
		return "Collection"
	case KindDictionary:
		return "Dictionary"
	default:
		return "Unknown"
	}
}

// Node is the common tagged-variant contract every node kind satisfies.
type Node interface {
	Kind() NodeKind
}

// IndexedObject is the common contract CollectionNode and DictionaryNode
// satisfy: items addressable by Index, optionally identifiable by ItemId.
type IndexedObject interface {
	Node
	// IsIdentifiable reports whether entries carry a stable ItemId.
	IsIdentifiable() bool
	// Retrieve returns the value stored at idx.
	Retrieve(idx model.Index) (any, bool)
	// IndexedTarget returns the Object at idx, if the slot holds one
	// (whether owned structurally or referenced).
	IndexedTarget(idx model.Index) (*Object, bool)
	// ItemIDAt returns the ItemId stored at idx (identifiable nodes only).
	ItemIDAt(idx model.Index) (model.ItemId, bool)
	// IndexOf returns the current Index for a live ItemId.
	IndexOf(id model.ItemId) (model.Index, bool)
	// Update replaces the value at idx.
	Update(h Host, idx model.Index, value any, target *Object, origin model.MutationOrigin) error
	// Add appends/inserts value at idx, generating a fresh ItemId if
	// identifiable, and returns the assigned id (ItemId::EMPTY if not
	// identifiable).
	Add(h Host, idx model.Index, value any, target *Object, origin model.MutationOrigin) (model.ItemId, error)
	// Remove deletes the entry at idx.
	Remove(h Host, idx model.Index, origin model.MutationOrigin) error
	// Restore is identical to Add but preserves an externally chosen
	// ItemId (used by the reconciler, §4.1).
	Restore(h Host, idx model.Index, value any, target *Object, id model.ItemId, origin model.MutationOrigin) error
	// DeletedItems returns the set of ids deleted from an inherited base.
	DeletedItems() map[model.ItemId]struct{}
	// MarkDeleted/UnmarkDeleted maintain the DeletedItems set directly
	// (used by the reconciler's pass-1 cleanup, §4.6.2).
	MarkDeleted(id model.ItemId)
	UnmarkDeleted(id model.ItemId)
	// Len returns the number of live entries.
	Len() int
	// Indices returns the live indices in iteration order.
	Indices() []model.Index
}

// Host is implemented by the owning AssetPropertyGraph (package
// propertygraph) and threaded into every node at construction time. It
// gives node mutation methods access to the event sink and to the current
// mutation origin so that override stamping (§4.4) and the
// updating_from_base re-entry guard (§4.6.3, §5) work uniformly regardless
// of which node is being touched.
type Host interface {
	Sink() EventSink
	Logger() Logger
}

// Logger is the minimal structured-logging surface graph needs; package
// propertygraph wires this to *zap.Logger.
type Logger interface {
	Warnw(msg string, keysAndValues ...any)
}

// EventSink receives the four raw mutation events of §4.3. A Member
// pointer identifies the member that changed; for item events the node is
// the owning IndexedObject.
type EventSink interface {
	OnChanging(m *Member, old any)
	OnChanged(m *Member, old, new any, origin model.MutationOrigin)
	OnItemChanging(n IndexedObject, kind model.ChangeKind, idx model.Index, old any)
	OnItemChanged(n IndexedObject, kind model.ChangeKind, idx model.Index, id model.ItemId, new any, origin model.MutationOrigin)
}

// NopSink discards every event; useful for nodes built outside a live
// AssetPropertyGraph (e.g. scratch clones awaiting attachment).
type NopSink struct{}

func (NopSink) OnChanging(*Member, any)                                                       {}
func (NopSink) OnChanged(*Member, any, any, model.MutationOrigin)                              {}
func (NopSink) OnItemChanging(IndexedObject, model.ChangeKind, model.Index, any)               {}
func (NopSink) OnItemChanged(IndexedObject, model.ChangeKind, model.Index, model.ItemId, any, model.MutationOrigin) {}

type nopLogger struct{}

func (nopLogger) Warnw(string, ...any) {}

// nopHost is a Host with a discarding sink, used for nodes not yet attached
// to a live graph.
type nopHost struct{}

func (nopHost) Sink() EventSink { return NopSink{} }
func (nopHost) Logger() Logger  { return nopLogger{} }

// NopHost is the zero-value Host for freshly constructed, unattached nodes.
var NopHost Host = nopHost{}
