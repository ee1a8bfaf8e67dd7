// Package model defines the core identifier, path, and override types shared
// across the asset property graph engine.
package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ItemId is the stable, 128-bit identity of an entry inside an identifiable
// collection or dictionary, independent of its index or key. It is also used
// as the identity of any object reachable as an object reference target.
type ItemId = uuid.UUID

// EmptyItemId is the sentinel ItemId meaning "no identity" — either a
// corrupted id map entry or a not-yet-assigned id.
var EmptyItemId = uuid.Nil

// NewItemId generates a fresh, non-empty ItemId.
func NewItemId() ItemId {
	return uuid.New()
}

// IndexKind distinguishes the two forms an Index can take.
type IndexKind int

const (
	// IndexNone selects "no index" — used for plain member content.
	IndexNone IndexKind = iota
	// IndexInt selects a collection slot by integer position.
	IndexInt
	// IndexKey selects a dictionary entry by an arbitrary comparable key.
	IndexKey
)

// Index is a position selector: either an integer slot (collections) or an
// arbitrary comparable key (dictionaries). The zero Index is Index::EMPTY.
type Index struct {
	Kind IndexKind
	Int  int
	Key  any
}

// EmptyIndex is Index::EMPTY — "no index", used for member content.
var EmptyIndex = Index{Kind: IndexNone}

// NewIntIndex builds a collection index.
func NewIntIndex(i int) Index { return Index{Kind: IndexInt, Int: i} }

// NewKeyIndex builds a dictionary index.
func NewKeyIndex(k any) Index { return Index{Kind: IndexKey, Key: k} }

// IsEmpty reports whether this is Index::EMPTY.
func (idx Index) IsEmpty() bool { return idx.Kind == IndexNone }

func (idx Index) String() string {
	switch idx.Kind {
	case IndexInt:
		return fmt.Sprintf("[%d]", idx.Int)
	case IndexKey:
		return fmt.Sprintf("[%v]", idx.Key)
	default:
		return "[]"
	}
}

// PathStepKind tags the kind of a single NodePath step.
type PathStepKind int

const (
	StepMember PathStepKind = iota
	StepIndex
	StepItemId
)

// PathStep is one step of a NodePath: a named member, an integer/key index,
// or an ItemId lookup.
type PathStep struct {
	Kind PathStepKind
	Name string
	Idx  Index
	ID   ItemId
}

// MemberStep builds a Member(name) path step.
func MemberStep(name string) PathStep { return PathStep{Kind: StepMember, Name: name} }

// IndexStep builds an Index(v) path step.
func IndexStep(idx Index) PathStep { return PathStep{Kind: StepIndex, Idx: idx} }

// ItemIdStep builds an ItemId(id) path step.
func ItemIdStep(id ItemId) PathStep { return PathStep{Kind: StepItemId, ID: id} }

func (s PathStep) String() string {
	switch s.Kind {
	case StepMember:
		return "." + s.Name
	case StepIndex:
		return s.Idx.String()
	case StepItemId:
		return "#" + s.ID.String()
	default:
		return "?"
	}
}

// NodePath is an ordered list of steps rooted at the asset's root node.
type NodePath []PathStep

func (p NodePath) String() string {
	var b strings.Builder
	b.WriteString("$")
	for _, s := range p {
		b.WriteString(s.String())
	}
	return b.String()
}

// Append returns a new NodePath with step appended, leaving p untouched.
func (p NodePath) Append(step PathStep) NodePath {
	out := make(NodePath, len(p), len(p)+1)
	copy(out, p)
	return append(out, step)
}

// ParseNodePath parses the wire form produced by NodePath.String(). Index
// steps with a non-string key are not round-trippable through this format
// (the metadata schema only needs to carry member/index/item-id steps for
// property-style asset trees, where dictionary keys are strings).
func ParseNodePath(s string) (NodePath, error) {
	if !strings.HasPrefix(s, "$") {
		return nil, fmt.Errorf("node path %q: missing $ root", s)
	}
	rest := s[1:]
	var path NodePath
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			end := strings.IndexAny(rest[1:], ".[#")
			var name string
			if end < 0 {
				name, rest = rest[1:], ""
			} else {
				name, rest = rest[1:end+1], rest[end+1:]
			}
			path = append(path, MemberStep(name))
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("node path %q: unterminated [", s)
			}
			key := rest[1:end]
			rest = rest[end+1:]
			if n, err := parseIntStrict(key); err == nil {
				path = append(path, IndexStep(NewIntIndex(n)))
			} else {
				path = append(path, IndexStep(NewKeyIndex(key)))
			}
		case '#':
			end := strings.IndexAny(rest[1:], ".[#")
			var raw string
			if end < 0 {
				raw, rest = rest[1:], ""
			} else {
				raw, rest = rest[1:end+1], rest[end+1:]
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("node path %q: bad item id %q: %w", s, raw, err)
			}
			path = append(path, ItemIdStep(id))
		default:
			return nil, fmt.Errorf("node path %q: unexpected character %q", s, rest[0])
		}
	}
	return path, nil
}

func parseIntStrict(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not an int")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

// MarshalJSON renders the override type as its wire string form.
func (o OverrideType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}

// UnmarshalJSON parses the override type's wire string form.
func (o *OverrideType) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParseOverrideType(s)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// OverrideType is the per-node/per-item/per-key override state (§3.4).
// Only Base and New are active; Sealed is reserved for future use.
type OverrideType int

const (
	OverrideBase OverrideType = iota
	OverrideNew
	OverrideSealed
)

func (o OverrideType) String() string {
	switch o {
	case OverrideBase:
		return "Base"
	case OverrideNew:
		return "New"
	case OverrideSealed:
		return "Sealed"
	default:
		return "Unknown"
	}
}

// ParseOverrideType parses the metadata wire form of an OverrideType.
func ParseOverrideType(s string) (OverrideType, error) {
	switch s {
	case "Base":
		return OverrideBase, nil
	case "New":
		return OverrideNew, nil
	case "Sealed":
		return OverrideSealed, nil
	default:
		return OverrideBase, fmt.Errorf("unknown override type %q", s)
	}
}

// ContentReference is an opaque handle to another asset, carrying an
// identifiable id and a location url. Two content references are equal iff
// both fields match.
type ContentReference struct {
	ID  ItemId
	URL string
}

func (c ContentReference) Equal(o ContentReference) bool {
	return c.ID == o.ID && c.URL == o.URL
}
