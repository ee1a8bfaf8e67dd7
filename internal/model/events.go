package model

// ChangeKind enumerates the ways an IndexedObject (collection or dictionary)
// item can change (§4.3).
type ChangeKind int

const (
	CollectionAdd ChangeKind = iota
	CollectionRemove
	CollectionUpdate
	// CollectionMove renames a dictionary entry's key while preserving its
	// ItemId (§4.6.2's "move"). It never occurs on plain collections.
	CollectionMove
)

func (k ChangeKind) String() string {
	switch k {
	case CollectionAdd:
		return "Add"
	case CollectionRemove:
		return "Remove"
	case CollectionUpdate:
		return "Update"
	case CollectionMove:
		return "Move"
	default:
		return "Unknown"
	}
}

// MutationOrigin records why a node is being mutated, so override stamping
// (§4.4) and re-entry guards (§4.6.3, §5) can tell a locally authored change
// from one driven by base reconciliation.
type MutationOrigin int

const (
	// OriginLocal is an ordinary, user/editor-driven mutation. It stamps
	// override bits as New.
	OriginLocal MutationOrigin = iota
	// OriginBase is a mutation applied by the reconciler to bring a node
	// back in line with its base. It suppresses override stamping and
	// deleted-item tracking (the "updating_from_base" flag in §4.6.3).
	OriginBase
	// OriginResetOverride is a mutation applied by ResetOverride/reconcile
	// while deliberately clearing override state (§4.6.1's
	// "resetting_override" flag, and the Graph API's ResetOverride).
	OriginResetOverride
)

// IsReconciling reports whether this origin should suppress override
// stamping, matching §4.6.3's re-entry guard.
func (o MutationOrigin) IsReconciling() bool {
	return o == OriginBase || o == OriginResetOverride
}
