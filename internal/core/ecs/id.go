package ecs

import "fmt"

// ID identifies an entity or resource. The 4 high bits hold the group, the 28 low
// bits hold an index issued by that group's Indexes. Ordering by raw value is
// ordering by group, then index.
type ID uint32

// IndexID is the index portion of an ID, in the low bits.
type IndexID = uint32

const (
	// InvalidID is never issued by an allocator.
	InvalidID ID = 0

	NumIDBits    = 32
	NumGroupBits = 4
	NumIndexBits = NumIDBits - NumGroupBits

	GroupBits ID = ((1 << NumGroupBits) - 1) << NumIndexBits
	IndexBits ID = (1 << NumIndexBits) - 1

	// IndexMin is the first index issued, keeping index 0 clear of InvalidID.
	IndexMin IndexID = 1
	// IndexMax is the exclusive upper limit of issued indexes.
	IndexMax IndexID = IndexID(IndexBits)

	GroupMaxValue   uint32 = (1 << NumGroupBits) - 1
	ReservedGroups         = 2
	MaxDynamicGroup uint32 = GroupMaxValue - ReservedGroups

	PersistentGroupValue uint32 = GroupMaxValue - 1
	TemporaryGroupValue  uint32 = GroupMaxValue

	PersistentGroup ID = ID(PersistentGroupValue) << NumIndexBits
	TemporaryGroup  ID = ID(TemporaryGroupValue) << NumIndexBits
)

func NewID(group ID, index IndexID) ID {
	return (group & GroupBits) | (ID(index) & IndexBits)
}

// GroupFromValue shifts a zero-based group value into group position.
func GroupFromValue(value uint32) ID {
	return ID(value) << NumIndexBits
}

func (id ID) Group() ID          { return id & GroupBits }
func (id ID) GroupValue() uint32 { return uint32(id&GroupBits) >> NumIndexBits }
func (id ID) Index() IndexID     { return IndexID(id & IndexBits) }
func (id ID) Valid() bool        { return id != InvalidID }

// IsGroup reports whether id carries no index bits.
func (id ID) IsGroup() bool { return id&IndexBits == 0 }

func (id ID) String() string {
	if id == InvalidID {
		return "invalid"
	}
	return fmt.Sprintf("0x%X:%d", id.GroupValue(), id.Index())
}
