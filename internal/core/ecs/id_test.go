package ecs

import "testing"

func TestIDParts(t *testing.T) {
	id := NewID(PersistentGroup, 42)
	if id.Group() != PersistentGroup {
		t.Errorf("group = %v", id.Group())
	}
	if id.GroupValue() != PersistentGroupValue {
		t.Errorf("group value = %d", id.GroupValue())
	}
	if id.Index() != 42 {
		t.Errorf("index = %d", id.Index())
	}
	if id.IsGroup() {
		t.Error("id with index reported as group")
	}
	if !PersistentGroup.IsGroup() || !TemporaryGroup.IsGroup() {
		t.Error("reserved groups must carry no index bits")
	}
}

func TestIDIndexMasking(t *testing.T) {
	id := NewID(GroupFromValue(3), IndexID(IndexBits)+5)
	if id.GroupValue() != 3 {
		t.Errorf("overflowing index leaked into group: %d", id.GroupValue())
	}
	if id.Index() != 4 {
		t.Errorf("index = %d, want 4", id.Index())
	}
}

func TestIDOrdering(t *testing.T) {
	a := NewID(GroupFromValue(1), IndexMax-1)
	b := NewID(GroupFromValue(2), IndexMin)
	if !(a < b) {
		t.Error("ids must order by group before index")
	}
}

func TestIDString(t *testing.T) {
	cases := []struct {
		id   ID
		want string
	}{
		{InvalidID, "invalid"},
		{NewID(GroupFromValue(0), 7), "0x0:7"},
		{NewID(PersistentGroup, 1), "0xE:1"},
		{NewID(TemporaryGroup, 255), "0xF:255"},
	}
	for _, c := range cases {
		if got := c.id.String(); got != c.want {
			t.Errorf("String(%#x) = %q, want %q", uint32(c.id), got, c.want)
		}
	}
}
