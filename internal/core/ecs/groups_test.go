package ecs

import (
	"errors"
	"testing"
)

func TestGroupsReserved(t *testing.T) {
	g := NewGroups()
	if g.Persistent().GroupID() != PersistentGroup {
		t.Errorf("persistent group = %v", g.Persistent().GroupID())
	}
	if g.Temporary().GroupID() != TemporaryGroup {
		t.Errorf("temporary group = %v", g.Temporary().GroupID())
	}
	if g.Remove(PersistentGroup) || g.Remove(TemporaryGroup) {
		t.Fatal("reserved group removed")
	}
	if name, ok := g.Name(NewID(TemporaryGroup, 12)); !ok || name != TemporaryGroupName {
		t.Errorf("Name = %q, %v", name, ok)
	}
}

func TestGroupsAddRemove(t *testing.T) {
	g := NewGroups()
	ix := mustIndexes(t, GroupFromValue(3))
	if err := g.Add("level", ix); err != nil {
		t.Fatal(err)
	}
	if err := g.Add("other", mustIndexes(t, GroupFromValue(3))); !errors.Is(err, ErrGroupExists) {
		t.Errorf("same group err = %v", err)
	}
	if err := g.Add("level", mustIndexes(t, GroupFromValue(4))); !errors.Is(err, ErrGroupNameExists) {
		t.Errorf("same name err = %v", err)
	}

	if got, ok := g.ByName("level"); !ok || got != ix {
		t.Fatal("ByName did not find the added group")
	}
	if got, ok := g.Group(NewID(GroupFromValue(3), 77)); !ok || got != ix {
		t.Fatal("Group did not resolve an id's group")
	}

	var names []string
	g.Each(func(name string, _ *Indexes) { names = append(names, name) })
	want := []string{"level", PersistentGroupName, TemporaryGroupName}
	if len(names) != len(want) {
		t.Fatalf("Each = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Each = %v, want %v", names, want)
		}
	}

	if !g.Remove(GroupFromValue(3)) {
		t.Fatal("Remove failed")
	}
	if g.Remove(GroupFromValue(3)) {
		t.Fatal("second Remove succeeded")
	}
	if _, ok := g.ByName("level"); ok {
		t.Fatal("removed group still found")
	}
}

func TestGroupTranslator(t *testing.T) {
	tr := NewGroupTranslator()
	if err := tr.Map(2, NewID(GroupFromValue(5), 1)); !errors.Is(err, ErrNotGroupID) {
		t.Fatalf("Map err = %v", err)
	}
	if err := tr.Map(2, GroupFromValue(5)); err != nil {
		t.Fatal(err)
	}
	if err := tr.Map(PersistentGroupValue, GroupFromValue(1)); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		in, want ID
	}{
		{NewID(GroupFromValue(2), 9), NewID(GroupFromValue(5), 9)},
		{NewID(GroupFromValue(3), 9), NewID(GroupFromValue(3), 9)},
		{NewID(PersistentGroup, 4), NewID(PersistentGroup, 4)},
		{InvalidID, InvalidID},
	}
	for _, c := range cases {
		if got := tr.Translate(c.in); got != c.want {
			t.Errorf("Translate(%v) = %v, want %v", c.in, got, c.want)
		}
	}

	var identity *GroupTranslator
	if got := identity.Translate(NewID(GroupFromValue(2), 1)); got != NewID(GroupFromValue(2), 1) {
		t.Errorf("nil translator changed id: %v", got)
	}
}
