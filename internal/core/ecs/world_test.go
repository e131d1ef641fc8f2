package ecs

import (
	"errors"
	"slices"
	"testing"
)

type recordingNotifier struct {
	created   []ID
	destroyed [][]ID
}

func (n *recordingNotifier) EntityCreated(id ID)      { n.created = append(n.created, id) }
func (n *recordingNotifier) EntityDestroyed(ids []ID) { n.destroyed = append(n.destroyed, ids) }

type failingStore struct {
	*Pool[int]
}

var errBroken = errors.New("broken")

func (failingStore) Maintenance() error { return errBroken }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	ints := NewDataPool[int](0)
	comps := newComponentPool(t, 1)

	if err := r.Register("ints", ints); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("comps", comps); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("ints", ints); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("duplicate err = %v", err)
	}

	if !slices.Equal(r.Names(), []string{"ints", "comps"}) {
		t.Fatalf("names = %v", r.Names())
	}
	if _, ok := r.ComponentPool("ints"); ok {
		t.Error("data pool returned as component pool")
	}
	if got, ok := r.ComponentPool("comps"); !ok || got != comps {
		t.Error("component pool not found")
	}

	insert(t, ints, 5, 5)
	_ = comps.Insert(5, []byte{5})
	if err := r.Maintain(); err != nil {
		t.Fatal(err)
	}
	r.RemoveAll(5)
	if err := r.Maintain(); err != nil {
		t.Fatal(err)
	}
	if ints.Exist(5) || comps.Exist(5) {
		t.Fatal("RemoveAll missed a store")
	}
}

func TestRegistryMaintainJoinsErrors(t *testing.T) {
	r := NewRegistry()
	ok := NewDataPool[int](0)
	_ = r.Register("broken", failingStore{NewDataPool[int](0)})
	_ = r.Register("ok", ok)
	insert(t, ok, 1, 1)

	err := r.Maintain()
	if !errors.Is(err, errBroken) {
		t.Fatalf("err = %v", err)
	}
	if !ok.Exist(1) {
		t.Fatal("failure stopped later stores")
	}
}

func TestWorldCreateAndDestroy(t *testing.T) {
	w := NewWorld(nil)
	n := &recordingNotifier{}
	w.SetNotifier(n)

	pos := NewDataPool[int](0)
	if err := w.Registry().Register("pos", pos); err != nil {
		t.Fatal(err)
	}

	a, err := w.CreateEntity(PersistentGroup)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := w.CreateEntity(PersistentGroup)
	tmp, _ := w.CreateEntity(TemporaryGroup)
	if len(n.created) != 3 {
		t.Fatalf("created notifications = %v", n.created)
	}
	if tmp.Group() != TemporaryGroup {
		t.Errorf("temporary entity in group %v", tmp.Group())
	}

	for _, id := range []ID{a, b, tmp} {
		insert(t, pos, id, 1)
	}
	maintain(t, pos)
	w.Names().Add(a, "a")

	w.MarkForDestruction(tmp)
	w.MarkForDestruction(a)
	w.MarkForDestruction(a)

	freed := w.FlushDestroyQueue()
	if !slices.Equal(freed, []ID{a, tmp}) {
		t.Fatalf("freed = %v", freed)
	}
	if len(n.destroyed) != 1 || !slices.Equal(n.destroyed[0], freed) {
		t.Fatalf("destroyed notifications = %v", n.destroyed)
	}
	if _, ok := w.Names().FindName(a); ok {
		t.Error("editor name survived destruction")
	}

	maintain(t, pos)
	if pos.Size() != 1 || !pos.Exist(b) {
		t.Fatalf("pos after flush = %v", pos.Stored().IDs())
	}

	// The freed persistent index is handed out again.
	again, _ := w.CreateEntity(PersistentGroup)
	if again != a {
		t.Errorf("recycled %v, want %v", again, a)
	}

	if w.FlushDestroyQueue() != nil {
		t.Error("empty flush returned ids")
	}
}

func TestWorldFlushDropsUnfreeableIDs(t *testing.T) {
	w := NewWorld(nil)
	a, _ := w.CreateEntity(PersistentGroup)
	b, _ := w.CreateEntity(PersistentGroup)
	if err := w.Groups().Persistent().Free(b); err != nil {
		t.Fatal(err)
	}

	w.MarkForDestruction(a)
	w.MarkForDestruction(b)
	w.MarkForDestruction(NewID(PersistentGroup, 40))
	w.MarkForDestruction(NewID(GroupFromValue(6), 1))
	freed := w.FlushDestroyQueue()
	if !slices.Equal(freed, []ID{a}) {
		t.Fatalf("freed = %v, want [%v]", freed, a)
	}
	if w.Groups().Persistent().Live() != 0 {
		t.Fatalf("live = %d", w.Groups().Persistent().Live())
	}
}

func TestWorldRepeatedDestroyDoesNotLeak(t *testing.T) {
	w := NewWorld(nil)
	pos := NewDataPool[int](0)
	if err := w.Registry().Register("pos", pos); err != nil {
		t.Fatal(err)
	}
	a, _ := w.CreateEntity(PersistentGroup)
	b, _ := w.CreateEntity(PersistentGroup)
	insert(t, pos, a, 1)
	insert(t, pos, b, 2)
	maintain(t, pos)

	w.MarkForDestruction(b)
	if freed := w.FlushDestroyQueue(); !slices.Equal(freed, []ID{b}) {
		t.Fatalf("first flush freed %v", freed)
	}
	maintain(t, pos)

	// b again, one tick late.
	w.MarkForDestruction(a)
	w.MarkForDestruction(b)
	if freed := w.FlushDestroyQueue(); !slices.Equal(freed, []ID{a}) {
		t.Fatalf("second flush freed %v, want [%v]", freed, a)
	}
	maintain(t, pos)

	if pos.Size() != 0 {
		t.Fatalf("pos = %v", pos.Stored().IDs())
	}
	if live := w.Groups().Persistent().Live(); live != 0 {
		t.Fatalf("live = %d", live)
	}
}

func TestWorldRejectedDestroyKeepsComponents(t *testing.T) {
	w := NewWorld(nil)
	pos := NewDataPool[int](0)
	_ = w.Registry().Register("pos", pos)
	a, _ := w.CreateEntity(PersistentGroup)
	b, _ := w.CreateEntity(PersistentGroup)
	insert(t, pos, a, 1)
	insert(t, pos, b, 2)
	maintain(t, pos)
	if err := w.Groups().Persistent().Free(b); err != nil {
		t.Fatal(err)
	}

	w.MarkForDestruction(b)
	if freed := w.FlushDestroyQueue(); len(freed) != 0 {
		t.Fatalf("freed %v", freed)
	}
	maintain(t, pos)
	if !pos.Exist(a) || !pos.Exist(b) {
		t.Fatalf("rejected destroy touched the stores: %v", pos.Stored().IDs())
	}
}

func TestWorldUnknownGroup(t *testing.T) {
	w := NewWorld(nil)
	if _, err := w.CreateEntity(GroupFromValue(9)); !errors.Is(err, ErrUnknownGroup) {
		t.Fatalf("err = %v", err)
	}
}
