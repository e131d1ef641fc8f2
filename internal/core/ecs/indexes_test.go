package ecs

import (
	"errors"
	"slices"
	"sync"
	"testing"
)

func mustIndexes(t *testing.T, group ID) *Indexes {
	t.Helper()
	ix, err := NewIndexes(group)
	if err != nil {
		t.Fatalf("NewIndexes: %v", err)
	}
	return ix
}

func mustGenerate(t *testing.T, ix *Indexes) ID {
	t.Helper()
	id, err := ix.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return id
}

func TestNewIndexesRejectsIndexBits(t *testing.T) {
	if _, err := NewIndexes(NewID(PersistentGroup, 1)); !errors.Is(err, ErrNotGroupID) {
		t.Fatalf("err = %v, want ErrNotGroupID", err)
	}
}

func TestIndexesDefaultState(t *testing.T) {
	ix := mustIndexes(t, GroupFromValue(0))
	next, n, err := ix.Export(nil)
	if err != nil {
		t.Fatal(err)
	}
	if next != IndexMin || n != 0 {
		t.Fatalf("next = %d, recycled = %d", next, n)
	}
	if ix.Live() != 0 {
		t.Errorf("live = %d", ix.Live())
	}
}

func TestIndexesGenerateAndRecycle(t *testing.T) {
	group := GroupFromValue(0)
	ix := mustIndexes(t, group)

	first := mustGenerate(t, ix)
	second := mustGenerate(t, ix)
	if first != NewID(group, 1) || second != NewID(group, 2) {
		t.Fatalf("generated %v, %v", first, second)
	}

	if err := ix.Free(second); err != nil {
		t.Fatal(err)
	}
	if err := ix.Free(first); err != nil {
		t.Fatal(err)
	}

	_, n, _ := ix.Export(nil)
	if n != 2 {
		t.Fatalf("recycled = %d, want 2", n)
	}

	// Recycled indexes come back in the order they were freed.
	if id := mustGenerate(t, ix); id != second {
		t.Errorf("got %v, want %v", id, second)
	}
	if id := mustGenerate(t, ix); id != first {
		t.Errorf("got %v, want %v", id, first)
	}
	if id := mustGenerate(t, ix); id != NewID(group, 3) {
		t.Errorf("got %v, want fresh index 3", id)
	}
}

func TestIndexesFreeErrors(t *testing.T) {
	ix := mustIndexes(t, GroupFromValue(0))
	id := mustGenerate(t, ix)

	cases := []struct {
		name string
		id   ID
		want error
	}{
		{"invalid", InvalidID, ErrInvalidID},
		{"other group", NewID(GroupFromValue(1), 1), ErrIncorrectGroupID},
		{"never generated", NewID(GroupFromValue(0), 2), ErrIndexAboveGenerated},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := ix.Free(c.id); !errors.Is(err, c.want) {
				t.Fatalf("err = %v, want %v", err, c.want)
			}
		})
	}

	if err := ix.Free(id); err != nil {
		t.Fatal(err)
	}
	if err := ix.Free(id); !errors.Is(err, ErrIndexRecycled) {
		t.Fatalf("double free err = %v", err)
	}
}

func TestIndexesFreeManyIsAtomic(t *testing.T) {
	group := GroupFromValue(2)
	ix := mustIndexes(t, group)
	a := mustGenerate(t, ix)
	b := mustGenerate(t, ix)

	if err := ix.FreeMany([]ID{a, NewID(group, 9)}); !errors.Is(err, ErrIndexAboveGenerated) {
		t.Fatalf("err = %v", err)
	}
	if err := ix.FreeMany([]ID{a, b, a}); !errors.Is(err, ErrIndexRecycled) {
		t.Fatalf("duplicate err = %v", err)
	}
	if ix.Live() != 2 {
		t.Fatalf("failed batch recycled something: live = %d", ix.Live())
	}

	if err := ix.FreeMany([]ID{b, a}); err != nil {
		t.Fatal(err)
	}
	if ix.Live() != 0 {
		t.Errorf("live = %d", ix.Live())
	}
}

func TestIndexesOutOfIndexes(t *testing.T) {
	ix := mustIndexes(t, GroupFromValue(0))
	if err := ix.Import(IndexMax-10001, nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10001; i++ {
		if _, err := ix.Generate(); err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
	}
	if _, err := ix.Generate(); !errors.Is(err, ErrOutOfIndexes) {
		t.Fatalf("err = %v, want ErrOutOfIndexes", err)
	}
	next, _, _ := ix.Export(nil)
	if next != IndexMax {
		t.Errorf("next = %d, want %d", next, IndexMax)
	}
}

func TestIndexesImportExport(t *testing.T) {
	group := GroupFromValue(0)
	ix := mustIndexes(t, group)
	if err := ix.Import(15, []IndexID{8, 4, 10}); err != nil {
		t.Fatal(err)
	}

	dst := make([]IndexID, 2)
	next, n, err := ix.Export(dst)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("short export err = %v", err)
	}
	if next != 15 || n != 2 || !slices.Equal(dst, []IndexID{8, 4}) {
		t.Fatalf("partial export = %d, %d, %v", next, n, dst)
	}

	for _, want := range []IndexID{8, 4, 10, 15, 16} {
		if id := mustGenerate(t, ix); id != NewID(group, want) {
			t.Errorf("got %v, want index %d", id, want)
		}
	}

	if err := ix.Import(0, nil); !errors.Is(err, ErrIndexBelowMinimum) {
		t.Errorf("import below minimum err = %v", err)
	}
}

func TestIndexesImportValidatesRecycled(t *testing.T) {
	group := GroupFromValue(0)
	cases := []struct {
		name     string
		recycled []IndexID
		want     error
	}{
		{"duplicate", []IndexID{8, 4, 8}, ErrIndexRecycled},
		{"at next", []IndexID{4, 15}, ErrIndexAboveGenerated},
		{"above next", []IndexID{99}, ErrIndexAboveGenerated},
		{"below minimum", []IndexID{0}, ErrIndexBelowMinimum},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ix := mustIndexes(t, group)
			mustGenerate(t, ix)
			if err := ix.Import(15, c.recycled); !errors.Is(err, c.want) {
				t.Fatalf("err = %v, want %v", err, c.want)
			}
			next, n, _ := ix.Export(nil)
			if next != 2 || n != 0 {
				t.Fatalf("rejected import changed state: next %d recycled %d", next, n)
			}
		})
	}
}

func TestIndexesImportedQueueNeverReissuesLive(t *testing.T) {
	group := GroupFromValue(0)
	ix := mustIndexes(t, group)
	if err := ix.Import(4, []IndexID{2}); err != nil {
		t.Fatal(err)
	}
	if id := mustGenerate(t, ix); id != NewID(group, 2) {
		t.Fatalf("got %v", id)
	}
	if err := ix.Free(NewID(group, 3)); err != nil {
		t.Fatalf("free of imported live index: %v", err)
	}
	if err := ix.Free(NewID(group, 3)); !errors.Is(err, ErrIndexRecycled) {
		t.Fatalf("double free err = %v", err)
	}
}

func TestIndexesCheck(t *testing.T) {
	group := GroupFromValue(0)
	ix := mustIndexes(t, group)
	id := mustGenerate(t, ix)
	if err := ix.Check(id); err != nil {
		t.Fatalf("Check(live) = %v", err)
	}
	if ix.Live() != 1 {
		t.Fatal("Check freed the id")
	}
	_ = ix.Free(id)
	if err := ix.Check(id); !errors.Is(err, ErrIndexRecycled) {
		t.Fatalf("Check(freed) = %v", err)
	}
	if err := ix.Check(NewID(group, 5)); !errors.Is(err, ErrIndexAboveGenerated) {
		t.Fatalf("Check(unissued) = %v", err)
	}
}

func TestIndexesSnapshot(t *testing.T) {
	ix := mustIndexes(t, GroupFromValue(0))
	for i := 0; i < 4; i++ {
		mustGenerate(t, ix)
	}
	if err := ix.FreeMany([]ID{NewID(GroupFromValue(0), 3), NewID(GroupFromValue(0), 1)}); err != nil {
		t.Fatal(err)
	}
	next, recycled := ix.Snapshot()
	if next != 5 || !slices.Equal(recycled, []IndexID{3, 1}) {
		t.Fatalf("snapshot = %d, %v", next, recycled)
	}
}

func TestIndexesForEach(t *testing.T) {
	group := GroupFromValue(0)
	ix := mustIndexes(t, group)
	for i := 0; i < 15; i++ {
		mustGenerate(t, ix)
	}
	for _, index := range []IndexID{15, 8, 4, 10} {
		if err := ix.Free(NewID(group, index)); err != nil {
			t.Fatal(err)
		}
	}

	var got []IndexID
	ix.ForEach(func(id ID) { got = append(got, id.Index()) })
	want := []IndexID{1, 2, 3, 5, 6, 7, 9, 11, 12, 13, 14}
	if !slices.Equal(got, want) {
		t.Fatalf("ForEach = %v, want %v", got, want)
	}
	if ix.Live() != len(want) {
		t.Errorf("live = %d", ix.Live())
	}
}

func TestIndexesConcurrent(t *testing.T) {
	ix := mustIndexes(t, TemporaryGroup)
	const workers, rounds = 8, 500

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[ID]int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				id, err := ix.Generate()
				if err != nil {
					t.Error(err)
					return
				}
				if r%2 == 0 {
					if err := ix.Free(id); err != nil {
						t.Error(err)
					}
					continue
				}
				mu.Lock()
				seen[id]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for id, n := range seen {
		if n != 1 {
			t.Fatalf("%v held by %d owners", id, n)
		}
	}
	if ix.Live() != len(seen) {
		t.Errorf("live = %d, kept = %d", ix.Live(), len(seen))
	}
}
