package ecs

import (
	"slices"
	"testing"
)

func TestEntityListReset(t *testing.T) {
	l := NewEntityList()
	if l.Size() != 0 {
		t.Fatalf("size = %d", l.Size())
	}

	l.Reset([]ID{1, 2}, nil, []ID{7})
	if !slices.Equal(l.IDs(), []ID{1, 2, 7}) {
		t.Fatalf("ids = %v", l.IDs())
	}

	l.Reset([]ID{9})
	if !slices.Equal(l.IDs(), []ID{9}) {
		t.Fatalf("reset did not replace contents: %v", l.IDs())
	}

	l.Reset()
	if l.Size() != 0 {
		t.Fatalf("size after empty reset = %d", l.Size())
	}
}

func TestEntityListIDsIsCopy(t *testing.T) {
	l := NewEntityList()
	l.Reset([]ID{1, 2, 3})
	ids := l.IDs()
	ids[0] = 99
	if l.IDs()[0] != 1 {
		t.Fatal("IDs exposed internal storage")
	}
}
