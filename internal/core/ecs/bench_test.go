package ecs

import "testing"

func BenchmarkPoolInsertMaintain(b *testing.B) {
	const batch = 1024
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p := NewDataPool[int](batch)
		for j := batch; j > 0; j-- {
			p.Insert(ID(j), j)
		}
		_ = p.Maintenance()
	}
}

func BenchmarkPoolChurn(b *testing.B) {
	const live = 4096
	p := NewDataPool[int](live)
	for j := 1; j <= live; j++ {
		p.Insert(ID(j), j)
	}
	_ = p.Maintenance()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := ID(i%live + 1)
		p.Remove(id)
		_ = p.Maintenance()
		p.Insert(id, i)
		_ = p.Maintenance()
	}
}

func BenchmarkIndexesGenerateFree(b *testing.B) {
	ix, _ := NewIndexes(TemporaryGroup)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		id, err := ix.Generate()
		if err != nil {
			b.Fatal(err)
		}
		if err := ix.Free(id); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkJoin2(b *testing.B) {
	pa, pb := NewDataPool[int](0), NewDataPool[int](0)
	for j := 1; j <= 10000; j++ {
		pa.Insert(ID(j), j)
		if j%3 == 0 {
			pb.Insert(ID(j), j)
		}
	}
	_ = pa.Maintenance()
	_ = pb.Maintenance()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sum := 0
		Join2(pa, pb, func(_ ID, x, y *int) { sum += *x + *y })
	}
}
