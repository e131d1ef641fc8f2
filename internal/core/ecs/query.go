package ecs

// Join2 calls fn for every ID stored in both pools, in ascending ID order. Both pools
// are sorted by ID, so this is a merge walk; the smaller side drives binary searches
// into the larger one.
func Join2[A, B any](pa *Pool[A], pb *Pool[B], fn func(ID, *A, *B)) {
	if len(pa.ids) <= len(pb.ids) {
		lo := 0
		for i, id := range pa.ids {
			j, ok := searchFrom(pb.ids, lo, id)
			lo = j
			if ok {
				fn(id, &pa.data[i], &pb.data[j])
			}
		}
		return
	}
	lo := 0
	for j, id := range pb.ids {
		i, ok := searchFrom(pa.ids, lo, id)
		lo = i
		if ok {
			fn(id, &pa.data[i], &pb.data[j])
		}
	}
}

// Join3 calls fn for every ID stored in all three pools, in ascending ID order.
func Join3[A, B, C any](pa *Pool[A], pb *Pool[B], pc *Pool[C], fn func(ID, *A, *B, *C)) {
	lc := 0
	Join2(pa, pb, func(id ID, a *A, b *B) {
		k, ok := searchFrom(pc.ids, lc, id)
		lc = k
		if ok {
			fn(id, a, b, &pc.data[k])
		}
	})
}

// searchFrom is a lower-bound search of ids[lo:], returning an absolute offset.
func searchFrom(ids []ID, lo int, id ID) (int, bool) {
	hi := len(ids)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if ids[mid] < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(ids) && ids[lo] == id
}

// JoinComponents calls fn with the records of every ID stored in both component
// pools, in ascending ID order. The records alias pool storage.
func JoinComponents(a, b *ComponentPool, fn func(id ID, ra, rb []byte)) {
	Join2(a.pool, b.pool, func(id ID, ra, rb *[]byte) { fn(id, *ra, *rb) })
}
