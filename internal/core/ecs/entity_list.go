package ecs

import "sync"

// EntityList is a flat snapshot of IDs, replaced wholesale by Reset. Systems use it to
// hand the set of changed entities from one tick to the next.
type EntityList struct {
	mu  sync.RWMutex
	ids []ID
}

func NewEntityList() *EntityList {
	return &EntityList{}
}

// Reset replaces the contents with the concatenation of lists, in order.
func (l *EntityList) Reset(lists ...[]ID) {
	total := 0
	for _, ids := range lists {
		total += len(ids)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if cap(l.ids) < total {
		l.ids = make([]ID, 0, total)
	}
	l.ids = l.ids[:0]
	for _, ids := range lists {
		l.ids = append(l.ids, ids...)
	}
}

func (l *EntityList) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// IDs returns a copy of the current contents.
func (l *EntityList) IDs() []ID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ID, len(l.ids))
	copy(out, l.ids)
	return out
}
