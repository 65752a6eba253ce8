package registry

import (
	"github.com/cockroachdb/pebble"
)

// A *pebble.DB is registered with the generic Register.

// RegisterIterator pushes it.Close and returns it unchanged.
func (r *Registry) RegisterIterator(it *pebble.Iterator) *pebble.Iterator {
	r.RegisterFunc(CategoryCursor, "iterator", func() error {
		return it.Close()
	})
	return it
}

// RegisterSnapshot pushes s.Close and returns s unchanged.
func (r *Registry) RegisterSnapshot(s *pebble.Snapshot) *pebble.Snapshot {
	r.RegisterFunc(CategorySnapshot, "snapshot", func() error {
		return s.Close()
	})
	return s
}

// RegisterBatch pushes b.Close and returns b unchanged.
func (r *Registry) RegisterBatch(b *pebble.Batch) *pebble.Batch {
	r.RegisterFunc(CategoryBatch, "batch", func() error {
		return b.Close()
	})
	return b
}
