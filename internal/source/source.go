// Package source defines the enumeration contract consumed by the
// discovery walker. An Adapter enumerates items from somewhere — a file
// tree, an object store, database rows — into a uniform Encountered shape;
// the walker neither knows nor cares where items come from.
package source

import "context"

// Encountered is one enumerated item.
type Encountered struct {
	// Key uniquely identifies the item across the whole enumeration
	// (for filesystem adapters, the absolute path).
	Key string

	// Spec is the normalized root spec this item was enumerated under.
	Spec string

	// Item is the adapter's raw item (fs.DirEntry, object info, row
	// values, …). Opaque to the engine.
	Item any

	// Payload carries optional adapter-specific data alongside the item.
	Payload any
}

// InvalidSpecFunc is invoked once per root spec the adapter judges invalid,
// with a human-readable reason. Enumeration of the remaining specs
// continues regardless.
type InvalidSpecFunc func(spec, reason string)

// Iterator is a single-pass pull iterator over enumerated items.
// Usage:
//
//	it := adapter.Enumerate(ctx, specs, nil)
//	defer it.Close()
//	for it.Next() {
//		item := it.Value()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator interface {
	Next() bool
	Value() Encountered
	Err() error
	Close() error
}

// Adapter enumerates items for a sequence of root specs.
type Adapter interface {
	Enumerate(ctx context.Context, specs []string, onInvalid InvalidSpecFunc) Iterator
}

// SliceIterator adapts an in-memory slice to the Iterator contract.
// Handy for tests and for adapters that materialize eagerly.
type SliceIterator struct {
	items []Encountered
	idx   int
	err   error
}

// NewSliceIterator returns an iterator over items, surfacing err (if any)
// after the items are exhausted.
func NewSliceIterator(items []Encountered, err error) *SliceIterator {
	return &SliceIterator{items: items, err: err}
}

func (it *SliceIterator) Next() bool {
	if it.idx >= len(it.items) {
		return false
	}
	it.idx++
	return true
}

func (it *SliceIterator) Value() Encountered {
	if it.idx == 0 || it.idx > len(it.items) {
		return Encountered{}
	}
	return it.items[it.idx-1]
}

func (it *SliceIterator) Err() error   { return it.err }
func (it *SliceIterator) Close() error { return nil }
