// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/marcelocantos/capexec/internal/discover"

// Source feeds discoveries to the orchestrator. *discover.Stream satisfies
// it directly; FromSlice and FromFunc adapt the eager and deferred forms.
type Source interface {
	Next() bool
	Value() discover.Discovery
	Err() error
}

type sliceSource struct {
	items []discover.Discovery
	idx   int
}

// FromSlice adapts an eagerly available collection of discoveries.
func FromSlice(items []discover.Discovery) Source {
	return &sliceSource{items: items}
}

func (s *sliceSource) Next() bool {
	if s.idx >= len(s.items) {
		return false
	}
	s.idx++
	return true
}

func (s *sliceSource) Value() discover.Discovery { return s.items[s.idx-1] }
func (s *sliceSource) Err() error                { return nil }

type funcSource struct {
	fn  func() Source
	src Source
}

// FromFunc defers source construction until the first pull. The function
// runs at most once.
func FromFunc(fn func() Source) Source {
	return &funcSource{fn: fn}
}

func (f *funcSource) force() Source {
	if f.src == nil {
		f.src = f.fn()
	}
	return f.src
}

func (f *funcSource) Next() bool                { return f.force().Next() }
func (f *funcSource) Value() discover.Discovery { return f.force().Value() }
func (f *funcSource) Err() error                { return f.force().Err() }
