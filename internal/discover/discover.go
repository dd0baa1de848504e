// Package discover turns an enumeration of named items into a stream of
// capturable-executable discoveries. Items whose names do not match the
// grammar are expected noise and are skipped silently.
package discover

import (
	"context"

	"github.com/marcelocantos/capexec/internal/grammar"
	"github.com/marcelocantos/capexec/internal/source"
)

// Discovery is one item whose name matched the grammar. Read-only once
// yielded; consumed exactly once by the orchestrator.
type Discovery struct {
	Key     string
	Spec    string
	Item    any
	Payload any
	Name    string
	Parsed  grammar.ParsedName
}

// SelectNameFunc extracts the candidate name from an enumerated item, or
// returns "" to skip it.
type SelectNameFunc func(source.Encountered) string

// FilterFunc rejects items before name extraction. An item rejected here
// never reaches the parser.
type FilterFunc func(source.Encountered) bool

// Options configures a walk.
type Options struct {
	// SelectName is required.
	SelectName SelectNameFunc

	// Filter, when set, is applied before SelectName.
	Filter FilterFunc

	// OnInvalidSpec is forwarded verbatim to the adapter.
	OnInvalidSpec source.InvalidSpecFunc
}

// Stream is a lazy, single-pass sequence of discoveries in adapter
// enumeration order.
type Stream struct {
	it   source.Iterator
	opts Options
	cur  Discovery
}

// Walk starts enumerating specs through adapter and returns the discovery
// stream. The stream is not restartable; the underlying enumeration may be
// single-pass.
func Walk(ctx context.Context, adapter source.Adapter, specs []string, opts Options) *Stream {
	return &Stream{
		it:   adapter.Enumerate(ctx, specs, opts.OnInvalidSpec),
		opts: opts,
	}
}

// Next advances to the next matching item.
func (s *Stream) Next() bool {
	for s.it.Next() {
		item := s.it.Value()
		if s.opts.Filter != nil && !s.opts.Filter(item) {
			continue
		}
		name := s.opts.SelectName(item)
		if name == "" {
			continue
		}
		parsed, ok := grammar.Parse(name)
		if !ok {
			continue
		}
		s.cur = Discovery{
			Key:     item.Key,
			Spec:    item.Spec,
			Item:    item.Item,
			Payload: item.Payload,
			Name:    name,
			Parsed:  parsed,
		}
		return true
	}
	return false
}

// Value returns the discovery positioned by the last successful Next.
func (s *Stream) Value() Discovery { return s.cur }

// Err surfaces any enumeration error once Next returns false.
func (s *Stream) Err() error { return s.it.Err() }

// Close releases the underlying enumeration.
func (s *Stream) Close() error { return s.it.Close() }

// Collect drains the stream into a slice. It is a convenience for callers
// that want the eager form; the stream is consumed afterwards.
func (s *Stream) Collect() ([]Discovery, error) {
	var out []Discovery
	for s.Next() {
		out = append(out, s.Value())
	}
	return out, s.Err()
}

// BaseName is the usual name selector for filesystem-style keys: the final
// path segment of the item key.
func BaseName(e source.Encountered) string {
	key := e.Key
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' || key[i] == '\\' {
			return key[i+1:]
		}
	}
	return key
}
