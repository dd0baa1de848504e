// Package fswalk enumerates regular files under directory root specs.
package fswalk

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marcelocantos/capexec/internal/source"
)

// Adapter walks each root spec recursively and yields every regular file.
type Adapter struct {
	// FollowHidden includes dot-directories in the walk when true.
	// Dot-files themselves are always yielded; name filtering is the
	// walker's concern, not the adapter's.
	FollowHidden bool
}

// Enumerate validates each spec as a directory, reporting invalid specs
// through onInvalid without aborting. The valid roots are walked one at a
// time as the iterator is consumed; a root is not touched until the
// previous roots are exhausted.
func (a *Adapter) Enumerate(ctx context.Context, specs []string, onInvalid source.InvalidSpecFunc) source.Iterator {
	var roots []string
	for _, spec := range specs {
		root, err := filepath.Abs(spec)
		if err != nil {
			reportInvalid(onInvalid, spec, err.Error())
			continue
		}
		info, err := os.Stat(root)
		if err != nil {
			reportInvalid(onInvalid, spec, err.Error())
			continue
		}
		if !info.IsDir() {
			reportInvalid(onInvalid, spec, fmt.Sprintf("%s is not a directory", root))
			continue
		}
		roots = append(roots, root)
	}
	return &rootIterator{ctx: ctx, adapter: a, roots: roots}
}

// rootIterator yields the files of one root at a time, deferring each
// root's walk until its turn comes.
type rootIterator struct {
	ctx     context.Context
	adapter *Adapter
	roots   []string
	items   []source.Encountered
	idx     int
	cur     source.Encountered
	pending error
	err     error
}

func (it *rootIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.idx < len(it.items) {
			it.cur = it.items[it.idx]
			it.idx++
			return true
		}
		// Items collected before a walk error are yielded first.
		if it.pending != nil {
			it.err = it.pending
			return false
		}
		if len(it.roots) == 0 {
			return false
		}
		root := it.roots[0]
		it.roots = it.roots[1:]
		it.items, it.pending = it.adapter.walkRoot(it.ctx, root)
		it.idx = 0
	}
}

func (it *rootIterator) Value() source.Encountered { return it.cur }
func (it *rootIterator) Err() error                { return it.err }
func (it *rootIterator) Close() error              { return nil }

func (a *Adapter) walkRoot(ctx context.Context, root string) ([]source.Encountered, error) {
	var items []source.Encountered
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			if !a.FollowHidden && path != root && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		items = append(items, source.Encountered{
			Key:  path,
			Spec: root,
			Item: d,
		})
		return nil
	})
	if err != nil {
		return items, fmt.Errorf("walk %s: %w", root, err)
	}
	return items, nil
}

func reportInvalid(onInvalid source.InvalidSpecFunc, spec, reason string) {
	if onInvalid != nil {
		onInvalid(spec, reason)
	}
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.'
}
