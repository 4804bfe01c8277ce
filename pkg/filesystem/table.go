package filesystem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/weberc2/blockfs/pkg/object"
	. "github.com/weberc2/blockfs/pkg/types"
)

// open resolves `path` one component at a time. Each step takes the table
// lock once, so a concurrent remove may invalidate a directory between two
// steps; the walk then fails with NotFoundErr for that directory.
func (fs *FileSystem) open(path string) (Handle, error) {
	components, requireDir, err := parsePath(path)
	if err != nil {
		return InvalidHandle, err
	}

	current := RootHandle
	for i, name := range components {
		h, err := fs.step(current, components[:i], name)
		if err != nil {
			fs.release(ancestors(components[:i]))
			return InvalidHandle, err
		}
		current = h
	}

	if requireDir {
		e, err := fs.lookup(current)
		if err == nil && e.object.Type() != ElementTypeDirectory {
			err = &PathError{Path: canonical(components), Err: NotADirErr}
		}
		if err != nil {
			fs.release(ancestors(components))
			return InvalidHandle, err
		}
	}
	return current, nil
}

// step opens `name` under the directory held by `parent`, taking a
// reference on it.
func (fs *FileSystem) step(
	parent Handle,
	parentComponents []string,
	name string,
) (Handle, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	parentPath := canonical(parentComponents)
	p, ok := fs.entries[parent]
	if !ok || p.path != parentPath {
		return InvalidHandle, &PathError{Path: parentPath, Err: NotFoundErr}
	}
	dir, ok := p.object.(*object.Directory)
	if !ok {
		return InvalidHandle, &PathError{Path: parentPath, Err: NotADirErr}
	}

	components := make([]string, len(parentComponents)+1)
	copy(components, parentComponents)
	components[len(parentComponents)] = name
	path := canonical(components)
	if h, ok := fs.byPath[path]; ok {
		fs.entries[h].openCount++
		return h, nil
	}

	obj, err := dir.Open(name)
	if err != nil {
		if errors.Is(err, NotFoundErr) {
			return InvalidHandle, &PathError{Path: path, Err: NotFoundErr}
		}
		return InvalidHandle, fmt.Errorf("opening `%s`: %w", path, err)
	}

	h := fs.next
	fs.next++
	fs.byPath[path] = h
	fs.entries[h] = &entry{path: path, object: obj, openCount: 1}
	return h, nil
}

// release drops one reference from each path, evicting entries that reach
// zero.
func (fs *FileSystem) release(paths []string) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.releaseLocked(paths, 1)
}

func (fs *FileSystem) releaseLocked(paths []string, count int) {
	for _, path := range paths {
		h, ok := fs.byPath[path]
		if !ok || h == RootHandle {
			continue
		}
		e := fs.entries[h]
		e.openCount -= count
		if e.openCount <= 0 {
			delete(fs.byPath, path)
			delete(fs.entries, h)
		}
	}
}

// evict forcibly drops `path` and everything open beneath it, subtracting
// their references from the ancestors that were counted on their behalf.
func (fs *FileSystem) evict(path string) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	h, ok := fs.byPath[path]
	if !ok {
		return
	}
	count := fs.entries[h].openCount

	prefix := path + "/"
	for p, h := range fs.byPath {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.byPath, p)
			delete(fs.entries, h)
		}
	}

	components := split(path)
	fs.releaseLocked(ancestors(components[:len(components)-1]), count)
}

func (fs *FileSystem) lookup(h Handle) (entry, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	e, ok := fs.entries[h]
	if !ok {
		return entry{}, fmt.Errorf("handle `%d`: %w", h, InvalidHandleErr)
	}
	return *e, nil
}

func (fs *FileSystem) close(h Handle) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	e, ok := fs.entries[h]
	if !ok {
		return fmt.Errorf("closing handle `%d`: %w", h, InvalidHandleErr)
	}
	if h == RootHandle {
		return nil
	}
	fs.releaseLocked(ancestors(split(e.path)), 1)
	return nil
}

// openCount reports the reference count of an open path, or zero.
func (fs *FileSystem) openCount(path string) int {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if h, ok := fs.byPath[path]; ok {
		return fs.entries[h].openCount
	}
	return 0
}
