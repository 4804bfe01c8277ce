package filesystem

import (
	"errors"
	"fmt"
	"log"

	"github.com/weberc2/blockfs/pkg/object"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Open resolves `path` and takes a reference on it and on every directory
// above it. Opening the same path again returns the same handle.
func (fs *FileSystem) Open(path string) (Handle, error) {
	h, err := fs.open(path)
	return h, fs.record(err)
}

// Close drops the references taken by one Open. Closing the root is a no-op.
func (fs *FileSystem) Close(h Handle) error {
	return fs.record(fs.close(h))
}

// Add creates an empty file or directory at `path`. The parent must exist.
func (fs *FileSystem) Add(
	path string,
	et ElementType,
	owner int32,
	permissions int32,
) error {
	return fs.record(fs.add(path, et, owner, permissions))
}

func (fs *FileSystem) add(
	path string,
	et ElementType,
	owner int32,
	permissions int32,
) error {
	components, requireDir, err := parsePath(path)
	if err != nil {
		return err
	}
	if len(components) == 0 {
		return &PathError{Path: path, Err: AlreadyExistsErr}
	}
	if requireDir && et != ElementTypeDirectory {
		return &PathError{Path: canonical(components), Err: NotADirErr}
	}
	name := components[len(components)-1]
	parentPath := canonical(components[:len(components)-1])

	parent, err := fs.open(parentPath)
	if err != nil {
		return err
	}
	defer fs.close(parent)

	e, err := fs.lookup(parent)
	if err != nil {
		return err
	}
	dir, ok := e.object.(*object.Directory)
	if !ok {
		return &PathError{Path: parentPath, Err: NotADirErr}
	}
	if err := dir.Add(name, et, owner, permissions); err != nil {
		if errors.Is(err, AlreadyExistsErr) {
			return &PathError{Path: canonical(components), Err: AlreadyExistsErr}
		}
		return fmt.Errorf("adding `%s`: %w", canonical(components), err)
	}
	return nil
}

// Remove deletes `path`. Directories are removed together with everything
// beneath them, deepest first. Handles open on removed objects become
// invalid.
func (fs *FileSystem) Remove(path string) error {
	return fs.record(fs.remove(path))
}

func (fs *FileSystem) remove(path string) error {
	components, _, err := parsePath(path)
	if err != nil {
		return err
	}
	if len(components) == 0 {
		return fmt.Errorf("removing `/`: %w", RootRemovalErr)
	}
	target := canonical(components)
	parentPath := canonical(components[:len(components)-1])

	// a trailing separator makes the open fail for non-directories
	h, err := fs.open(path)
	if err != nil {
		return err
	}
	e, err := fs.lookup(h)
	if err != nil {
		return err
	}
	p, err := fs.lookup(fs.handleOf(parentPath))
	if err != nil {
		fs.close(h)
		return fmt.Errorf("removing `%s`: %w", target, err)
	}
	parent := p.object.(*object.Directory)

	if err := fs.destroyTree(target, e.object); err != nil {
		fs.close(h)
		return fmt.Errorf("removing `%s`: %w", target, err)
	}
	if err := parent.Remove(components[len(components)-1]); err != nil {
		fs.close(h)
		return fmt.Errorf("removing `%s`: %w", target, err)
	}
	fs.evict(target)
	return nil
}

// destroyTree frees `obj` and, for directories, every descendant first.
// Descendants that are open are destroyed through their table objects so
// that their gates exclude in-flight readers and writers.
func (fs *FileSystem) destroyTree(path string, obj object.Object) error {
	if dir, ok := obj.(*object.Directory); ok {
		names, err := dir.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			childPath := path + "/" + name
			child, ok := fs.cached(childPath)
			if !ok {
				if child, err = dir.Open(name); err != nil {
					return err
				}
			}
			if err := fs.destroyTree(childPath, child); err != nil {
				return err
			}
		}
	}
	if err := obj.Destroy(); err != nil {
		log.Printf("ERROR destroying `%s`: %v", path, err)
		return err
	}
	return nil
}

func (fs *FileSystem) cached(path string) (object.Object, bool) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if h, ok := fs.byPath[path]; ok {
		return fs.entries[h].object, true
	}
	return nil, false
}

func (fs *FileSystem) handleOf(path string) Handle {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if h, ok := fs.byPath[path]; ok {
		return h
	}
	return InvalidHandle
}

// List returns the entry names of an open directory in insertion order.
func (fs *FileSystem) List(h Handle) ([]string, error) {
	dir, err := fs.directory(h)
	if err != nil {
		return nil, fs.record(err)
	}
	names, err := dir.List()
	return names, fs.record(err)
}

// ListInfo is List with each child's metadata.
func (fs *FileSystem) ListInfo(h Handle) ([]EntryInfo, error) {
	dir, err := fs.directory(h)
	if err != nil {
		return nil, fs.record(err)
	}
	infos, err := dir.ListInfo()
	return infos, fs.record(err)
}

// Read copies up to len(buf) bytes from `offset` of an open file.
func (fs *FileSystem) Read(h Handle, offset Byte, buf []byte) (Byte, error) {
	f, err := fs.file(h)
	if err != nil {
		return 0, fs.record(err)
	}
	n, err := f.Read(offset, buf)
	return n, fs.record(err)
}

// Write stores `data` at `offset` of an open file. Fewer bytes than requested
// are written when the device is exhausted.
func (fs *FileSystem) Write(h Handle, offset Byte, data []byte) (Byte, error) {
	f, err := fs.file(h)
	if err != nil {
		return 0, fs.record(err)
	}
	n, err := f.Write(offset, data)
	return n, fs.record(err)
}

func (fs *FileSystem) Stat(h Handle) (Metadata, error) {
	e, err := fs.lookup(h)
	if err != nil {
		return Metadata{}, fs.record(err)
	}
	return e.object.Metadata(), nil
}

// Path returns the canonical path an open handle was resolved from.
func (fs *FileSystem) Path(h Handle) (string, error) {
	e, err := fs.lookup(h)
	if err != nil {
		return "", fs.record(err)
	}
	return e.path, nil
}

func (fs *FileSystem) Type(h Handle) (ElementType, error) {
	e, err := fs.lookup(h)
	if err != nil {
		return 0, fs.record(err)
	}
	return e.object.Type(), nil
}

func (fs *FileSystem) directory(h Handle) (*object.Directory, error) {
	e, err := fs.lookup(h)
	if err != nil {
		return nil, err
	}
	dir, ok := e.object.(*object.Directory)
	if !ok {
		return nil, &PathError{Path: e.path, Err: NotADirErr}
	}
	return dir, nil
}

func (fs *FileSystem) file(h Handle) (*object.File, error) {
	e, err := fs.lookup(h)
	if err != nil {
		return nil, err
	}
	f, ok := e.object.(*object.File)
	if !ok {
		return nil, &PathError{Path: e.path, Err: NotAFileErr}
	}
	return f, nil
}
