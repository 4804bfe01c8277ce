package object

import (
	"fmt"
	"log"

	"github.com/weberc2/blockfs/pkg/inode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Directory keeps `count int32` followed by packed entries in its stream.
// Entries are only appended or fully rewritten, so order is insertion order.
type Directory struct {
	Base
}

// Add creates a child of type `et` and appends its entry.
func (d *Directory) Add(
	name string,
	et ElementType,
	owner int32,
	permissions int32,
) error {
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("adding `%s`: %w", name, err)
	}
	if err := et.Validate(); err != nil {
		return fmt.Errorf("adding `%s`: %w", name, err)
	}

	if err := d.beginWrite(); err != nil {
		return fmt.Errorf("adding `%s`: %w", name, err)
	}
	defer d.endWrite()

	entries, err := d.readEntries()
	if err != nil {
		return fmt.Errorf("adding `%s`: %w", name, err)
	}
	if _, found := entryIndex(entries, name); found {
		return fmt.Errorf("adding `%s`: %w", name, AlreadyExistsErr)
	}

	if d.inode.Metadata.Size < EntryCountSize {
		if err := d.writeCount(0); err != nil {
			return fmt.Errorf("adding `%s`: %w", name, err)
		}
	}

	block, err := d.allocator.AllocateFreeBlock()
	if err != nil {
		return fmt.Errorf("adding `%s`: %w", name, err)
	}
	child, err := newChild(d.allocator, block, et, owner, permissions)
	if err != nil {
		d.discard(block, child)
		return fmt.Errorf("adding `%s`: %w", name, err)
	}

	entry := DirEntry{Block: block, Name: name}
	if err := d.writeEntry(len(entries), &entry); err != nil {
		d.discard(block, child)
		return fmt.Errorf("adding `%s`: %w", name, err)
	}
	if err := d.writeCount(len(entries) + 1); err != nil {
		d.discard(block, child)
		return fmt.Errorf("adding `%s`: %w", name, err)
	}
	return nil
}

// newChild formats the child inode. Directories start with an explicit zero
// count.
func newChild(
	a Allocator,
	block Block,
	et ElementType,
	owner int32,
	permissions int32,
) (Object, error) {
	ino, err := inode.Create(a, block, et, owner, permissions)
	if err != nil {
		return nil, err
	}
	if et == ElementTypeFile {
		return &File{Base: newBase(a, block, ino)}, nil
	}
	dir := &Directory{Base: newBase(a, block, ino)}
	if err := dir.writeCount(0); err != nil {
		return dir, err
	}
	return dir, nil
}

// discard releases a half-created child.
func (d *Directory) discard(block Block, child Object) {
	if child != nil {
		err := child.Destroy()
		if err == nil {
			return
		}
		log.Printf("ERROR discarding child at block `%d`: %v", block, err)
	}
	if err := d.allocator.FreeBlock(block); err != nil {
		log.Printf("ERROR discarding child at block `%d`: %v", block, err)
	}
}

func (d *Directory) List() ([]string, error) {
	if err := d.beginRead(); err != nil {
		return nil, fmt.Errorf("listing directory: %w", err)
	}
	defer d.endRead()
	entries, err := d.readEntries()
	if err != nil {
		return nil, fmt.Errorf("listing directory: %w", err)
	}
	names := make([]string, len(entries))
	for i := range entries {
		names[i] = entries[i].Name
	}
	return names, nil
}

// ListInfo is List plus each child's metadata.
func (d *Directory) ListInfo() ([]EntryInfo, error) {
	if err := d.beginRead(); err != nil {
		return nil, fmt.Errorf("listing directory: %w", err)
	}
	defer d.endRead()
	entries, err := d.readEntries()
	if err != nil {
		return nil, fmt.Errorf("listing directory: %w", err)
	}
	infos := make([]EntryInfo, len(entries))
	for i := range entries {
		ino, err := inode.Load(d.allocator, entries[i].Block)
		if err != nil {
			return nil, fmt.Errorf(
				"listing directory: entry `%s`: %w",
				entries[i].Name,
				err,
			)
		}
		infos[i] = EntryInfo{Name: entries[i].Name, Metadata: ino.Metadata}
	}
	return infos, nil
}

// Open loads the named child. It returns NotFoundErr if there is no such
// entry.
func (d *Directory) Open(name string) (Object, error) {
	if err := d.beginRead(); err != nil {
		return nil, fmt.Errorf("opening `%s`: %w", name, err)
	}
	defer d.endRead()
	entries, err := d.readEntries()
	if err != nil {
		return nil, fmt.Errorf("opening `%s`: %w", name, err)
	}
	i, found := entryIndex(entries, name)
	if !found {
		return nil, fmt.Errorf("opening `%s`: %w", name, NotFoundErr)
	}
	obj, err := Load(d.allocator, entries[i].Block)
	if err != nil {
		return nil, fmt.Errorf("opening `%s`: %w", name, err)
	}
	return obj, nil
}

// Remove drops the named entry by rewriting the whole stream. The child's
// own blocks are left alone; callers destroy the child separately. A failure
// partway through may leave the count out of step with the stored entries.
func (d *Directory) Remove(name string) error {
	if err := d.beginWrite(); err != nil {
		return fmt.Errorf("removing `%s`: %w", name, err)
	}
	defer d.endWrite()
	entries, err := d.readEntries()
	if err != nil {
		return fmt.Errorf("removing `%s`: %w", name, err)
	}
	i, found := entryIndex(entries, name)
	if !found {
		return fmt.Errorf("removing `%s`: %w", name, NotFoundErr)
	}

	kept := make([]DirEntry, 0, len(entries)-1)
	kept = append(kept, entries[:i]...)
	kept = append(kept, entries[i+1:]...)
	if err := d.rewrite(kept); err != nil {
		return fmt.Errorf("removing `%s`: %w", name, err)
	}
	return nil
}

func (d *Directory) EntryExists(name string) (bool, error) {
	_, found, err := d.EntryIndex(name)
	return found, err
}

// EntryIndex returns the position of `name` in insertion order. `found` is
// false when there is no such entry.
func (d *Directory) EntryIndex(name string) (index int, found bool, err error) {
	if err := d.beginRead(); err != nil {
		return 0, false, fmt.Errorf("looking up `%s`: %w", name, err)
	}
	defer d.endRead()
	entries, err := d.readEntries()
	if err != nil {
		return 0, false, fmt.Errorf("looking up `%s`: %w", name, err)
	}
	index, found = entryIndex(entries, name)
	return index, found, nil
}

// IsEmpty reports whether the directory has no entries.
func (d *Directory) IsEmpty() (bool, error) {
	names, err := d.List()
	if err != nil {
		return false, err
	}
	return len(names) == 0, nil
}
