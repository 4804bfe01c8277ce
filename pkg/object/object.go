// Package object wraps inodes in synchronized in-memory objects. A File is a
// plain byte stream; a Directory stores a packed entry list in its stream.
package object

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/inode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Allocator is the block allocator as seen by objects.
type Allocator interface {
	inode.Allocator
	FirstAllocatableBlock() Block
	IsFree(Block) bool
	Reserve(Block) error
}

// Object is either a *File or a *Directory.
type Object interface {
	Block() Block
	Type() ElementType
	Metadata() Metadata
	Destroy() error
}

var (
	_ Object = (*File)(nil)
	_ Object = (*Directory)(nil)
)

// Base is the state shared by files and directories: the inode, the block it
// is persisted to and the gate guarding both.
type Base struct {
	gate      Gate
	allocator Allocator
	block     Block
	et        ElementType
	inode     Inode
	destroyed bool
}

func newBase(a Allocator, block Block, ino Inode) Base {
	return Base{
		allocator: a,
		block:     block,
		et:        ino.Metadata.Type,
		inode:     ino,
	}
}

func (b *Base) Block() Block { return b.block }

func (b *Base) Type() ElementType { return b.et }

func (b *Base) Gate() *Gate { return &b.gate }

// Metadata returns a copy of the inode's metadata without stamping it.
func (b *Base) Metadata() (md Metadata) {
	_ = b.gate.BeginRead(nil)
	defer b.gate.EndRead()
	b.gate.snapshot(func() { md = b.inode.Metadata })
	return
}

// beginRead enters a read section and stamps the accessed time.
func (b *Base) beginRead() error {
	return b.gate.BeginRead(func() error {
		if b.destroyed {
			return b.destroyedErr()
		}
		return inode.TouchAccessed(b.allocator, b.block, &b.inode)
	})
}

func (b *Base) endRead() { b.gate.EndRead() }

// beginWrite enters the exclusive section and stamps the modified time.
func (b *Base) beginWrite() error {
	return b.gate.BeginWrite(func() error {
		if b.destroyed {
			return b.destroyedErr()
		}
		return inode.TouchModified(b.allocator, b.block, &b.inode)
	})
}

func (b *Base) endWrite() { b.gate.EndWrite() }

func (b *Base) destroyedErr() error {
	return fmt.Errorf("object at block `%d` was removed: %w", b.block, NotFoundErr)
}

// Destroy releases the object's data blocks and its inode block. Every later
// read or write fails with NotFoundErr; destroying twice is a no-op.
func (b *Base) Destroy() error {
	if err := b.gate.BeginWrite(nil); err != nil {
		return err
	}
	defer b.gate.EndWrite()
	if b.destroyed {
		return nil
	}
	b.destroyed = true
	if err := inode.FreeAll(b.allocator, b.block, &b.inode); err != nil {
		return fmt.Errorf("destroying object at block `%d`: %w", b.block, err)
	}
	if err := b.allocator.FreeBlock(b.block); err != nil {
		return fmt.Errorf("destroying object at block `%d`: %w", b.block, err)
	}
	return nil
}

// Load reads the inode at `block` and wraps it in the object its type calls
// for.
func Load(a Allocator, block Block) (Object, error) {
	ino, err := inode.Load(a, block)
	if err != nil {
		return nil, fmt.Errorf("loading object: %w", err)
	}
	switch ino.Metadata.Type {
	case ElementTypeDirectory:
		return &Directory{Base: newBase(a, block, ino)}, nil
	case ElementTypeFile:
		return &File{Base: newBase(a, block, ino)}, nil
	default:
		return nil, fmt.Errorf(
			"loading object at block `%d`: type `%s`: %w",
			block,
			ino.Metadata.Type,
			InvalidElementTypeErr,
		)
	}
}
