package object

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/inode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// LoadRoot opens the root directory, which always lives at the first
// allocatable block. It returns NoRootErr when that block is free.
func LoadRoot(a Allocator) (*Directory, error) {
	block := a.FirstAllocatableBlock()
	if a.IsFree(block) {
		return nil, fmt.Errorf("loading root: %w", NoRootErr)
	}
	ino, err := inode.Load(a, block)
	if err != nil {
		return nil, fmt.Errorf("loading root: %w", err)
	}
	if ino.Metadata.Type != ElementTypeDirectory {
		return nil, fmt.Errorf(
			"loading root: type `%s`: %w",
			ino.Metadata.Type,
			NotADirErr,
		)
	}
	return &Directory{Base: newBase(a, block, ino)}, nil
}

// CreateRoot formats the root directory in place. It fails if the root
// block is already taken.
func CreateRoot(a Allocator, owner int32, permissions int32) (*Directory, error) {
	block := a.FirstAllocatableBlock()
	if err := a.Reserve(block); err != nil {
		return nil, fmt.Errorf("creating root: %w", err)
	}
	child, err := newChild(a, block, ElementTypeDirectory, owner, permissions)
	if err != nil {
		if child != nil {
			_ = child.Destroy()
		} else {
			_ = a.FreeBlock(block)
		}
		return nil, fmt.Errorf("creating root: %w", err)
	}
	return child.(*Directory), nil
}
