// Package inode implements the block-mapped byte stream behind every file and
// directory. An inode lives alone in its block and addresses up to twelve
// direct data blocks plus one indirect block of further block numbers.
package inode

import (
	"fmt"
	"time"

	"github.com/weberc2/blockfs/pkg/encode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// TimeFunc supplies timestamps; tests may replace it.
var TimeFunc = time.Now

// Allocator is the subset of the block allocator the inode layer needs.
type Allocator interface {
	AllocateFreeBlock() (Block, error)
	FreeBlock(Block) error
	Read(Block, *[BlockSize]byte) error
	Write(Block, *[BlockSize]byte) error
}

// Create formats a fresh inode and persists it to `block`. The block must
// already be allocated.
func Create(
	a Allocator,
	block Block,
	et ElementType,
	owner int32,
	permissions int32,
) (Inode, error) {
	t := now()
	inode := Inode{
		Metadata: Metadata{
			Type:        et,
			Owner:       owner,
			Permissions: permissions,
			Created:     t,
			Modified:    t,
			Accessed:    t,
		},
	}
	if err := Save(a, block, &inode); err != nil {
		return Inode{}, fmt.Errorf("creating inode: %w", err)
	}
	return inode, nil
}

func Load(a Allocator, block Block) (Inode, error) {
	var buf [BlockSize]byte
	if err := a.Read(block, &buf); err != nil {
		return Inode{}, fmt.Errorf("loading inode `%d`: %w", block, err)
	}
	var inode Inode
	if err := encode.DecodeInode(&inode, &buf); err != nil {
		return Inode{}, fmt.Errorf("loading inode `%d`: %w", block, err)
	}
	return inode, nil
}

func Save(a Allocator, block Block, inode *Inode) error {
	var buf [BlockSize]byte
	encode.EncodeInode(inode, &buf)
	if err := a.Write(block, &buf); err != nil {
		return fmt.Errorf("saving inode `%d`: %w", block, err)
	}
	return nil
}

// TouchAccessed stamps the accessed time and persists the inode. Only the
// accessed field is written, so readers of other fields may run alongside.
func TouchAccessed(a Allocator, block Block, inode *Inode) error {
	prev := inode.Metadata.Accessed
	inode.Metadata.Accessed = now()
	if err := Save(a, block, inode); err != nil {
		inode.Metadata.Accessed = prev
		return fmt.Errorf("touching accessed time: %w", err)
	}
	return nil
}

func TouchModified(a Allocator, block Block, inode *Inode) error {
	prev := inode.Metadata.Modified
	inode.Metadata.Modified = now()
	if err := Save(a, block, inode); err != nil {
		inode.Metadata.Modified = prev
		return fmt.Errorf("touching modified time: %w", err)
	}
	return nil
}

// timestamps are persisted with second resolution
func now() time.Time { return TimeFunc().Truncate(time.Second) }
