package inode

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/math"
	. "github.com/weberc2/blockfs/pkg/types"
)

// FreeAll releases every data block and the indirect block, then persists the
// emptied inode. The inode's own block is not freed.
func FreeAll(a Allocator, block Block, inode *Inode) error {
	bm := newBlockMap(a, inode)
	var table *[IndirectBlocksCount]Block
	if inode.NumBlocks > DirectBlocksCount {
		t, err := bm.indirect()
		if err != nil {
			return fmt.Errorf("freeing inode `%d` blocks: %w", block, err)
		}
		table = t
	}

	direct := math.Min(inode.NumBlocks, DirectBlocksCount)
	for i := Block(0); i < direct; i++ {
		if err := a.FreeBlock(inode.DirectBlocks[i]); err != nil {
			return fmt.Errorf("freeing inode `%d` blocks: %w", block, err)
		}
	}
	if table != nil {
		for i := Block(0); i < inode.NumBlocks-DirectBlocksCount; i++ {
			if err := a.FreeBlock(table[i]); err != nil {
				return fmt.Errorf("freeing inode `%d` blocks: %w", block, err)
			}
		}
	}
	if inode.IndirectBlock != BlockNil {
		if err := a.FreeBlock(inode.IndirectBlock); err != nil {
			return fmt.Errorf("freeing inode `%d` blocks: %w", block, err)
		}
	}

	inode.NumBlocks = 0
	inode.Metadata.Size = 0
	inode.DirectBlocks = [DirectBlocksCount]Block{}
	inode.IndirectBlock = BlockNil
	if err := Save(a, block, inode); err != nil {
		return fmt.Errorf("freeing inode `%d` blocks: %w", block, err)
	}
	return nil
}
