package inode

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/encode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// blockMap translates logical block indices to physical blocks. The indirect
// table is loaded at most once per walk.
type blockMap struct {
	allocator Allocator
	inode     *Inode
	table     *[IndirectBlocksCount]Block
}

func newBlockMap(a Allocator, inode *Inode) blockMap {
	return blockMap{allocator: a, inode: inode}
}

// physical returns BlockNil for indices past the end of the chain.
func (bm *blockMap) physical(idx Block) (Block, error) {
	if idx >= bm.inode.NumBlocks || idx >= MaxBlocksPerInode {
		return BlockNil, nil
	}
	if idx < DirectBlocksCount {
		return bm.inode.DirectBlocks[idx], nil
	}
	table, err := bm.indirect()
	if err != nil {
		return BlockNil, err
	}
	return table[idx-DirectBlocksCount], nil
}

func (bm *blockMap) indirect() (*[IndirectBlocksCount]Block, error) {
	if bm.table != nil {
		return bm.table, nil
	}
	if bm.inode.IndirectBlock == BlockNil {
		return nil, fmt.Errorf(
			"loading indirect block: inode has `%d` blocks but no indirect "+
				"block: %w",
			bm.inode.NumBlocks,
			IOFailureErr,
		)
	}
	var buf [BlockSize]byte
	if err := bm.allocator.Read(bm.inode.IndirectBlock, &buf); err != nil {
		return nil, fmt.Errorf("loading indirect block: %w", err)
	}
	var table [IndirectBlocksCount]Block
	encode.DecodeIndirect(&table, &buf)
	bm.table = &table
	return bm.table, nil
}

// grow appends one freshly allocated block to the chain, allocating the
// indirect block first when the direct slots are full.
func (bm *blockMap) grow() error {
	idx := bm.inode.NumBlocks
	if idx >= MaxBlocksPerInode {
		return fmt.Errorf(
			"growing block map past `%d` blocks: %w",
			MaxBlocksPerInode,
			DeviceExhaustedErr,
		)
	}

	if idx < DirectBlocksCount {
		b, err := bm.allocator.AllocateFreeBlock()
		if err != nil {
			return fmt.Errorf("growing block map: %w", err)
		}
		bm.inode.DirectBlocks[idx] = b
		bm.inode.NumBlocks++
		return nil
	}

	var fresh Block
	if bm.inode.IndirectBlock == BlockNil {
		b, err := bm.allocator.AllocateFreeBlock()
		if err != nil {
			return fmt.Errorf("growing block map: allocating indirect: %w", err)
		}
		fresh = b
		bm.inode.IndirectBlock = b
		bm.table = &[IndirectBlocksCount]Block{}
	}

	b, err := bm.allocator.AllocateFreeBlock()
	if err != nil {
		bm.release(fresh)
		return fmt.Errorf("growing block map: %w", err)
	}

	table, err := bm.indirect()
	if err != nil {
		bm.release(fresh)
		_ = bm.allocator.FreeBlock(b)
		return fmt.Errorf("growing block map: %w", err)
	}
	table[idx-DirectBlocksCount] = b

	var buf [BlockSize]byte
	encode.EncodeIndirect(table, &buf)
	if err := bm.allocator.Write(bm.inode.IndirectBlock, &buf); err != nil {
		table[idx-DirectBlocksCount] = BlockNil
		bm.release(fresh)
		_ = bm.allocator.FreeBlock(b)
		return fmt.Errorf("growing block map: storing indirect: %w", err)
	}
	bm.inode.NumBlocks++
	return nil
}

// release undoes a freshly allocated indirect block.
func (bm *blockMap) release(indirect Block) {
	if indirect == BlockNil {
		return
	}
	_ = bm.allocator.FreeBlock(indirect)
	bm.inode.IndirectBlock = BlockNil
	bm.table = nil
}
