package inode

import (
	"errors"
	"fmt"
	"log"

	"github.com/weberc2/blockfs/pkg/math"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Write stores `data` at `offset`, growing the block chain as needed, and
// persists the inode to `block`. An offset beyond `size` is clamped to
// `size`. When the device runs out of blocks the write is truncated to what
// was backed and the shorter count is returned without an error.
func Write(
	a Allocator,
	block Block,
	inode *Inode,
	offset Byte,
	data []byte,
) (Byte, error) {
	clone := *inode
	if offset < 0 {
		offset = 0
	}
	offset = math.Min(offset, clone.Metadata.Size)
	length := Byte(len(data))

	bm := newBlockMap(a, &clone)
	if end := offset + length; end > clone.Metadata.Size {
		needed := math.Min(
			Block(math.DivRoundUp(end, BlockSize)),
			MaxBlocksPerInode,
		)
		for clone.NumBlocks < needed {
			if err := bm.grow(); err != nil {
				if !errors.Is(err, DeviceExhaustedErr) {
					*inode = persistBestEffort(a, block, &clone)
					return 0, fmt.Errorf(
						"writing `%d` bytes at offset `%d`: %w",
						length,
						offset,
						err,
					)
				}
				break
			}
		}

		if backed := clone.SizeOnDisk(); backed < end {
			log.Printf(
				"WARN inode `%d`: device exhausted; truncating write from "+
					"`%d` to `%d` bytes",
				block,
				length,
				math.Max(backed-offset, 0),
			)
			length = math.Max(backed-offset, 0)
		}
	}

	var buf [BlockSize]byte
	var done Byte
	for done < length {
		idx := Block((offset + done) / BlockSize)
		chunkOffset := (offset + done) % BlockSize
		chunkLength := math.Min(length-done, BlockSize-chunkOffset)

		physical, err := bm.physical(idx)
		if err == nil && physical == BlockNil {
			err = fmt.Errorf("block index `%d` unmapped: %w", idx, IOFailureErr)
		}
		if err == nil && chunkLength < BlockSize {
			err = a.Read(physical, &buf)
		}
		if err == nil {
			copy(buf[chunkOffset:chunkOffset+chunkLength], data[done:])
			err = a.Write(physical, &buf)
		}
		if err != nil {
			clone.Metadata.Size = math.Max(clone.Metadata.Size, offset+done)
			*inode = persistBestEffort(a, block, &clone)
			return done, fmt.Errorf(
				"writing `%d` bytes at offset `%d`: %w",
				length,
				offset,
				err,
			)
		}
		done += chunkLength
	}

	clone.Metadata.Size = math.Max(clone.Metadata.Size, offset+done)
	if err := Save(a, block, &clone); err != nil {
		return done, fmt.Errorf(
			"writing `%d` bytes at offset `%d`: %w",
			length,
			offset,
			err,
		)
	}
	*inode = clone
	return done, nil
}

// persistBestEffort saves blocks already attached to the chain so they are
// not leaked by a failed write; the save error is logged and dropped.
func persistBestEffort(a Allocator, block Block, inode *Inode) Inode {
	if err := Save(a, block, inode); err != nil {
		log.Printf("ERROR inode `%d`: %v", block, err)
	}
	return *inode
}
