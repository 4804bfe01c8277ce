package inode

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/math"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Read copies bytes starting at `offset` into `buf`. The count is clamped to
// the bytes remaining in the stream, so reading at or past `size` returns 0.
func Read(a Allocator, inode *Inode, offset Byte, buf []byte) (Byte, error) {
	if offset < 0 || offset >= inode.Metadata.Size {
		return 0, nil
	}
	length := math.Min(Byte(len(buf)), inode.Metadata.Size-offset)

	bm := newBlockMap(a, inode)
	var block [BlockSize]byte
	var done Byte
	for done < length {
		idx := Block((offset + done) / BlockSize)
		chunkOffset := (offset + done) % BlockSize
		chunkLength := math.Min(length-done, BlockSize-chunkOffset)

		physical, err := bm.physical(idx)
		if err != nil {
			return done, fmt.Errorf(
				"reading `%d` bytes at offset `%d`: %w",
				length,
				offset,
				err,
			)
		}
		if physical == BlockNil {
			return done, fmt.Errorf(
				"reading `%d` bytes at offset `%d`: block index `%d` unmapped: %w",
				length,
				offset,
				idx,
				IOFailureErr,
			)
		}
		if err := a.Read(physical, &block); err != nil {
			return done, fmt.Errorf(
				"reading `%d` bytes at offset `%d`: %w",
				length,
				offset,
				err,
			)
		}

		copy(
			buf[done:done+chunkLength],
			block[chunkOffset:chunkOffset+chunkLength],
		)
		done += chunkLength
	}
	return done, nil
}

// BlockNumberAt returns the physical block backing logical block `idx`, or
// BlockNil when `idx` is past the end of the chain.
func BlockNumberAt(a Allocator, inode *Inode, idx Block) (Block, error) {
	bm := newBlockMap(a, inode)
	b, err := bm.physical(idx)
	if err != nil {
		return BlockNil, fmt.Errorf("mapping block index `%d`: %w", idx, err)
	}
	return b, nil
}
