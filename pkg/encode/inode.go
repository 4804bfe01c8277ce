package encode

import (
	"fmt"
	"time"

	. "github.com/weberc2/blockfs/pkg/types"
)

// EncodeInode writes the inode image into the start of `b`; the remainder
// of the block is zeroed.
func EncodeInode(inode *Inode, b *[BlockSize]byte) {
	*b = [BlockSize]byte{}
	p := b[:]

	putU32(p, inodeTypeStart, uint32(inode.Metadata.Type))
	putU32(p, inodeOwnerStart, uint32(inode.Metadata.Owner))
	putU32(p, inodePermissionsStart, uint32(inode.Metadata.Permissions))
	putU32(p, inodeSizeStart, uint32(inode.Metadata.Size))
	putU64(p, inodeCreatedStart, uint64(unix(inode.Metadata.Created)))
	putU64(p, inodeModifiedStart, uint64(unix(inode.Metadata.Modified)))
	putU64(p, inodeAccessedStart, uint64(unix(inode.Metadata.Accessed)))
	putBlock(p, inodeNumBlocksStart, inode.NumBlocks)

	for i := Byte(0); i < Byte(DirectBlocksCount); i++ {
		putBlock(
			p,
			inodeDirectBlocksStart+i*BlockPointerSize,
			inode.DirectBlocks[i],
		)
	}

	putBlock(p, inodeIndirectStart, inode.IndirectBlock)
}

func DecodeInode(inode *Inode, b *[BlockSize]byte) error {
	p := b[:]

	// validate before touching `inode` so a failed decode leaves the pointee
	// untouched
	et := ElementType(getU32(p, inodeTypeStart))
	if et != ElementTypeDirectory &&
		et != ElementTypeFile &&
		et != ElementTypeSymLink {
		return fmt.Errorf("decoding inode: %w", InvalidElementTypeErr)
	}
	numBlocks := getBlock(p, inodeNumBlocksStart)
	if numBlocks > MaxBlocksPerInode {
		return fmt.Errorf(
			"decoding inode: block count `%d`: %w",
			numBlocks,
			BlockOutOfRangeErr,
		)
	}

	inode.Metadata = Metadata{
		Type:        et,
		Owner:       int32(getU32(p, inodeOwnerStart)),
		Permissions: int32(getU32(p, inodePermissionsStart)),
		Size:        Byte(getU32(p, inodeSizeStart)),
		Created:     fromUnix(getU64(p, inodeCreatedStart)),
		Modified:    fromUnix(getU64(p, inodeModifiedStart)),
		Accessed:    fromUnix(getU64(p, inodeAccessedStart)),
	}
	inode.NumBlocks = numBlocks

	for i := Byte(0); i < Byte(DirectBlocksCount); i++ {
		inode.DirectBlocks[i] = getBlock(
			p,
			inodeDirectBlocksStart+i*BlockPointerSize,
		)
	}

	inode.IndirectBlock = getBlock(p, inodeIndirectStart)
	return nil
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(u uint64) time.Time {
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(int64(u), 0)
}

const (
	inodeTypeStart = 0
	inodeTypeSize  = 4
	inodeTypeEnd   = inodeTypeStart + inodeTypeSize

	inodeOwnerStart = inodeTypeEnd
	inodeOwnerSize  = 4
	inodeOwnerEnd   = inodeOwnerStart + inodeOwnerSize

	inodePermissionsStart = inodeOwnerEnd
	inodePermissionsSize  = 4
	inodePermissionsEnd   = inodePermissionsStart + inodePermissionsSize

	inodeSizeStart = inodePermissionsEnd
	inodeSizeSize  = 4
	inodeSizeEnd   = inodeSizeStart + inodeSizeSize

	inodeCreatedStart = inodeSizeEnd
	inodeCreatedSize  = 8
	inodeCreatedEnd   = inodeCreatedStart + inodeCreatedSize

	inodeModifiedStart = inodeCreatedEnd
	inodeModifiedSize  = 8
	inodeModifiedEnd   = inodeModifiedStart + inodeModifiedSize

	inodeAccessedStart = inodeModifiedEnd
	inodeAccessedSize  = 8
	inodeAccessedEnd   = inodeAccessedStart + inodeAccessedSize

	inodeNumBlocksStart = inodeAccessedEnd
	inodeNumBlocksSize  = BlockPointerSize
	inodeNumBlocksEnd   = inodeNumBlocksStart + inodeNumBlocksSize

	inodeDirectBlocksStart = inodeNumBlocksEnd
	inodeDirectBlocksSize  = Byte(DirectBlocksCount) * BlockPointerSize
	inodeDirectBlocksEnd   = inodeDirectBlocksStart + inodeDirectBlocksSize

	inodeIndirectStart = inodeDirectBlocksEnd
	inodeIndirectSize  = BlockPointerSize
	inodeIndirectEnd   = inodeIndirectStart + inodeIndirectSize

	// InodeSize is the length of the inode image at the start of its block.
	InodeSize = inodeIndirectEnd
)
