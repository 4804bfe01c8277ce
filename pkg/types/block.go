package types

// Block is the index of a block on the device. BlockNil is never handed out
// by the allocator, so it doubles as the "no block" value in block pointers.
type Block uint32

// Byte is a count or offset in bytes.
type Byte int64

const (
	BlockSize        Byte = 512
	BlockPointerSize Byte = 4

	BlockNil Block = 0

	// SuperblockBlock holds the allocation bitmap.
	SuperblockBlock Block = 0

	// DeviceBlocks is the number of blocks addressable through the bitmap
	// (one bit per block) and the size of a freshly created device.
	DeviceBlocks Block = Block(BlockSize * 8)

	DirectBlocksCount   Block = 12
	IndirectBlocksCount Block = Block(BlockSize / BlockPointerSize)
	MaxBlocksPerInode   Block = DirectBlocksCount + IndirectBlocksCount
)
