// Package alloc hands out device blocks. The free/used state lives in the
// superblock bitmap at block 0; every mutation is persisted before the call
// returns.
package alloc

import (
	"fmt"
	"sync"

	"github.com/weberc2/blockfs/pkg/math"
	. "github.com/weberc2/blockfs/pkg/types"
)

type BlockDevice interface {
	ReadBlock(Block, *[BlockSize]byte) error
	WriteBlock(Block, *[BlockSize]byte) error
}

type BitmapStore interface {
	Get(Bitmap) error
	Put(Bitmap) error
}

// BlockAllocator is the only owner of the bitmap. All callers share one
// instance and every bitmap access holds `mutex`.
type BlockAllocator struct {
	mutex  sync.Mutex
	bitmap Bitmap
	store  BitmapStore
	device BlockDevice
	blocks Block
}

// Open loads the bitmap of an already-formatted device holding `blocks`
// blocks. Blocks past the bitmap's capacity are never handed out.
func Open(
	device BlockDevice,
	store BitmapStore,
	blocks Block,
) (*BlockAllocator, error) {
	ba := newAllocator(device, store, blocks)
	if err := store.Get(ba.bitmap); err != nil {
		return nil, fmt.Errorf("opening block allocator: %w", err)
	}
	if !ba.bitmap.IsSet(SuperblockBlock) {
		return nil, fmt.Errorf(
			"opening block allocator: superblock not marked allocated: %w",
			UnformattedErr,
		)
	}
	return ba, nil
}

// Format writes a fresh bitmap with only the superblock allocated.
func Format(
	device BlockDevice,
	store BitmapStore,
	blocks Block,
) (*BlockAllocator, error) {
	ba := newAllocator(device, store, blocks)
	ba.bitmap.Set(SuperblockBlock)
	if err := store.Put(ba.bitmap); err != nil {
		return nil, fmt.Errorf("formatting block allocator: %w", err)
	}
	return ba, nil
}

func newAllocator(
	device BlockDevice,
	store BitmapStore,
	blocks Block,
) *BlockAllocator {
	return &BlockAllocator{
		bitmap: NewBitmap(DeviceBlocks),
		store:  store,
		device: device,
		blocks: math.Min(blocks, DeviceBlocks),
	}
}

// FirstAllocatableBlock is one past the superblock.
func (ba *BlockAllocator) FirstAllocatableBlock() Block {
	return SuperblockBlock + 1
}

// Blocks is the number of blocks the allocator manages, superblock included.
func (ba *BlockAllocator) Blocks() Block { return ba.blocks }

func (ba *BlockAllocator) IsFree(n Block) bool {
	if n >= ba.blocks {
		return false
	}
	ba.mutex.Lock()
	defer ba.mutex.Unlock()
	return !ba.bitmap.IsSet(n)
}

// FindFreeBlock returns the lowest free block without allocating it.
func (ba *BlockAllocator) FindFreeBlock() (Block, bool) {
	ba.mutex.Lock()
	defer ba.mutex.Unlock()
	return ba.bitmap.FirstZero(ba.FirstAllocatableBlock(), ba.blocks)
}

// AllocateFreeBlock finds and marks the lowest free block as one step. It
// returns DeviceExhaustedErr when nothing is free.
func (ba *BlockAllocator) AllocateFreeBlock() (Block, error) {
	ba.mutex.Lock()
	defer ba.mutex.Unlock()
	n, ok := ba.bitmap.FirstZero(ba.FirstAllocatableBlock(), ba.blocks)
	if !ok {
		return BlockNil, fmt.Errorf("allocating block: %w", DeviceExhaustedErr)
	}
	ba.bitmap.Set(n)
	if err := ba.store.Put(ba.bitmap); err != nil {
		ba.bitmap.Clear(n)
		return BlockNil, fmt.Errorf("allocating block `%d`: %w", n, err)
	}
	return n, nil
}

// Reserve marks a specific block allocated. It fails with AlreadyExistsErr
// if the block is already in use.
func (ba *BlockAllocator) Reserve(n Block) error {
	if err := ba.checkRange(n); err != nil {
		return fmt.Errorf("reserving block: %w", err)
	}
	ba.mutex.Lock()
	defer ba.mutex.Unlock()
	if ba.bitmap.IsSet(n) {
		return fmt.Errorf("reserving block `%d`: %w", n, AlreadyExistsErr)
	}
	ba.bitmap.Set(n)
	if err := ba.store.Put(ba.bitmap); err != nil {
		ba.bitmap.Clear(n)
		return fmt.Errorf("reserving block `%d`: %w", n, err)
	}
	return nil
}

func (ba *BlockAllocator) FreeBlock(n Block) error {
	if err := ba.checkRange(n); err != nil {
		return fmt.Errorf("freeing block: %w", err)
	}
	ba.mutex.Lock()
	defer ba.mutex.Unlock()
	if !ba.bitmap.IsSet(n) {
		return nil
	}
	ba.bitmap.Clear(n)
	if err := ba.store.Put(ba.bitmap); err != nil {
		ba.bitmap.Set(n)
		return fmt.Errorf("freeing block `%d`: %w", n, err)
	}
	return nil
}

// Read passes through to the device. The superblock is never reachable
// through the allocator.
func (ba *BlockAllocator) Read(n Block, buf *[BlockSize]byte) error {
	if err := ba.checkRange(n); err != nil {
		return fmt.Errorf("reading block: %w", err)
	}
	return ba.device.ReadBlock(n, buf)
}

func (ba *BlockAllocator) Write(n Block, buf *[BlockSize]byte) error {
	if err := ba.checkRange(n); err != nil {
		return fmt.Errorf("writing block: %w", err)
	}
	return ba.device.WriteBlock(n, buf)
}

func (ba *BlockAllocator) FreeBlockCount() Block {
	ba.mutex.Lock()
	defer ba.mutex.Unlock()
	return ba.bitmap.CountZeros(ba.FirstAllocatableBlock(), ba.blocks)
}

func (ba *BlockAllocator) FreeByteCount() Byte {
	return Byte(ba.FreeBlockCount()) * BlockSize
}

func (ba *BlockAllocator) checkRange(n Block) error {
	if n < ba.FirstAllocatableBlock() {
		return fmt.Errorf("block `%d`: %w", n, ReservedBlockErr)
	}
	if n >= ba.blocks {
		return fmt.Errorf("block `%d`: %w", n, BlockOutOfRangeErr)
	}
	return nil
}
