package store

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/alloc"
	. "github.com/weberc2/blockfs/pkg/types"
)

var _ alloc.BitmapStore = DeviceBitmapStore{}

// DeviceBitmapStore keeps the bitmap in the superblock. Writes go straight
// to the device without passing through the allocator's range checks.
type DeviceBitmapStore struct {
	device alloc.BlockDevice
}

func NewDeviceBitmapStore(device alloc.BlockDevice) DeviceBitmapStore {
	return DeviceBitmapStore{device}
}

func (store DeviceBitmapStore) Get(bitmap alloc.Bitmap) error {
	var buf [BlockSize]byte
	if err := store.device.ReadBlock(SuperblockBlock, &buf); err != nil {
		return fmt.Errorf("loading bitmap: %w", err)
	}
	copy(bitmap.Bytes(), buf[:])
	return nil
}

func (store DeviceBitmapStore) Put(bitmap alloc.Bitmap) error {
	var buf [BlockSize]byte
	copy(buf[:], bitmap.Bytes())
	if err := store.device.WriteBlock(SuperblockBlock, &buf); err != nil {
		return fmt.Errorf("storing bitmap: %w", err)
	}
	return nil
}
