// Package device treats a file as an array of fixed-size blocks. Every call
// reaches the backing store; nothing is cached.
package device

import (
	"errors"
	"fmt"
	stdio "io"
	"os"
	"sync"

	"github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

type Device struct {
	mutex  sync.RWMutex
	volume io.Volume
	closer stdio.Closer
	name   string
}

// Create makes a new device file holding `blocks` zeroed blocks. It fails if
// anything already exists at `path`.
func Create(path string, blocks Block) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0700)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("creating device `%s`: %w", path, DeviceExistsErr)
		}
		return fmt.Errorf("creating device `%s`: %w", path, err)
	}
	defer f.Close()

	var zeros [BlockSize]byte
	for i := Block(0); i < blocks; i++ {
		if _, err := f.Write(zeros[:]); err != nil {
			return fmt.Errorf(
				"creating device `%s`: zeroing block `%d`: %v: %w",
				path,
				i,
				err,
				IOFailureErr,
			)
		}
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("creating device `%s`: syncing: %w", path, err)
	}
	return nil
}

// Mount binds the device to the file at `path`. It does not format it.
func (d *Device) Mount(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("mounting device `%s`: %w", path, err)
	}
	if err := d.Unmount(); err != nil {
		f.Close()
		return fmt.Errorf("mounting device `%s`: %w", path, err)
	}
	volume := io.NewFile(f)

	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.volume, d.closer, d.name = volume, volume, path
	return nil
}

// MountVolume binds the device to an arbitrary volume, e.g. an in-memory
// io.Buffer.
func (d *Device) MountVolume(name string, volume io.Volume) error {
	if err := d.Unmount(); err != nil {
		return fmt.Errorf("mounting volume `%s`: %w", name, err)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.volume, d.closer, d.name = volume, nil, name
	return nil
}

// Unmount releases the backing file. Unmounting an unmounted device is a
// no-op.
func (d *Device) Unmount() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.volume == nil {
		return nil
	}
	closer, name := d.closer, d.name
	d.volume, d.closer, d.name = nil, nil, ""
	if closer != nil {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("unmounting device `%s`: %w", name, err)
		}
	}
	return nil
}

func (d *Device) Mounted() bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.volume != nil
}

func (d *Device) Name() string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.name
}

func (d *Device) ReadBlock(block Block, buf *[BlockSize]byte) error {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.volume == nil {
		return fmt.Errorf("reading block `%d`: %w", block, NotMountedErr)
	}
	if err := d.volume.ReadAt(Byte(block)*BlockSize, buf[:]); err != nil {
		return fmt.Errorf("reading block `%d`: %w", block, err)
	}
	return nil
}

func (d *Device) WriteBlock(block Block, buf *[BlockSize]byte) error {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.volume == nil {
		return fmt.Errorf("writing block `%d`: %w", block, NotMountedErr)
	}
	if err := d.volume.WriteAt(Byte(block)*BlockSize, buf[:]); err != nil {
		return fmt.Errorf("writing block `%d`: %w", block, err)
	}
	return nil
}

// NewMemory returns a device mounted on a zeroed in-memory volume of
// `blocks` blocks.
func NewMemory(name string, blocks Block) *Device {
	d := &Device{}
	d.volume = io.NewBuffer(make([]byte, Byte(blocks)*BlockSize))
	d.name = name
	return d
}
