// Package filesystem is the engine's public surface: path resolution over a
// reference-counted table of open objects, plus add, remove, list, read and
// write dispatched by handle.
package filesystem

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/weberc2/blockfs/pkg/alloc"
	"github.com/weberc2/blockfs/pkg/alloc/store"
	"github.com/weberc2/blockfs/pkg/device"
	"github.com/weberc2/blockfs/pkg/object"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Handle names an open object. Handles stay valid until the object is
// evicted and are never reused while the filesystem is mounted.
type Handle int64

const (
	RootHandle    Handle = 0
	InvalidHandle Handle = -1
)

type entry struct {
	path      string
	object    object.Object
	openCount int
}

type FileSystem struct {
	device    *device.Device
	allocator *alloc.BlockAllocator

	// mutex guards the open-object table
	mutex   sync.Mutex
	byPath  map[string]Handle
	entries map[Handle]*entry
	next    Handle

	errMutex  sync.Mutex
	lastError string
}

// Open mounts the device file named by the config, creating and formatting
// it first if it does not exist.
func Open(config Config) (*FileSystem, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("opening filesystem: %w", err)
	}

	blocks := config.BlockCount
	info, err := os.Stat(config.DevicePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf(
			"INFO creating device `%s` with `%d` blocks",
			config.DevicePath,
			blocks,
		)
		if err := device.Create(config.DevicePath, blocks); err != nil {
			return nil, fmt.Errorf("opening filesystem: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("opening filesystem: %w", err)
	default:
		blocks = Block(Byte(info.Size()) / BlockSize)
	}

	dev := new(device.Device)
	if err := dev.Mount(config.DevicePath); err != nil {
		return nil, fmt.Errorf("opening filesystem: %w", err)
	}
	fs, err := Mount(dev, blocks, &config)
	if err != nil {
		_ = dev.Unmount()
		return nil, fmt.Errorf("opening filesystem: %w", err)
	}
	return fs, nil
}

// Mount brings up the filesystem on an already-mounted device. An
// unformatted device is formatted, and a missing root is created together
// with `/home` and `/home/default`.
func Mount(dev *device.Device, blocks Block, config *Config) (*FileSystem, error) {
	bitmaps := store.NewDeviceBitmapStore(dev)
	allocator, err := alloc.Open(dev, bitmaps, blocks)
	if errors.Is(err, UnformattedErr) {
		log.Printf("INFO formatting device `%s`", dev.Name())
		allocator, err = alloc.Format(dev, bitmaps, blocks)
	}
	if err != nil {
		return nil, fmt.Errorf("mounting `%s`: %w", dev.Name(), err)
	}

	root, err := object.LoadRoot(allocator)
	if errors.Is(err, NoRootErr) {
		root, err = bootstrap(allocator, config)
	}
	if err != nil {
		return nil, fmt.Errorf("mounting `%s`: %w", dev.Name(), err)
	}

	return &FileSystem{
		device:    dev,
		allocator: allocator,
		byPath:    map[string]Handle{"/": RootHandle},
		entries: map[Handle]*entry{
			RootHandle: {path: "/", object: root, openCount: 1},
		},
		next: RootHandle + 1,
	}, nil
}

func bootstrap(a *alloc.BlockAllocator, config *Config) (*object.Directory, error) {
	log.Printf("INFO creating root directory")
	root, err := object.CreateRoot(a, config.RootOwner, config.RootPermissions)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping: %w", err)
	}
	if err := root.Add(
		"home",
		ElementTypeDirectory,
		config.RootOwner,
		config.DefaultPermissions,
	); err != nil {
		return nil, fmt.Errorf("bootstrapping: %w", err)
	}
	home, err := root.Open("home")
	if err != nil {
		return nil, fmt.Errorf("bootstrapping: %w", err)
	}
	if err := home.(*object.Directory).Add(
		"default",
		ElementTypeDirectory,
		config.RootOwner,
		config.DefaultPermissions,
	); err != nil {
		return nil, fmt.Errorf("bootstrapping: %w", err)
	}
	return root, nil
}

// Unmount drops every open object and releases the device. The filesystem
// must not be used afterwards.
func (fs *FileSystem) Unmount() error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.byPath = map[string]Handle{}
	fs.entries = map[Handle]*entry{}
	if err := fs.device.Unmount(); err != nil {
		return fmt.Errorf("unmounting filesystem: %w", err)
	}
	return nil
}

// LastError describes the most recent failure of any call. It is shared by
// all callers; the last writer wins.
func (fs *FileSystem) LastError() string {
	fs.errMutex.Lock()
	defer fs.errMutex.Unlock()
	return fs.lastError
}

func (fs *FileSystem) record(err error) error {
	if err != nil {
		fs.errMutex.Lock()
		fs.lastError = err.Error()
		fs.errMutex.Unlock()
	}
	return err
}

func (fs *FileSystem) FreeSpace() Byte { return fs.allocator.FreeByteCount() }

func (fs *FileSystem) FreeBlockCount() Block {
	return fs.allocator.FreeBlockCount()
}
