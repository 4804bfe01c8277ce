package object

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/inode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// File has no cursor; every call names its offset.
type File struct {
	Base
}

func (f *File) Read(offset Byte, buf []byte) (Byte, error) {
	if err := f.beginRead(); err != nil {
		return 0, fmt.Errorf("reading file at block `%d`: %w", f.block, err)
	}
	defer f.endRead()
	n, err := inode.Read(f.allocator, &f.inode, offset, buf)
	if err != nil {
		return n, fmt.Errorf("reading file at block `%d`: %w", f.block, err)
	}
	return n, nil
}

func (f *File) Write(offset Byte, data []byte) (Byte, error) {
	if err := f.beginWrite(); err != nil {
		return 0, fmt.Errorf("writing file at block `%d`: %w", f.block, err)
	}
	defer f.endWrite()
	n, err := inode.Write(f.allocator, f.block, &f.inode, offset, data)
	if err != nil {
		return n, fmt.Errorf("writing file at block `%d`: %w", f.block, err)
	}
	return n, nil
}
