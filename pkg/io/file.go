package io

import (
	"fmt"
	"os"

	. "github.com/weberc2/blockfs/pkg/types"
)

// File adapts an OS file to a Volume. Short reads and writes are reported as
// IOFailureErr.
type File struct {
	file *os.File
}

func NewFile(file *os.File) *File {
	return &File{file: file}
}

func (f *File) ReadAt(offset Byte, p []byte) error {
	n, err := f.file.ReadAt(p, int64(offset))
	if n != len(p) {
		return fmt.Errorf(
			"reading `%d` bytes from `%s` at offset `%d`: read `%d`: %v: %w",
			len(p),
			f.file.Name(),
			offset,
			n,
			err,
			IOFailureErr,
		)
	}
	return nil
}

func (f *File) WriteAt(offset Byte, p []byte) error {
	n, err := f.file.WriteAt(p, int64(offset))
	if err != nil || n != len(p) {
		return fmt.Errorf(
			"writing `%d` bytes to `%s` at offset `%d`: wrote `%d`: %v: %w",
			len(p),
			f.file.Name(),
			offset,
			n,
			err,
			IOFailureErr,
		)
	}
	return nil
}

func (f *File) Close() error {
	return f.file.Close()
}
