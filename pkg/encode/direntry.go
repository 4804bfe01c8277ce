package encode

import (
	"bytes"
	"fmt"

	. "github.com/weberc2/blockfs/pkg/types"
)

func EncodeDirEntry(entry *DirEntry, b *[DirEntrySize]byte) error {
	if len(entry.Name) > MaxNameLen {
		return fmt.Errorf(
			"encoding direntry `%s`: %w",
			entry.Name,
			NameTooLongErr,
		)
	}
	*b = [DirEntrySize]byte{}
	putBlock(b[:], dirEntryBlockStart, entry.Block)
	copy(b[dirEntryNameStart:dirEntryNameEnd], entry.Name)
	return nil
}

func DecodeDirEntry(entry *DirEntry, b *[DirEntrySize]byte) {
	name := b[dirEntryNameStart:dirEntryNameEnd]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	entry.Block = getBlock(b[:], dirEntryBlockStart)
	entry.Name = string(name)
}

func EncodeEntryCount(count uint32, b *[EntryCountSize]byte) {
	putU32(b[:], 0, count)
}

func DecodeEntryCount(b *[EntryCountSize]byte) uint32 {
	return getU32(b[:], 0)
}

// DirEntryOffset is the position of the `index`th entry in a directory's
// data stream.
func DirEntryOffset(index int) Byte {
	return EntryCountSize + Byte(index)*DirEntrySize
}

const (
	dirEntryBlockStart = 0
	dirEntryBlockSize  = BlockPointerSize
	dirEntryBlockEnd   = dirEntryBlockStart + dirEntryBlockSize

	dirEntryNameStart = dirEntryBlockEnd
	dirEntryNameSize  = MaxNameLen + 1
	dirEntryNameEnd   = dirEntryNameStart + dirEntryNameSize

	DirEntrySize = dirEntryNameEnd
)
