package object

import (
	"fmt"
	"strings"

	"github.com/weberc2/blockfs/pkg/encode"
	"github.com/weberc2/blockfs/pkg/inode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// ValidateName checks a single path component.
func ValidateName(name string) error {
	if len(name) > MaxNameLen {
		return fmt.Errorf("validating name `%s`: %w", name, NameTooLongErr)
	}
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("validating name %q: %w", name, InvalidNameErr)
	}
	return nil
}

// readEntries decodes the directory stream. An empty stream holds no
// entries.
func (d *Directory) readEntries() ([]DirEntry, error) {
	var countBuf [EntryCountSize]byte
	n, err := inode.Read(d.allocator, &d.inode, 0, countBuf[:])
	if err != nil {
		return nil, fmt.Errorf("reading entry count: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	if n != EntryCountSize {
		return nil, fmt.Errorf(
			"reading entry count: short stream of `%d` bytes: %w",
			n,
			IOFailureErr,
		)
	}
	count := Byte(encode.DecodeEntryCount(&countBuf))
	limit := (d.inode.Metadata.Size - EntryCountSize) / encode.DirEntrySize
	if count > limit {
		return nil, fmt.Errorf(
			"reading entries: count `%d` exceeds the `%d` the stream can hold: %w",
			count,
			limit,
			IOFailureErr,
		)
	}

	raw := make([]byte, count*encode.DirEntrySize)
	n, err = inode.Read(d.allocator, &d.inode, EntryCountSize, raw)
	if err != nil {
		return nil, fmt.Errorf("reading `%d` entries: %w", count, err)
	}
	if n != Byte(len(raw)) {
		return nil, fmt.Errorf(
			"reading `%d` entries: stream holds `%d` of `%d` bytes: %w",
			count,
			n,
			len(raw),
			IOFailureErr,
		)
	}

	entries := make([]DirEntry, count)
	var buf [encode.DirEntrySize]byte
	for i := range entries {
		copy(buf[:], raw[Byte(i)*encode.DirEntrySize:])
		encode.DecodeDirEntry(&entries[i], &buf)
	}
	return entries, nil
}

// writeCount stores the entry count at the head of the stream.
func (d *Directory) writeCount(count int) error {
	var buf [EntryCountSize]byte
	encode.EncodeEntryCount(uint32(count), &buf)
	n, err := inode.Write(d.allocator, d.block, &d.inode, 0, buf[:])
	if err != nil {
		return fmt.Errorf("writing entry count: %w", err)
	}
	if n != EntryCountSize {
		return fmt.Errorf("writing entry count: %w", DeviceExhaustedErr)
	}
	return nil
}

func (d *Directory) writeEntry(index int, entry *DirEntry) error {
	var buf [encode.DirEntrySize]byte
	if err := encode.EncodeDirEntry(entry, &buf); err != nil {
		return err
	}
	n, err := inode.Write(
		d.allocator,
		d.block,
		&d.inode,
		encode.DirEntryOffset(index),
		buf[:],
	)
	if err != nil {
		return fmt.Errorf("writing entry `%s`: %w", entry.Name, err)
	}
	if n != encode.DirEntrySize {
		return fmt.Errorf("writing entry `%s`: %w", entry.Name, DeviceExhaustedErr)
	}
	return nil
}

// rewrite replaces the whole stream with `entries`.
func (d *Directory) rewrite(entries []DirEntry) error {
	if err := inode.FreeAll(d.allocator, d.block, &d.inode); err != nil {
		return fmt.Errorf("rewriting entries: %w", err)
	}
	if err := d.writeCount(len(entries)); err != nil {
		return fmt.Errorf("rewriting entries: %w", err)
	}
	for i := range entries {
		if err := d.writeEntry(i, &entries[i]); err != nil {
			return fmt.Errorf("rewriting entries: %w", err)
		}
	}
	return nil
}

func entryIndex(entries []DirEntry, name string) (int, bool) {
	for i := range entries {
		if entries[i].Name == name {
			return i, true
		}
	}
	return 0, false
}
