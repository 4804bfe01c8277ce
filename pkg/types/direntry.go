package types

const (
	MaxNameLen = 255

	// EntryCountSize is the width of the entry count that prefixes a
	// directory's data stream.
	EntryCountSize Byte = 4
)

type DirEntry struct {
	Block Block
	Name  string
}
