package types

// Inode is the persisted record of a filesystem element: its metadata plus
// the map from logical block index to physical block. It is plain data;
// block numbers are indices into the device, never references.
type Inode struct {
	Metadata      Metadata
	NumBlocks     Block
	DirectBlocks  [DirectBlocksCount]Block
	IndirectBlock Block
}

// SizeOnDisk is the number of bytes backed by allocated data blocks.
func (inode *Inode) SizeOnDisk() Byte {
	return Byte(inode.NumBlocks) * BlockSize
}
