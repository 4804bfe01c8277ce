package encode

import (
	. "github.com/weberc2/blockfs/pkg/types"
)

func EncodeBlock(b Block, p *[BlockPointerSize]byte) {
	putBlock(p[:], 0, b)
}

func DecodeBlock(p *[BlockPointerSize]byte) Block {
	return getBlock(p[:], 0)
}

// EncodeIndirect lays out an indirect block's table of block numbers.
func EncodeIndirect(table *[IndirectBlocksCount]Block, b *[BlockSize]byte) {
	for i := range table {
		putBlock(b[:], Byte(i)*BlockPointerSize, table[i])
	}
}

func DecodeIndirect(table *[IndirectBlocksCount]Block, b *[BlockSize]byte) {
	for i := range table {
		table[i] = getBlock(b[:], Byte(i)*BlockPointerSize)
	}
}
