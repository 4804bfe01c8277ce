package alloc

import (
	"github.com/weberc2/blockfs/pkg/math"
	. "github.com/weberc2/blockfs/pkg/types"
)

const bitsPerByte = 8

// Bitmap tracks one bit per block. Bit `n` lives in byte `n/8` at position
// `n%8`, least-significant bit first; a set bit means allocated.
type Bitmap struct {
	bytes []byte
}

func NewBitmap(bits Block) Bitmap {
	return Bitmap{make([]byte, math.DivRoundUp(bits, bitsPerByte))}
}

func (bm Bitmap) Len() Block { return Block(len(bm.bytes)) * bitsPerByte }

func (bm Bitmap) IsSet(n Block) bool {
	return bm.bytes[n/bitsPerByte]&bitMask(n) != 0
}

func (bm Bitmap) Set(n Block) {
	bm.bytes[n/bitsPerByte] |= bitMask(n)
}

func (bm Bitmap) Clear(n Block) {
	bm.bytes[n/bitsPerByte] &^= bitMask(n)
}

// FirstZero returns the lowest clear bit in [from, to).
func (bm Bitmap) FirstZero(from, to Block) (Block, bool) {
	to = math.Min(to, bm.Len())
	for n := from; n < to; n++ {
		// skip whole bytes that are fully allocated
		if n%bitsPerByte == 0 && bm.bytes[n/bitsPerByte] == 0xff {
			n += bitsPerByte - 1
			continue
		}
		if !bm.IsSet(n) {
			return n, true
		}
	}
	return BlockNil, false
}

// CountZeros counts the clear bits in [from, to).
func (bm Bitmap) CountZeros(from, to Block) Block {
	to = math.Min(to, bm.Len())
	var count Block
	for n := from; n < to; n++ {
		if !bm.IsSet(n) {
			count++
		}
	}
	return count
}

func (bm Bitmap) Bytes() []byte { return bm.bytes }

func bitMask(n Block) byte {
	return 1 << (n % bitsPerByte)
}
