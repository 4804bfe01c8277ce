package alloc

import (
	"testing"

	. "github.com/weberc2/blockfs/pkg/types"
)

func TestBitmap(t *testing.T) {
	bm := NewBitmap(DeviceBlocks)
	if found := Byte(len(bm.Bytes())); found != BlockSize {
		t.Fatalf("len(Bytes()): wanted `%d`; found `%d`", BlockSize, found)
	}

	for n := Block(0); n < 9; n++ {
		bm.Set(n)
	}
	bm.Clear(2)

	if bm.Bytes()[0] != 0xfb || bm.Bytes()[1] != 0x01 {
		t.Fatalf(
			"Bytes(): wanted `fb 01`; found `%02x %02x`",
			bm.Bytes()[0],
			bm.Bytes()[1],
		)
	}

	if n, ok := bm.FirstZero(1, DeviceBlocks); !ok || n != 2 {
		t.Fatalf("FirstZero(): wanted `2`; found `%d` (%t)", n, ok)
	}
	if n, ok := bm.FirstZero(3, DeviceBlocks); !ok || n != 9 {
		t.Fatalf("FirstZero(): wanted `9`; found `%d` (%t)", n, ok)
	}
	if _, ok := bm.FirstZero(3, 9); ok {
		t.Fatal("FirstZero(3, 9): wanted none")
	}
	if found := bm.CountZeros(0, 16); found != 8 {
		t.Fatalf("CountZeros(): wanted `8`; found `%d`", found)
	}
}
