package io

import (
	. "github.com/weberc2/blockfs/pkg/types"
)

// Volume is a fixed-size, byte-addressed backing store. Short reads and
// writes are errors wrapping IOFailureErr.
type Volume interface {
	ReadAt(offset Byte, b []byte) error
	WriteAt(offset Byte, b []byte) error
}
