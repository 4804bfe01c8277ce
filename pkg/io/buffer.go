package io

import (
	"fmt"
	"sync"

	. "github.com/weberc2/blockfs/pkg/types"
)

// Buffer is an in-memory Volume of fixed length. Accesses that do not fit
// entirely inside the buffer fail with IOFailureErr.
type Buffer struct {
	mutex sync.RWMutex
	data  []byte
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

func (b *Buffer) Len() Byte { return Byte(len(b.data)) }

func (b *Buffer) ReadAt(offset Byte, p []byte) error {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	if offset < 0 || offset+Byte(len(p)) > Byte(len(b.data)) {
		return fmt.Errorf(
			"reading `%d` bytes from buffer at offset `%d`: %w",
			len(p),
			offset,
			IOFailureErr,
		)
	}
	copy(p, b.data[offset:])
	return nil
}

func (b *Buffer) WriteAt(offset Byte, p []byte) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if offset < 0 || offset+Byte(len(p)) > Byte(len(b.data)) {
		return fmt.Errorf(
			"writing `%d` bytes to buffer at offset `%d`: %w",
			len(p),
			offset,
			IOFailureErr,
		)
	}
	copy(b.data[offset:], p)
	return nil
}

// Bytes exposes the backing slice; callers must not hold it across writes.
func (b *Buffer) Bytes() []byte { return b.data }
