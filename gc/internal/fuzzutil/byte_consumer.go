// Package fuzzutil turns the raw byte slice Go's fuzzer hands us into a
// sequence of typed decisions (which step to take next, which index to act
// on, which value to write), the same way this collector's fuzz harness is
// built from the allocator package it was adapted from - adapted from
// location-system's testpkg/fuzzutil.
package fuzzutil

import "encoding/binary"

// ByteConsumer hands out fixed-size chunks of a byte slice, shrinking as it
// goes. Once exhausted, every further read returns zero-filled bytes rather
// than panicking, so a fuzz-shrunk input never becomes invalid mid-decode.
type ByteConsumer struct {
	bytes []byte
}

func NewByteConsumer(bytes []byte) *ByteConsumer {
	return &ByteConsumer{bytes: bytes}
}

func (c *ByteConsumer) Len() int {
	return len(c.bytes)
}

func (c *ByteConsumer) Bytes(size int) []byte {
	consumed := make([]byte, size)
	copy(consumed, c.bytes)

	if len(c.bytes) <= size {
		c.bytes = c.bytes[:0]
	} else {
		c.bytes = c.bytes[size:]
	}
	return consumed
}

func (c *ByteConsumer) Byte() byte {
	return c.Bytes(1)[0]
}

func (c *ByteConsumer) Uint32() uint32 {
	return binary.LittleEndian.Uint32(c.Bytes(4))
}

func (c *ByteConsumer) Int64() int64 {
	return int64(binary.LittleEndian.Uint64(c.Bytes(8)))
}
