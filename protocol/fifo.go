// Package protocol carries serial bytes between the receive path (a USB
// reader goroutine or a UART interrupt) and the main loop's interpreter.
package protocol

import "sync/atomic"

// FifoBuffer is a single-producer single-consumer byte ring. One context may
// Write while another Reads without further locking. Capacity is rounded up
// to a power of two and one slot is kept free to tell full from empty.
type FifoBuffer struct {
	buf     []byte
	mask    uint32
	read    atomic.Uint32
	write   atomic.Uint32
	dropped atomic.Uint32
}

// NewFifoBuffer creates a FifoBuffer holding at least capacity-1 bytes.
func NewFifoBuffer(capacity int) *FifoBuffer {
	size := 2
	for size < capacity {
		size <<= 1
	}
	return &FifoBuffer{buf: make([]byte, size), mask: uint32(size - 1)}
}

// Write appends as much of data as fits and returns the count written. Bytes
// that do not fit are counted as dropped.
func (f *FifoBuffer) Write(data []byte) int {
	w := f.write.Load()
	r := f.read.Load()
	n := 0
	for _, b := range data {
		next := (w + 1) & f.mask
		if next == r {
			f.dropped.Add(uint32(len(data) - n))
			break
		}
		f.buf[w] = b
		w = next
		n++
	}
	f.write.Store(w)
	return n
}

// WriteByte appends one byte, reporting whether there was room.
func (f *FifoBuffer) WriteByte(b byte) bool {
	return f.Write([]byte{b}) == 1
}

// Read copies up to len(data) bytes out of the buffer.
func (f *FifoBuffer) Read(data []byte) int {
	r := f.read.Load()
	w := f.write.Load()
	n := 0
	for n < len(data) && r != w {
		data[n] = f.buf[r]
		r = (r + 1) & f.mask
		n++
	}
	f.read.Store(r)
	return n
}

// ReadByte removes and returns the oldest byte.
func (f *FifoBuffer) ReadByte() (byte, bool) {
	var b [1]byte
	if f.Read(b[:]) == 0 {
		return 0, false
	}
	return b[0], true
}

// Drain hands every buffered byte to fn, oldest first, and returns how many
// were delivered.
func (f *FifoBuffer) Drain(fn func(byte)) int {
	n := 0
	for {
		b, ok := f.ReadByte()
		if !ok {
			return n
		}
		fn(b)
		n++
	}
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	return int((f.write.Load() - f.read.Load()) & f.mask)
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return len(f.buf) - 1 - f.Available()
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read.Load() == f.write.Load()
}

// Dropped returns how many bytes were refused because the buffer was full.
func (f *FifoBuffer) Dropped() uint32 {
	return f.dropped.Load()
}

// Reset discards buffered data. Only safe while the producer is idle.
func (f *FifoBuffer) Reset() {
	f.read.Store(f.write.Load())
}
