package protocol

import (
	"sync"
	"testing"
)

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(8)

	if !fifo.IsEmpty() {
		t.Error("New FIFO should be empty")
	}
	if fifo.Free() != 7 {
		t.Errorf("Expected 7 free, got %d", fifo.Free())
	}

	written := fifo.Write([]byte{1, 2, 3, 4, 5})
	if written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}
	if fifo.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", fifo.Available())
	}

	readBuf := make([]byte, 3)
	if read := fifo.Read(readBuf); read != 3 {
		t.Errorf("Expected to read 3 bytes, read %d", read)
	}
	if readBuf[0] != 1 || readBuf[1] != 2 || readBuf[2] != 3 {
		t.Errorf("Read data mismatch: got %v", readBuf)
	}
	if fifo.Available() != 2 {
		t.Errorf("After reading 3, expected 2 available, got %d", fifo.Available())
	}
}

func TestFifoBufferFullDrops(t *testing.T) {
	fifo := NewFifoBuffer(8)
	data := make([]byte, 12)
	if written := fifo.Write(data); written != 7 {
		t.Errorf("Expected to write 7 bytes to size-8 FIFO, wrote %d", written)
	}
	if fifo.Dropped() != 5 {
		t.Errorf("Expected 5 dropped, got %d", fifo.Dropped())
	}
	if fifo.WriteByte(1) {
		t.Errorf("Expected full FIFO to refuse a byte")
	}
}

func TestFifoBufferWrapAround(t *testing.T) {
	fifo := NewFifoBuffer(5) // rounds up to 8

	fifo.Write([]byte{1, 2, 3, 4, 5, 6})
	fifo.Read(make([]byte, 4))
	if written := fifo.Write([]byte{7, 8, 9, 10}); written != 4 {
		t.Errorf("Expected to write 4 bytes, wrote %d", written)
	}

	var got []byte
	n := fifo.Drain(func(b byte) { got = append(got, b) })
	if n != 6 {
		t.Errorf("Expected to drain 6 bytes, drained %d", n)
	}
	want := []byte{5, 6, 7, 8, 9, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Wrap-around data mismatch: got %v", got)
		}
	}
	if _, ok := fifo.ReadByte(); ok {
		t.Errorf("Expected empty FIFO after drain")
	}
}

func TestFifoBufferReset(t *testing.T) {
	fifo := NewFifoBuffer(16)
	fifo.Write([]byte("hello"))
	fifo.Reset()
	if !fifo.IsEmpty() || fifo.Available() != 0 {
		t.Errorf("Expected empty FIFO after reset")
	}
}

func TestFifoBufferConcurrentProducer(t *testing.T) {
	fifo := NewFifoBuffer(64)
	const total = 10000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if fifo.WriteByte(byte(i)) {
				i++
			}
		}
	}()

	next := 0
	for next < total {
		if b, ok := fifo.ReadByte(); ok {
			if b != byte(next) {
				t.Fatalf("Byte %d: expected %d, got %d", next, byte(next), b)
			}
			next++
		}
	}
	wg.Wait()
}
