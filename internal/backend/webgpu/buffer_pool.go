package webgpu

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// minBufferClass is the smallest pooled buffer size in bytes.
	minBufferClass = 256
	// maxPooledPerClass caps how many idle buffers each class retains.
	maxPooledPerClass = 16
)

type poolKey struct {
	size  uint64
	usage wgpu.BufferUsage
}

// BufferPool recycles result and staging buffers between dispatches.
//
// Buffers are grouped into power-of-two size classes per usage flag set, so
// every buffer in a class is interchangeable. Acquire returns a buffer at
// least as large as requested; callers bind and copy with explicit sizes.
type BufferPool struct {
	device *wgpu.Device

	mu   sync.Mutex
	free map[poolKey][]*wgpu.Buffer

	allocated uint64
	hits      uint64
	misses    uint64
}

// PoolStats describes buffer pool activity.
type PoolStats struct {
	// Buffers created because no pooled buffer matched.
	Allocated uint64
	// Acquisitions served from the pool.
	Hits uint64
	// Acquisitions that required a fresh buffer.
	Misses uint64
	// Idle buffers currently held.
	Pooled int
}

// NewBufferPool creates a pool that allocates from the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		free:   make(map[poolKey][]*wgpu.Buffer),
	}
}

// sizeClass rounds size up to the next power of two, at least minBufferClass.
func sizeClass(size uint64) uint64 {
	class := uint64(minBufferClass)
	for class < size {
		class <<= 1
	}
	return class
}

// Acquire returns an idle buffer of the matching class, creating one when
// the class is empty. The buffer's capacity is sizeClass(size) bytes.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	key := poolKey{size: sizeClass(size), usage: usage}

	p.mu.Lock()
	if bufs := p.free[key]; len(bufs) > 0 {
		buf := bufs[len(bufs)-1]
		p.free[key] = bufs[:len(bufs)-1]
		p.hits++
		p.mu.Unlock()
		return buf
	}
	p.misses++
	p.allocated++
	p.mu.Unlock()

	return CreateBuffer(p.device, &wgpu.BufferDescriptor{
		Label: "pool",
		Usage: usage,
		Size:  key.size,
	})
}

// Release returns a buffer to its class. size and usage must match the
// Acquire call that produced the buffer. Full classes drop the buffer.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	key := poolKey{size: sizeClass(size), usage: usage}

	p.mu.Lock()
	if len(p.free[key]) < maxPooledPerClass {
		p.free[key] = append(p.free[key], buffer)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	buffer.Release()
}

// Clear releases every idle buffer. Called when the backend shuts down.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, bufs := range p.free {
		for _, buf := range bufs {
			buf.Release()
		}
		delete(p.free, key)
	}
}

// Stats returns a snapshot of pool activity.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	pooled := 0
	for _, bufs := range p.free {
		pooled += len(bufs)
	}

	return PoolStats{
		Allocated: p.allocated,
		Hits:      p.hits,
		Misses:    p.misses,
		Pooled:    pooled,
	}
}
