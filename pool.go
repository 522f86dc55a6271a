// pool.go: Zeroing buffer pools for pipeline blocks and streaming chunks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"sync"
	"sync/atomic"
)

const (
	// chunkBufferSize matches DefaultChunkSize so stream chunks can be recycled.
	chunkBufferSize = DefaultChunkSize
)

var (
	// One block per buffer: pipeline jobs and their XOR operands
	blockBufferPool = sync.Pool{
		New: func() interface{} {
			poolCounters.allocs.Add(1)
			buf := make([]byte, BlockSize)
			return &buf
		},
	}

	// Staging buffers for the stream writer
	chunkBufferPool = sync.Pool{
		New: func() interface{} {
			poolCounters.allocs.Add(1)
			buf := make([]byte, 0, chunkBufferSize)
			return &buf // Return pointer to avoid allocations (SA6002)
		},
	}

	poolCounters struct {
		gets   atomic.Uint64
		puts   atomic.Uint64
		allocs atomic.Uint64
	}
)

// getBlockBuffer returns a block-sized buffer holding a copy of src. A nil src
// yields a nil buffer so optional XOR operands stay optional.
func getBlockBuffer(src []byte) *[]byte {
	if src == nil {
		return nil
	}
	poolCounters.gets.Add(1)
	buf := blockBufferPool.Get().(*[]byte)
	copy(*buf, src)
	return buf
}

// putBlockBuffer wipes buf and returns it to the pool.
func putBlockBuffer(buf *[]byte) {
	if buf == nil {
		return
	}
	clearBuffer(*buf)
	if cap(*buf) != BlockSize {
		return
	}
	poolCounters.puts.Add(1)
	blockBufferPool.Put(buf)
}

// getChunkBuffer returns an empty staging buffer with room for one chunk.
func getChunkBuffer() *[]byte {
	poolCounters.gets.Add(1)
	buf := chunkBufferPool.Get().(*[]byte)
	*buf = (*buf)[:0]
	return buf
}

// putChunkBuffer wipes the whole capacity of buf and returns it to the pool.
// Buffers that grew past one chunk are dropped.
func putChunkBuffer(buf *[]byte) {
	if buf == nil {
		return
	}
	full := (*buf)[:cap(*buf)]
	clearBuffer(full)
	if cap(full) != chunkBufferSize {
		return
	}
	poolCounters.puts.Add(1)
	*buf = full[:0]
	chunkBufferPool.Put(buf)
}

// clearBuffer zeroes buf. Pooled memory may have held plaintext.
func clearBuffer(buf []byte) {
	wipe(buf)
}

// PoolStats provides statistics on the pools for performance monitoring
type PoolStats struct {
	// Gets counts buffers handed out.
	Gets uint64
	// Puts counts buffers returned after being wiped.
	Puts uint64
	// Allocations counts buffers the pools had to allocate.
	Allocations uint64
}

// GetPoolStats returns cumulative pool counters (for debugging/monitoring).
func GetPoolStats() PoolStats {
	return PoolStats{
		Gets:        poolCounters.gets.Load(),
		Puts:        poolCounters.puts.Load(),
		Allocations: poolCounters.allocs.Load(),
	}
}

// WarmupPools pre allocates buffers in the pools to reduce cold latency
func WarmupPools(count int) {
	blocks := make([]*[]byte, count)
	chunks := make([]*[]byte, count)
	var zero [BlockSize]byte
	for i := 0; i < count; i++ {
		blocks[i] = getBlockBuffer(zero[:])
		chunks[i] = getChunkBuffer()
	}
	for i := 0; i < count; i++ {
		putBlockBuffer(blocks[i])
		putChunkBuffer(chunks[i])
	}
}
