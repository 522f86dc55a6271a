// pipeline_test.go: Ordering, failure isolation, backpressure and lifecycle of the block pipeline.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher_test

import (
	"bytes"
	"context"
	"crypto/cipher"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blockcipher "github.com/agilira/krypteia"
)

// numberedBlocks returns n blocks whose first byte is their index.
func numberedBlocks(n int) [][]byte {
	blocks := make([][]byte, n)
	for i := range blocks {
		blocks[i] = make([]byte, blockcipher.BlockSize)
		blocks[i][0] = byte(i)
		blocks[i][1] = byte(i >> 8)
	}
	return blocks
}

// jitter sleeps a little on some blocks so completion order differs from
// submission order.
func jitter(_ cipher.Block, block []byte) {
	if block[0]%3 == 0 {
		time.Sleep(time.Millisecond)
	}
	block[15] = 0xff
}

func TestPipelinePreservesOrder(t *testing.T) {
	ctx := context.Background()
	p := blockcipher.NewPipeline(nil, jitter, blockcipher.PipelineConfig{Workers: 8, QueueDepth: 4})
	defer p.Close()

	blocks := numberedBlocks(200)
	for _, b := range blocks {
		require.NoError(t, p.Put(ctx, b, nil, nil))
	}
	assert.Equal(t, len(blocks), p.Pending())

	out, err := p.Finalize(ctx)
	require.NoError(t, err)
	require.Len(t, out, len(blocks)*blockcipher.BlockSize)
	for i := range blocks {
		blk := out[i*blockcipher.BlockSize : (i+1)*blockcipher.BlockSize]
		assert.Equal(t, byte(i), blk[0], "block %d out of place", i)
		assert.Equal(t, byte(0xff), blk[15])
	}
	assert.Zero(t, p.Pending())
}

func TestPipelineUnorderedReturnsEveryBlock(t *testing.T) {
	ctx := context.Background()
	p := blockcipher.NewPipeline(nil, jitter, blockcipher.PipelineConfig{Workers: 4, Unordered: true})
	defer p.Close()

	for _, b := range numberedBlocks(64) {
		require.NoError(t, p.Put(ctx, b, nil, nil))
	}
	out, err := p.Finalize(ctx)
	require.NoError(t, err)

	var ids []int
	for off := 0; off < len(out); off += blockcipher.BlockSize {
		ids = append(ids, int(out[off]))
	}
	sort.Ints(ids)
	for i, id := range ids {
		assert.Equal(t, i, id)
	}
}

func TestPipelineOperands(t *testing.T) {
	ctx := context.Background()
	identity := func(_ cipher.Block, _ []byte) {}
	p := blockcipher.NewPipeline(nil, identity, blockcipher.PipelineConfig{Workers: 2})
	defer p.Close()

	block := bytes.Repeat([]byte{0x0f}, blockcipher.BlockSize)
	pre := bytes.Repeat([]byte{0xf0}, blockcipher.BlockSize)
	post := bytes.Repeat([]byte{0x01}, blockcipher.BlockSize)
	require.NoError(t, p.Put(ctx, block, pre, post))

	// The caller's slices are copied on Put.
	block[0], pre[0], post[0] = 0, 0, 0

	out, err := p.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xfe}, blockcipher.BlockSize), out)
}

func TestPipelineWithPrimitive(t *testing.T) {
	ctx := context.Background()
	key := randomBytes(t, 32)
	block := newPrimitive(t, blockcipher.AlgorithmSerpent, key)
	p := blockcipher.NewPipeline(block, blockcipher.EncryptBlock, blockcipher.DefaultPipelineConfig())
	defer p.Close()

	plaintext := randomBytes(t, 40*blockcipher.BlockSize)
	for off := 0; off < len(plaintext); off += blockcipher.BlockSize {
		require.NoError(t, p.Put(ctx, plaintext[off:off+blockcipher.BlockSize], nil, nil))
	}
	got, err := p.Finalize(ctx)
	require.NoError(t, err)

	want := make([]byte, len(plaintext))
	blockcipher.NewECBEncryption(block).CryptBlocks(want, plaintext)
	assert.Equal(t, want, got)
}

func TestPipelineWorkerPanicBecomesError(t *testing.T) {
	ctx := context.Background()
	boom := func(_ cipher.Block, block []byte) {
		if block[0] == 5 {
			panic("corrupted block")
		}
		block[15] = 0xaa
	}
	p := blockcipher.NewPipeline(nil, boom, blockcipher.PipelineConfig{Workers: 3})
	defer p.Close()

	blocks := numberedBlocks(10)
	for _, b := range blocks {
		require.NoError(t, p.Put(ctx, b, nil, nil))
	}

	out, err := p.Finalize(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, blockcipher.ErrWorkerFailed))

	var wf *blockcipher.WorkerFailedError
	require.ErrorAs(t, err, &wf)
	assert.Equal(t, uint64(5), wf.ID)
	assert.Equal(t, "corrupted block", wf.Cause)

	// The failed block is zero-filled, the others keep their position.
	require.Len(t, out, 10*blockcipher.BlockSize)
	for i := 0; i < 10; i++ {
		blk := out[i*blockcipher.BlockSize : (i+1)*blockcipher.BlockSize]
		if i == 5 {
			assert.Equal(t, make([]byte, blockcipher.BlockSize), blk)
			continue
		}
		assert.Equal(t, byte(i), blk[0])
		assert.Equal(t, byte(0xaa), blk[15])
	}

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(9), stats.Completed)

	// The pipeline keeps working after a failure.
	require.NoError(t, p.Put(ctx, blocks[1], nil, nil))
	out, err = p.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(1), out[0])
}

func TestPipelinePutHonoursContext(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	stall := func(_ cipher.Block, _ []byte) { <-release }
	p := blockcipher.NewPipeline(nil, stall, blockcipher.PipelineConfig{Workers: 1, QueueDepth: 1})
	defer func() {
		once.Do(func() { close(release) })
		p.Close()
	}()

	ctx := context.Background()
	// The first block occupies the worker once it is picked up, the second
	// then sits in the queue.
	require.NoError(t, p.Put(ctx, make([]byte, blockcipher.BlockSize), nil, nil))
	require.NoError(t, p.Put(ctx, make([]byte, blockcipher.BlockSize), nil, nil))

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := p.Put(timeout, make([]byte, blockcipher.BlockSize), nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, p.Pending(), "a cancelled block is not submitted")

	once.Do(func() { close(release) })
	out, err := p.Finalize(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 2*blockcipher.BlockSize)
}

func TestPipelineFinalizeHonoursContext(t *testing.T) {
	release := make(chan struct{})
	stall := func(_ cipher.Block, _ []byte) { <-release }
	p := blockcipher.NewPipeline(nil, stall, blockcipher.PipelineConfig{Workers: 1})
	defer p.Close()

	require.NoError(t, p.Put(context.Background(), make([]byte, blockcipher.BlockSize), nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Finalize(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// A later Finalize resumes waiting.
	close(release)
	out, err := p.Finalize(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, blockcipher.BlockSize)
}

func TestPipelineSequenceResetsAfterFinalize(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	seen := 0
	count := func(_ cipher.Block, _ []byte) {
		mu.Lock()
		seen++
		mu.Unlock()
	}
	p := blockcipher.NewPipeline(nil, count, blockcipher.PipelineConfig{Workers: 2})
	defer p.Close()

	for round := 0; round < 3; round++ {
		for _, b := range numberedBlocks(5) {
			require.NoError(t, p.Put(ctx, b, nil, nil))
		}
		out, err := p.Finalize(ctx)
		require.NoError(t, err)
		assert.Len(t, out, 5*blockcipher.BlockSize)
		assert.Equal(t, byte(0), out[0])
	}

	stats := p.Stats()
	assert.Equal(t, uint64(15), stats.Submitted)
	assert.Equal(t, uint64(3), stats.Finalized)
	assert.Equal(t, 2, stats.Workers)
	assert.NotEmpty(t, stats.Session)
	mu.Lock()
	assert.Equal(t, 15, seen)
	mu.Unlock()
}

func TestPipelineEmptyFinalize(t *testing.T) {
	p := blockcipher.NewPipeline(nil, jitter, blockcipher.PipelineConfig{Workers: 1})
	defer p.Close()

	out, err := p.Finalize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPipelineRejectsShortBlock(t *testing.T) {
	p := blockcipher.NewPipeline(nil, jitter, blockcipher.PipelineConfig{Workers: 1})
	defer p.Close()

	err := p.Put(context.Background(), make([]byte, 10), nil, nil)
	var incomplete *blockcipher.IncompleteBlockError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 6, incomplete.Missing)
}

func TestPipelineClosed(t *testing.T) {
	p := blockcipher.NewPipeline(nil, jitter, blockcipher.PipelineConfig{Workers: 2})
	// Results that are never finalized are discarded by Close.
	for _, b := range numberedBlocks(20) {
		require.NoError(t, p.Put(context.Background(), b, nil, nil))
	}
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "Close is idempotent")

	err := p.Put(context.Background(), make([]byte, blockcipher.BlockSize), nil, nil)
	assert.ErrorIs(t, err, blockcipher.ErrPipelineClosed)
	_, err = p.Finalize(context.Background())
	assert.ErrorIs(t, err, blockcipher.ErrPipelineClosed)
}

func TestPipelineLogsSession(t *testing.T) {
	var buf bytes.Buffer
	logger := btclog.NewBackend(&buf).Logger(blockcipher.Subsystem)
	logger.SetLevel(btclog.LevelTrace)
	blockcipher.UseLogger(logger)
	defer blockcipher.DisableLog()

	p := blockcipher.NewPipeline(nil, func(cipher.Block, []byte) { panic("boom") }, blockcipher.PipelineConfig{Workers: 1})
	require.NoError(t, p.Put(context.Background(), make([]byte, blockcipher.BlockSize), nil, nil))
	_, err := p.Finalize(context.Background())
	require.Error(t, err)
	require.NoError(t, p.Close())

	logs := buf.String()
	assert.True(t, strings.Contains(logs, p.Session()), "log lines carry the session id")
	assert.Contains(t, logs, "panicked")
	assert.Contains(t, logs, blockcipher.Subsystem)
}

// narrowBlock is a cipher.Block with a 64-bit block.
type narrowBlock struct{}

func (narrowBlock) BlockSize() int          { return 8 }
func (narrowBlock) Encrypt(dst, src []byte) { copy(dst[:8], src[:8]) }
func (narrowBlock) Decrypt(dst, src []byte) { copy(dst[:8], src[:8]) }

func TestPipelineRejectsOtherBlockSizes(t *testing.T) {
	assert.Panics(t, func() {
		blockcipher.NewPipeline(narrowBlock{}, blockcipher.EncryptBlock, blockcipher.PipelineConfig{Workers: 1})
	})
	assert.Panics(t, func() {
		blockcipher.NewThreadedECBEncryption(narrowBlock{}, blockcipher.PipelineConfig{Workers: 1})
	})
	assert.Panics(t, func() {
		_, _ = blockcipher.NewThreadedCBCDecryption(narrowBlock{}, make([]byte, blockcipher.BlockSize),
			blockcipher.PipelineConfig{Workers: 1})
	})
}
