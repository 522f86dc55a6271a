// threaded_test.go: Pipelined ECB and CBC streams must match their sequential forms.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blockcipher "github.com/agilira/krypteia"
)

var workerCounts = []int{1, 2, 4, 64}

func TestThreadedECBMatchesBuffered(t *testing.T) {
	for _, alg := range blockcipher.Algorithms() {
		for _, workers := range workerCounts {
			t.Run(fmt.Sprintf("%s/workers=%d", alg, workers), func(t *testing.T) {
				key := randomBytes(t, 32)
				plaintext := randomBytes(t, 37*blockcipher.BlockSize)
				cfg := blockcipher.PipelineConfig{Workers: workers, QueueDepth: 8}

				want := process(t, blockcipher.NewBufferedEncryption(
					blockcipher.NewECBEncryption(newPrimitive(t, alg, key))), plaintext)

				enc := blockcipher.NewThreadedECBEncryption(newPrimitive(t, alg, key), cfg)
				defer enc.Close()
				got := process(t, enc, plaintext)
				assert.Equal(t, want, got)

				dec := blockcipher.NewThreadedECBDecryption(newPrimitive(t, alg, key), cfg)
				defer dec.Close()
				assert.Equal(t, plaintext, process(t, dec, got))
			})
		}
	}
}

func TestThreadedCBCDecryptionMatchesBuffered(t *testing.T) {
	for _, alg := range blockcipher.Algorithms() {
		for _, workers := range workerCounts {
			t.Run(fmt.Sprintf("%s/workers=%d", alg, workers), func(t *testing.T) {
				key := randomBytes(t, 24)
				iv := randomBytes(t, blockcipher.BlockSize)
				plaintext := randomBytes(t, 50*blockcipher.BlockSize)

				cbc, err := blockcipher.NewCBCEncryption(newPrimitive(t, alg, key), iv)
				require.NoError(t, err)
				ciphertext := process(t, blockcipher.NewBufferedEncryption(cbc), plaintext)

				dec, err := blockcipher.NewThreadedCBCDecryption(newPrimitive(t, alg, key), iv,
					blockcipher.PipelineConfig{Workers: workers, QueueDepth: 4})
				require.NoError(t, err)
				defer dec.Close()
				assert.Equal(t, plaintext, process(t, dec, ciphertext))
			})
		}
	}
}

func TestThreadedCBCDecryptionNISTVector(t *testing.T) {
	dec, err := blockcipher.NewThreadedCBCDecryption(
		newPrimitive(t, blockcipher.AlgorithmAES, mustHex(t, nistKey128)),
		mustHex(t, nistIV),
		blockcipher.PipelineConfig{Workers: 3})
	require.NoError(t, err)
	defer dec.Close()

	ciphertext := mustHex(t, "7649ABAC8119B246CEE98E9B12E9197D 5086CB9B507219EE95DB113A917678B2"+
		"73BED6B8E3C1743B7116E69E22229516 3FF1CAA1681FAC09120ECA307586E1A7")
	assert.Equal(t, mustHex(t, nistPlaintext), process(t, dec, ciphertext))
}

// Odd write sizes exercise the pending block carried across writes and the
// CBC chaining value sliding forward between them.
func TestThreadedOddWriteSizes(t *testing.T) {
	key := randomBytes(t, 16)
	iv := randomBytes(t, blockcipher.BlockSize)
	plaintext := randomBytes(t, 23*blockcipher.BlockSize)

	cbc, err := blockcipher.NewCBCEncryption(newPrimitive(t, blockcipher.AlgorithmSerpent, key), iv)
	require.NoError(t, err)
	ciphertext := process(t, blockcipher.NewBufferedEncryption(cbc), plaintext)

	dec, err := blockcipher.NewThreadedCBCDecryption(newPrimitive(t, blockcipher.AlgorithmSerpent, key), iv,
		blockcipher.PipelineConfig{Workers: 4})
	require.NoError(t, err)
	defer dec.Close()

	var got []byte
	sizes := []int{1, 15, 2, 31, 17, 0, 5, 64}
	for i, rest := 0, ciphertext; len(rest) > 0; i++ {
		n := min(sizes[i%len(sizes)], len(rest))
		written, err := dec.Write(rest[:n])
		require.NoError(t, err)
		require.Equal(t, n, written)
		rest = rest[n:]

		if i%5 == 4 {
			out, err := dec.Drain()
			require.NoError(t, err)
			got = append(got, out...)
		}
	}
	out, err := dec.Finalize()
	require.NoError(t, err)
	got = append(got, out...)
	assert.Equal(t, plaintext, got)
}

func TestThreadedIncompleteBlock(t *testing.T) {
	enc := blockcipher.NewThreadedECBEncryption(
		newPrimitive(t, blockcipher.AlgorithmAES, randomBytes(t, 16)),
		blockcipher.PipelineConfig{Workers: 2})
	defer enc.Close()

	_, err := enc.Write(make([]byte, 2*blockcipher.BlockSize+5))
	require.NoError(t, err)

	_, err = enc.Finalize()
	var incomplete *blockcipher.IncompleteBlockError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 11, incomplete.Missing)
	assert.ErrorIs(t, err, blockcipher.ErrIncompleteBlock)

	// Supplying the missing bytes lets the stream complete.
	_, err = enc.Write(make([]byte, 11))
	require.NoError(t, err)
	out, err := enc.Finalize()
	require.NoError(t, err)
	assert.Len(t, out, 3*blockcipher.BlockSize)
}

func TestThreadedFinalizeContext(t *testing.T) {
	dec := blockcipher.NewThreadedECBDecryption(
		newPrimitive(t, blockcipher.AlgorithmAES, randomBytes(t, 16)),
		blockcipher.PipelineConfig{Workers: 1})
	defer dec.Close()

	_, err := dec.WriteContext(context.Background(), make([]byte, 4*blockcipher.BlockSize))
	require.NoError(t, err)

	out, err := dec.FinalizeContext(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 4*blockcipher.BlockSize)

	stats := dec.Stats()
	assert.Equal(t, uint64(4), stats.Submitted)
	assert.Equal(t, uint64(4), stats.Completed)
	assert.Equal(t, 1, stats.Workers)
}

func TestThreadedWriteAfterClose(t *testing.T) {
	enc := blockcipher.NewThreadedECBEncryption(
		newPrimitive(t, blockcipher.AlgorithmAES, randomBytes(t, 16)),
		blockcipher.PipelineConfig{Workers: 2})
	require.NoError(t, enc.Close())

	_, err := enc.Write(make([]byte, blockcipher.BlockSize))
	assert.ErrorIs(t, err, blockcipher.ErrPipelineClosed)
}

func TestThreadedCBCInvalidIV(t *testing.T) {
	_, err := blockcipher.NewThreadedCBCDecryption(
		newPrimitive(t, blockcipher.AlgorithmAES, randomBytes(t, 16)),
		make([]byte, 8), blockcipher.PipelineConfig{Workers: 2})
	assert.ErrorIs(t, err, blockcipher.ErrInvalidIVLength)
}

// gatedBlock copies blocks through unchanged once release is closed.
type gatedBlock struct{ release chan struct{} }

func (g gatedBlock) BlockSize() int { return blockcipher.BlockSize }

func (g gatedBlock) Encrypt(dst, src []byte) {
	<-g.release
	copy(dst[:blockcipher.BlockSize], src)
}

func (g gatedBlock) Decrypt(dst, src []byte) { g.Encrypt(dst, src) }

// A write that completes a pending block but cannot submit it still counts
// those bytes as accepted, so Finalize must include them.
func TestThreadedFinalizeKeepsBlockFromFailedWrite(t *testing.T) {
	gate := gatedBlock{release: make(chan struct{})}
	var once sync.Once
	release := func() { once.Do(func() { close(gate.release) }) }

	enc := blockcipher.NewThreadedECBEncryption(gate, blockcipher.PipelineConfig{Workers: 1, QueueDepth: 1})
	defer func() {
		release()
		enc.Close()
	}()

	input := randomBytes(t, 3*blockcipher.BlockSize)
	ctx := context.Background()

	// The first block stalls the worker, the second fills the queue.
	_, err := enc.WriteContext(ctx, input[:2*blockcipher.BlockSize])
	require.NoError(t, err)
	_, err = enc.WriteContext(ctx, input[32:37])
	require.NoError(t, err)

	timeout, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	n, err := enc.WriteContext(timeout, input[37:])
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 11, n, "the bytes completing the pending block are accepted")
	assert.Zero(t, enc.Missing())

	release()
	out, err := enc.Finalize()
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestThreadedDrainKeepsBlockFromFailedWrite(t *testing.T) {
	gate := gatedBlock{release: make(chan struct{})}
	var once sync.Once
	release := func() { once.Do(func() { close(gate.release) }) }

	dec := blockcipher.NewThreadedECBDecryption(gate, blockcipher.PipelineConfig{Workers: 1, QueueDepth: 1})
	defer func() {
		release()
		dec.Close()
	}()

	input := randomBytes(t, 3*blockcipher.BlockSize+4)
	ctx := context.Background()
	_, err := dec.WriteContext(ctx, input[:40])
	require.NoError(t, err)

	timeout, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	n, err := dec.WriteContext(timeout, input[40:])
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 8, n)

	release()
	out, err := dec.Drain()
	require.NoError(t, err)
	assert.Equal(t, input[:3*blockcipher.BlockSize], out)
	assert.Zero(t, dec.Missing())

	// Bytes past the rejected write were never accepted and can be resent.
	_, err = dec.Write(input[48:])
	require.NoError(t, err)
	assert.Equal(t, 12, dec.Missing())
}
