// threaded.go: ECB and CBC-decryption streams backed by a Pipeline.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"context"
	"crypto/cipher"
)

// threadedStream cuts a byte stream into blocks and submits each one to a
// pipeline. Write and Finalize use context.Background; the Context variants
// let callers bound the time spent waiting for a full queue or for workers.
type threadedStream struct {
	b        cipher.Block
	pipeline *Pipeline
	pending  *SecureBuffer[byte]
	// iv is the CBC chaining value, nil for ECB.
	iv *SecureBuffer[byte]
}

func newThreadedStream(b cipher.Block, fn BlockFunc, cfg PipelineConfig) threadedStream {
	cfg.Unordered = false
	return threadedStream{
		b:        b,
		pipeline: NewPipeline(b, fn, cfg),
		pending:  NewSecureBuffer[byte](BlockSize),
	}
}

// Write implements io.Writer. It blocks while the pipeline queue is full.
func (s *threadedStream) Write(p []byte) (int, error) {
	return s.WriteContext(context.Background(), p)
}

// WriteContext is Write with cancellation. On error the returned count is the
// number of bytes accepted before the failure. A full block that could not be
// submitted stays buffered and is retried by the next write.
func (s *threadedStream) WriteContext(ctx context.Context, p []byte) (int, error) {
	n := 0
	if !s.pending.IsEmpty() {
		n = s.pending.PushSlice(p)
		p = p[n:]
		if !s.pending.IsFull() {
			return n, nil
		}
		if err := s.submit(ctx, s.pending.Bytes()); err != nil {
			return n, err
		}
		s.pending.Reset()
	}

	for len(p) >= BlockSize {
		if err := s.submit(ctx, p[:BlockSize]); err != nil {
			return n, err
		}
		n += BlockSize
		p = p[BlockSize:]
	}
	n += s.pending.PushSlice(p)
	return n, nil
}

func (s *threadedStream) submit(ctx context.Context, block []byte) error {
	if s.iv == nil {
		return s.pipeline.Put(ctx, block, nil, nil)
	}
	// Put copies the operand, so the chaining value can slide forward in
	// place as soon as it returns.
	if err := s.pipeline.Put(ctx, block, nil, s.iv.Bytes()); err != nil {
		return err
	}
	s.iv.OverrideContents(block, BlockSize)
	return nil
}

func (s *threadedStream) Flush() error { return nil }

// Missing returns how many bytes the pending partial block lacks.
func (s *threadedStream) Missing() int {
	if s.pending.IsEmpty() {
		return 0
	}
	return s.pending.Capacity()
}

// Drain waits for every submitted block and returns the processed bytes,
// leaving a pending partial block untouched.
func (s *threadedStream) Drain() ([]byte, error) {
	return s.DrainContext(context.Background())
}

// DrainContext is Drain with cancellation.
func (s *threadedStream) DrainContext(ctx context.Context) ([]byte, error) {
	if err := s.submitPending(ctx); err != nil {
		return nil, err
	}
	return s.pipeline.Finalize(ctx)
}

// submitPending hands over a pending block that filled up during a write
// whose submission failed. Those bytes were reported as accepted.
func (s *threadedStream) submitPending(ctx context.Context) error {
	if !s.pending.IsFull() {
		return nil
	}
	if err := s.submit(ctx, s.pending.Bytes()); err != nil {
		return err
	}
	s.pending.Reset()
	return nil
}

// Finalize waits for every submitted block and returns the output in input
// order. A pending partial block yields an *IncompleteBlockError and nothing
// is collected, so the caller can still supply the missing bytes.
func (s *threadedStream) Finalize() ([]byte, error) {
	return s.FinalizeContext(context.Background())
}

// FinalizeContext is Finalize with cancellation.
func (s *threadedStream) FinalizeContext(ctx context.Context) ([]byte, error) {
	if missing := s.Missing(); missing > 0 {
		return nil, newIncompleteBlockError(missing)
	}
	if err := s.submitPending(ctx); err != nil {
		return nil, err
	}
	return s.pipeline.Finalize(ctx)
}

// Stats returns the counters of the underlying pipeline.
func (s *threadedStream) Stats() PipelineStats { return s.pipeline.Stats() }

// Close stops the workers, wipes buffered state and releases the primitive.
func (s *threadedStream) Close() error {
	err := s.pipeline.Close()
	s.pending.Destroy()
	if s.iv != nil {
		s.iv.Destroy()
	}
	destroyPrimitive(s.b)
	return err
}

// ThreadedECBEncryption is an ECB encrypter whose blocks run on a pipeline.
// Its output is byte-identical to BufferedEncryption over ECBEncryption.
type ThreadedECBEncryption struct {
	threadedStream
}

// NewThreadedECBEncryption starts a pipeline encrypting with b.
func NewThreadedECBEncryption(b cipher.Block, cfg PipelineConfig) *ThreadedECBEncryption {
	return &ThreadedECBEncryption{threadedStream: newThreadedStream(b, EncryptBlock, cfg)}
}

// ThreadedECBDecryption is an ECB decrypter whose blocks run on a pipeline.
type ThreadedECBDecryption struct {
	threadedStream
}

// NewThreadedECBDecryption starts a pipeline decrypting with b.
func NewThreadedECBDecryption(b cipher.Block, cfg PipelineConfig) *ThreadedECBDecryption {
	return &ThreadedECBDecryption{threadedStream: newThreadedStream(b, DecryptBlock, cfg)}
}

// ThreadedCBCDecryption decrypts CBC in parallel. Each block's chaining value
// is the previous ciphertext block, already known from the input, so it is
// handed to the pipeline as the post-decryption XOR operand.
//
// CBC encryption has no threaded form: every block depends on the ciphertext
// of the one before it.
type ThreadedCBCDecryption struct {
	threadedStream
}

// NewThreadedCBCDecryption starts a pipeline decrypting CBC with b. The IV must
// be exactly one block long, otherwise an error wrapping ErrInvalidIVLength is
// returned and no goroutines are started.
func NewThreadedCBCDecryption(b cipher.Block, iv []byte, cfg PipelineConfig) (*ThreadedCBCDecryption, error) {
	if len(iv) != BlockSize {
		return nil, newIVLengthError(BlockSize, len(iv))
	}
	s := newThreadedStream(b, DecryptBlock, cfg)
	s.iv = NewSecureBufferFrom(iv)
	return &ThreadedCBCDecryption{threadedStream: s}, nil
}
