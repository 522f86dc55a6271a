// pipeline.go: Ordered worker pool that runs block operations in parallel.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"cmp"
	"context"
	"crypto/cipher"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	timecache "github.com/agilira/go-timecache"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultQueueDepth is the number of blocks that may wait for a worker before
// Put starts blocking.
const DefaultQueueDepth = 64

// BlockFunc transforms one block in place with the shared primitive.
type BlockFunc func(b cipher.Block, block []byte)

// EncryptBlock is a BlockFunc that encrypts the block.
func EncryptBlock(b cipher.Block, block []byte) { b.Encrypt(block, block) }

// DecryptBlock is a BlockFunc that decrypts the block.
func DecryptBlock(b cipher.Block, block []byte) { b.Decrypt(block, block) }

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// Workers is the number of worker goroutines. Zero or less means one per CPU.
	Workers int `json:"workers"`

	// QueueDepth bounds the input queue. Put blocks while it is full.
	QueueDepth int `json:"queue_depth"`

	// Unordered returns blocks in completion order instead of submission order.
	Unordered bool `json:"unordered"`
}

// DefaultPipelineConfig returns one worker per CPU, a queue of
// DefaultQueueDepth blocks and ordered output.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Workers:    runtime.NumCPU(),
		QueueDepth: DefaultQueueDepth,
	}
}

func (c PipelineConfig) normalized() PipelineConfig {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	return c
}

// PipelineStats is a snapshot of a pipeline's counters.
type PipelineStats struct {
	Session      string
	Workers      int
	Submitted    uint64
	Completed    uint64
	Failed       uint64
	Finalized    uint64
	StartedAt    time.Time
	LastFinalize time.Time
}

type job struct {
	id   uint64
	data *[]byte
	pre  *[]byte
	post *[]byte
}

type result struct {
	id   uint64
	data *[]byte
	err  error
}

// Pipeline fans blocks out to a fixed set of workers sharing one primitive and
// collects them back in submission order.
//
// The primitive is only read by the workers, so it is shared without a lock.
// Put, Finalize, Stats and Close belong to a single producer goroutine; the
// pipeline itself is not safe for concurrent producers.
//
// Example:
//
//	p := blockcipher.NewPipeline(aesBlock, blockcipher.EncryptBlock, blockcipher.DefaultPipelineConfig())
//	defer p.Close()
//
//	for off := 0; off < len(plaintext); off += blockcipher.BlockSize {
//		if err := p.Put(ctx, plaintext[off:off+blockcipher.BlockSize], nil, nil); err != nil {
//			return err
//		}
//	}
//	ciphertext, err := p.Finalize(ctx)
type Pipeline struct {
	block   cipher.Block
	fn      BlockFunc
	cfg     PipelineConfig
	session uuid.UUID

	in  chan job
	out chan result
	eg  errgroup.Group

	nextID    uint64
	submitted int
	collected []result
	closed    bool

	total        uint64
	completed    atomic.Uint64
	failed       atomic.Uint64
	finalized    uint64
	startedAt    time.Time
	lastFinalize time.Time
}

// NewPipeline starts cfg.Workers goroutines that apply fn to every submitted
// block using b.
//
// b may be nil when fn does not use it. A primitive whose block size is not
// BlockSize is a programming error and panics.
func NewPipeline(b cipher.Block, fn BlockFunc, cfg PipelineConfig) *Pipeline {
	if b != nil && b.BlockSize() != BlockSize {
		panic(fmt.Sprintf("blockcipher: pipeline needs a %d-byte block primitive, got %d", BlockSize, b.BlockSize()))
	}
	cfg = cfg.normalized()
	p := &Pipeline{
		block:     b,
		fn:        fn,
		cfg:       cfg,
		session:   uuid.New(),
		in:        make(chan job, cfg.QueueDepth),
		out:       make(chan result, cfg.QueueDepth),
		startedAt: timecache.CachedTime(),
	}

	for i := 0; i < cfg.Workers; i++ {
		worker := i
		p.eg.Go(func() error {
			p.work(worker)
			return nil
		})
	}

	log.Debugf("Pipeline %v started with %d workers, queue depth %d, ordered=%v",
		p.session, cfg.Workers, cfg.QueueDepth, !cfg.Unordered)

	return p
}

// Session returns the identifier used in this pipeline's log lines.
func (p *Pipeline) Session() string { return p.session.String() }

func (p *Pipeline) work(worker int) {
	log.Tracef("Pipeline %v worker %d running", p.session, worker)
	for j := range p.in {
		p.out <- p.process(j)
	}
	log.Tracef("Pipeline %v worker %d exiting", p.session, worker)
}

// process runs the block callback behind a recover boundary so one bad block
// cannot take the process down; the panic is reported against its id.
func (p *Pipeline) process(j job) (res result) {
	defer putBlockBuffer(j.pre)
	defer putBlockBuffer(j.post)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Pipeline %v: block %d panicked: %v", p.session, j.id, r)
			putBlockBuffer(j.data)
			p.failed.Add(1)
			res = result{id: j.id, err: newWorkerFailedError(j.id, r)}
		}
	}()

	data := *j.data
	if j.pre != nil {
		xorBytes(data, data, *j.pre)
	}
	p.fn(p.block, data)
	if j.post != nil {
		xorBytes(data, data, *j.post)
	}

	p.completed.Add(1)
	return result{id: j.id, data: j.data}
}

// Put submits the first BlockSize bytes of block with optional operands: pre
// is XORed into the block before the callback, post after it. All three are
// copied, so the caller may reuse its slices immediately.
//
// Put blocks while the input queue is full and returns ctx.Err() if ctx ends
// first; the block is then not submitted.
func (p *Pipeline) Put(ctx context.Context, block, pre, post []byte) error {
	if p.closed {
		return newPipelineClosedError()
	}
	if len(block) < BlockSize {
		return newIncompleteBlockError(BlockSize - len(block))
	}

	j := job{
		id:   p.nextID,
		data: getBlockBuffer(block),
		pre:  getBlockBuffer(pre),
		post: getBlockBuffer(post),
	}

	for {
		select {
		case p.in <- j:
			p.nextID++
			p.submitted++
			p.total++
			return nil

		// Keep workers moving while the queue is full.
		case r := <-p.out:
			p.collected = append(p.collected, r)

		case <-ctx.Done():
			putBlockBuffer(j.data)
			putBlockBuffer(j.pre)
			putBlockBuffer(j.post)
			return ctx.Err()
		}
	}
}

// Pending returns the number of blocks submitted since the last Finalize.
func (p *Pipeline) Pending() int { return p.submitted }

// Finalize waits for every block submitted since the previous Finalize and
// returns their outputs concatenated, in submission order unless the pipeline
// is unordered. Sequence ids restart at zero afterwards.
//
// Blocks whose callback panicked are zero-filled in the output and reported
// as *WorkerFailedError values joined into the returned error; the other
// blocks keep their positions. If ctx ends first, ctx.Err() is returned and a
// later Finalize resumes waiting.
func (p *Pipeline) Finalize(ctx context.Context) ([]byte, error) {
	if p.closed {
		return nil, newPipelineClosedError()
	}

	for len(p.collected) < p.submitted {
		select {
		case r := <-p.out:
			p.collected = append(p.collected, r)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !p.cfg.Unordered {
		slices.SortFunc(p.collected, func(a, b result) int {
			return cmp.Compare(a.id, b.id)
		})
	}

	var (
		out  = make([]byte, 0, len(p.collected)*BlockSize)
		errs []error
	)
	for _, r := range p.collected {
		if r.err != nil {
			errs = append(errs, r.err)
			out = append(out, make([]byte, BlockSize)...)
			continue
		}
		out = append(out, *r.data...)
		putBlockBuffer(r.data)
	}

	n := len(p.collected)
	clear(p.collected)
	p.collected = p.collected[:0]
	p.submitted = 0
	p.nextID = 0
	p.finalized++
	p.lastFinalize = timecache.CachedTime()

	log.Tracef("Pipeline %v finalized %d blocks (%d failed)", p.session, n, len(errs))

	if len(errs) > 0 {
		return out, errors.Join(errs...)
	}
	return out, nil
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		Session:      p.session.String(),
		Workers:      p.cfg.Workers,
		Submitted:    p.total,
		Completed:    p.completed.Load(),
		Failed:       p.failed.Load(),
		Finalized:    p.finalized,
		StartedAt:    p.startedAt,
		LastFinalize: p.lastFinalize,
	}
}

// Close stops the workers and discards results that were never finalized.
// Further Put and Finalize calls return ErrPipelineClosed. Close is idempotent.
func (p *Pipeline) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.in)

	// Workers recover their own panics, so Wait has no error to report.
	go func() {
		_ = p.eg.Wait()
		close(p.out)
	}()

	// Workers may be blocked on a full output channel.
	for r := range p.out {
		putBlockBuffer(r.data)
	}
	for _, r := range p.collected {
		putBlockBuffer(r.data)
	}
	p.collected = nil

	log.Debugf("Pipeline %v closed after %d finalize calls", p.session, p.finalized)
	return nil
}
