// errors.go: Error taxonomy for primitives, modes of operation and the block pipeline.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"errors"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// Public standard errors for drop-in compatibility.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrInvalidKeyLength is returned when a primitive is constructed with a key
	// whose length is not supported by the algorithm.
	ErrInvalidKeyLength = errors.New("blockcipher: invalid key length")

	// ErrInvalidIVLength is returned when an IV is not exactly one block long.
	ErrInvalidIVLength = errors.New("blockcipher: invalid IV length")

	// ErrIncompleteBlock is returned by Finalize on ECB/CBC when the internal
	// buffer holds a partial block. Use errors.As with *IncompleteBlockError to
	// obtain the number of missing bytes.
	ErrIncompleteBlock = errors.New("blockcipher: last block is incomplete")

	// ErrWorkerFailed is returned by a pipeline when the block callback panicked.
	ErrWorkerFailed = errors.New("blockcipher: pipeline worker failed")

	// ErrPipelineClosed is returned when a closed pipeline is used.
	ErrPipelineClosed = errors.New("blockcipher: pipeline closed")

	// ErrFormat is returned when hex or base64 input cannot be decoded.
	ErrFormat = errors.New("blockcipher: malformed encoding")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("blockcipher: invalid configuration")

	// ErrUnknownAlgorithm is returned for algorithm names with no primitive.
	ErrUnknownAlgorithm = errors.New("blockcipher: unknown algorithm")
)

// Error codes for rich error handling
const (
	ErrCodeInvalidKey      = "BLOCKCIPHER_INVALID_KEY"
	ErrCodeInvalidIV       = "BLOCKCIPHER_INVALID_IV"
	ErrCodeIncompleteBlock = "BLOCKCIPHER_INCOMPLETE_BLOCK"
	ErrCodeWorkerFailed    = "BLOCKCIPHER_WORKER_FAILED"
	ErrCodePipelineClosed  = "BLOCKCIPHER_PIPELINE_CLOSED"
	ErrCodeFormat          = "BLOCKCIPHER_FORMAT"
	ErrCodeConfig          = "BLOCKCIPHER_CONFIG"
	ErrCodeRandom          = "BLOCKCIPHER_RANDOM"
	ErrCodeStream          = "BLOCKCIPHER_STREAM"
)

// KeyLengthError reports a key of unsupported length.
type KeyLengthError struct {
	Algorithm Algorithm
	Got       int
}

func (e *KeyLengthError) Error() string {
	return fmt.Sprintf("blockcipher: invalid %s key length %d (want 16, 24 or 32 bytes)", e.Algorithm, e.Got)
}

// Is makes KeyLengthError match ErrInvalidKeyLength.
func (e *KeyLengthError) Is(target error) bool { return target == ErrInvalidKeyLength }

// IncompleteBlockError carries the exact number of bytes the pending block
// lacks, so callers can decide between padding and aborting.
type IncompleteBlockError struct {
	Missing int
}

func (e *IncompleteBlockError) Error() string {
	return fmt.Sprintf("blockcipher: last block is incomplete, found %d missing bytes", e.Missing)
}

// Is makes IncompleteBlockError match ErrIncompleteBlock.
func (e *IncompleteBlockError) Is(target error) bool { return target == ErrIncompleteBlock }

// WorkerFailedError identifies the block whose callback panicked inside a
// pipeline worker. ID is the sequence id the block was submitted with.
type WorkerFailedError struct {
	ID    uint64
	Cause any
}

func (e *WorkerFailedError) Error() string {
	return fmt.Sprintf("blockcipher: pipeline worker failed on block %d: %v", e.ID, e.Cause)
}

// Is makes WorkerFailedError match ErrWorkerFailed.
func (e *WorkerFailedError) Is(target error) bool { return target == ErrWorkerFailed }

func newKeyLengthError(alg Algorithm, got int) error {
	richErr := goerrors.New(ErrCodeInvalidKey, fmt.Sprintf("invalid key size for %s: must be 16, 24 or 32 bytes (got %d)", alg, got))
	return fmt.Errorf("%w: %w", &KeyLengthError{Algorithm: alg, Got: got}, richErr)
}

func newIVLengthError(want, got int) error {
	richErr := goerrors.New(ErrCodeInvalidIV, fmt.Sprintf("IV must be exactly %d bytes (got %d)", want, got))
	return fmt.Errorf("%w: %w", ErrInvalidIVLength, richErr)
}

func newIncompleteBlockError(missing int) error {
	richErr := goerrors.New(ErrCodeIncompleteBlock, fmt.Sprintf("%d bytes missing to complete the last block", missing))
	return fmt.Errorf("%w: %w", &IncompleteBlockError{Missing: missing}, richErr)
}

func newWorkerFailedError(id uint64, cause any) error {
	richErr := goerrors.New(ErrCodeWorkerFailed, fmt.Sprintf("block %d could not be processed", id))
	return fmt.Errorf("%w: %w", &WorkerFailedError{ID: id, Cause: cause}, richErr)
}

func newPipelineClosedError() error {
	richErr := goerrors.New(ErrCodePipelineClosed, "pipeline no longer accepts blocks")
	return fmt.Errorf("%w: %w", ErrPipelineClosed, richErr)
}
