// buffered.go: Byte-stream adapters that cut input into blocks for ECB and CBC.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

// BlockProcessor transforms one full block in place, carrying whatever chaining
// state the mode needs. ECBEncryption, ECBDecryption, CBCEncryption and
// CBCDecryption all implement it.
type BlockProcessor interface {
	BlockSize() int
	ProcessBlock(block []byte)
}

// Processor is the streaming contract shared by every mode: bytes go in
// through Write, processed bytes come out of Drain and Finalize.
type Processor interface {
	// Write buffers p and processes every block it completes. It always
	// consumes all of p.
	Write(p []byte) (int, error)

	// Flush is a no-op for block modes. It is not a completion signal.
	Flush() error

	// Drain returns the bytes processed so far without checking for a
	// pending partial block.
	Drain() ([]byte, error)

	// Finalize returns the remaining processed bytes. ECB and CBC fail with
	// an *IncompleteBlockError when a partial block is pending.
	Finalize() ([]byte, error)

	// Close wipes buffered state and releases the primitive.
	Close() error
}

type bufferedStream struct {
	mode    BlockProcessor
	pending *SecureBuffer[byte]
	out     []byte
}

func newBufferedStream(mode BlockProcessor) bufferedStream {
	return bufferedStream{
		mode:    mode,
		pending: NewSecureBuffer[byte](mode.BlockSize()),
	}
}

// Write implements io.Writer. It never returns an error.
func (s *bufferedStream) Write(p []byte) (int, error) {
	n := len(p)
	bs := s.mode.BlockSize()

	// Top up a partially filled block first.
	if !s.pending.IsEmpty() {
		p = p[s.pending.PushSlice(p):]
		if !s.pending.IsFull() {
			return n, nil
		}
		s.emit(s.pending.Bytes())
		s.pending.Reset()
	}

	for len(p) >= bs {
		s.emit(p[:bs])
		p = p[bs:]
	}
	s.pending.PushSlice(p)
	return n, nil
}

func (s *bufferedStream) emit(block []byte) {
	start := len(s.out)
	s.out = append(s.out, block...)
	s.mode.ProcessBlock(s.out[start:])
}

func (s *bufferedStream) Flush() error { return nil }

// Missing returns how many bytes the pending partial block lacks, or 0 when
// the input so far is block aligned.
func (s *bufferedStream) Missing() int {
	if s.pending.IsEmpty() {
		return 0
	}
	return s.pending.Capacity()
}

func (s *bufferedStream) Drain() ([]byte, error) {
	out := s.out
	s.out = nil
	return out, nil
}

func (s *bufferedStream) Finalize() ([]byte, error) {
	if missing := s.Missing(); missing > 0 {
		return nil, newIncompleteBlockError(missing)
	}
	return s.Drain()
}

func (s *bufferedStream) Close() error {
	s.pending.Destroy()
	wipe(s.out)
	s.out = nil
	if d, ok := s.mode.(interface{ Destroy() }); ok {
		d.Destroy()
	}
	return nil
}

// BufferedEncryption turns an ECB or CBC encrypter into a Processor.
//
// Example:
//
//	c, _ := blockcipher.NewAES(key)
//	cbc, _ := blockcipher.NewCBCEncryption(c, iv)
//	enc := blockcipher.NewBufferedEncryption(cbc)
//	defer enc.Close()
//
//	enc.Write(plaintext)
//	ciphertext, err := enc.Finalize()
//	var incomplete *blockcipher.IncompleteBlockError
//	if errors.As(err, &incomplete) {
//		// pad with incomplete.Missing bytes and retry
//	}
type BufferedEncryption struct {
	bufferedStream
}

// NewBufferedEncryption wraps an encrypting block mode.
func NewBufferedEncryption(mode BlockProcessor) *BufferedEncryption {
	return &BufferedEncryption{bufferedStream: newBufferedStream(mode)}
}

// BufferedDecryption turns an ECB or CBC decrypter into a Processor.
type BufferedDecryption struct {
	bufferedStream
}

// NewBufferedDecryption wraps a decrypting block mode.
func NewBufferedDecryption(mode BlockProcessor) *BufferedDecryption {
	return &BufferedDecryption{bufferedStream: newBufferedStream(mode)}
}
