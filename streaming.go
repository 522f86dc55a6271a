// streaming.go: io.Writer and io.Reader adapters that run a Processor over large data sets.
//
// This module lets callers encrypt or decrypt data of any size without
// holding it all in memory: input is fed to the Processor in chunks and the
// processed bytes are forwarded as soon as each chunk completes.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"errors"
	"io"

	goerrors "github.com/agilira/go-errors"
)

// StreamingWriter processes everything written to it and forwards the result
// to an underlying writer.
//
// Example usage:
//
//	enc, _ := blockcipher.NewEncrypter(cfg, key, iv)
//	w, _ := blockcipher.NewStreamingWriter(outputWriter, enc)
//
//	io.Copy(w, inputReader) // Encrypts while streaming
//	if err := w.Close(); err != nil {
//		// an *IncompleteBlockError here means the input was not block aligned
//	}
type StreamingWriter interface {
	// Write feeds data to the Processor and forwards every completed chunk.
	Write(data []byte) (int, error)

	// Close finalizes the Processor, writes the remaining output and wipes
	// the Processor state. Must be called to get the last chunk out.
	Close() error
}

// StreamingReader reads from an underlying reader and returns the processed
// bytes.
//
// Example usage:
//
//	dec, _ := blockcipher.NewDecrypter(cfg, key, iv)
//	r, _ := blockcipher.NewStreamingReader(inputReader, dec)
//	defer r.Close()
//
//	io.Copy(outputWriter, r) // Decrypts while streaming
type StreamingReader interface {
	// Read returns processed bytes. At the end of the source it finalizes
	// the Processor and surfaces its error, if any, before io.EOF.
	Read(data []byte) (int, error)

	// Close wipes the Processor state and any buffered output.
	Close() error
}

// DefaultChunkSize is the default amount of input (64KB) processed before
// output is forwarded. This balances memory usage with per-call overhead.
const DefaultChunkSize = 64 * 1024

// maxChunkSize bounds the memory a single chunk may pin.
const maxChunkSize = 10 * 1024 * 1024

type streamingWriter struct {
	writer       io.Writer
	proc         Processor
	chunkSize    int
	buffered     int
	closed       bool
	bytesWritten int64
}

type streamingReader struct {
	reader    io.Reader
	proc      Processor
	chunk     *[]byte
	chunkSize int
	remaining []byte
	eof       bool
	closed    bool
}

// NewStreamingWriter creates a streaming writer with the default chunk size.
//
// Parameters:
//   - writer: Destination for processed data
//   - proc: Processor from NewEncrypter, NewDecrypter or a mode constructor
//
// The StreamingWriter takes ownership of proc and closes it on Close.
func NewStreamingWriter(writer io.Writer, proc Processor) (StreamingWriter, error) {
	return NewStreamingWriterWithChunkSize(writer, proc, DefaultChunkSize)
}

// NewStreamingWriterWithChunkSize creates a streaming writer with custom chunk size.
//
// Smaller chunks forward output sooner but call the underlying writer more
// often. Threaded processors wait for their workers at every chunk boundary,
// so larger chunks keep more workers busy.
func NewStreamingWriterWithChunkSize(writer io.Writer, proc Processor, chunkSize int) (StreamingWriter, error) {
	if err := validateStream(proc, chunkSize); err != nil {
		return nil, err
	}
	return &streamingWriter{
		writer:    writer,
		proc:      proc,
		chunkSize: chunkSize,
	}, nil
}

// NewStreamingReader creates a streaming reader with the default chunk size.
// The StreamingReader takes ownership of proc and closes it on Close.
func NewStreamingReader(reader io.Reader, proc Processor) (StreamingReader, error) {
	return NewStreamingReaderWithChunkSize(reader, proc, DefaultChunkSize)
}

// NewStreamingReaderWithChunkSize creates a streaming reader that pulls at most
// chunkSize bytes from reader at a time.
func NewStreamingReaderWithChunkSize(reader io.Reader, proc Processor, chunkSize int) (StreamingReader, error) {
	if err := validateStream(proc, chunkSize); err != nil {
		return nil, err
	}

	var chunk *[]byte
	if chunkSize == chunkBufferSize {
		chunk = getChunkBuffer()
	} else {
		buf := make([]byte, 0, chunkSize)
		chunk = &buf
	}

	return &streamingReader{
		reader:    reader,
		proc:      proc,
		chunk:     chunk,
		chunkSize: chunkSize,
	}, nil
}

func validateStream(proc Processor, chunkSize int) error {
	if proc == nil {
		return goerrors.New(ErrCodeStream, "processor must not be nil")
	}
	if chunkSize <= 0 || chunkSize > maxChunkSize {
		return goerrors.New(ErrCodeStream, "chunk size must be between 1 and 10MB")
	}
	return nil
}

// Write implements the Write method of StreamingWriter.
func (w *streamingWriter) Write(data []byte) (int, error) {
	if w.closed {
		return 0, goerrors.New(ErrCodeStream, "cannot write to closed stream")
	}

	totalWritten := 0
	for len(data) > 0 {
		toWrite := min(len(data), w.chunkSize-w.buffered)
		n, err := w.proc.Write(data[:toWrite])
		totalWritten += n
		w.buffered += n
		if err != nil {
			return totalWritten, err
		}
		data = data[toWrite:]

		if w.buffered >= w.chunkSize {
			if err := w.flushChunk(); err != nil {
				return totalWritten, err
			}
		}
	}

	return totalWritten, nil
}

// flushChunk forwards everything the Processor has produced so far.
func (w *streamingWriter) flushChunk() error {
	out, err := w.proc.Drain()
	if err != nil {
		return err
	}
	w.buffered = 0
	return w.forward(out)
}

func (w *streamingWriter) forward(out []byte) error {
	if len(out) == 0 {
		return nil
	}
	n, err := w.writer.Write(out)
	w.bytesWritten += int64(n)
	wipe(out)
	if err != nil {
		return goerrors.Wrap(err, ErrCodeStream, "failed to write processed chunk")
	}
	return nil
}

// Close implements the Close method of StreamingWriter.
func (w *streamingWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	out, finErr := w.proc.Finalize()
	writeErr := w.forward(out)
	closeErr := w.proc.Close()

	log.Tracef("Streaming writer closed after %d bytes", w.bytesWritten)
	return errors.Join(finErr, writeErr, closeErr)
}

// Read implements the Read method of StreamingReader.
func (r *streamingReader) Read(data []byte) (int, error) {
	if r.closed {
		return 0, goerrors.New(ErrCodeStream, "cannot read from closed stream")
	}

	for len(r.remaining) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		if err := r.readNextChunk(); err != nil {
			return 0, err
		}
	}

	n := copy(data, r.remaining)
	clear(r.remaining[:n])
	r.remaining = r.remaining[n:]
	return n, nil
}

// readNextChunk pulls one chunk from the source through the Processor. At the
// end of the source it also collects the finalized tail.
func (r *streamingReader) readNextChunk() error {
	buf := (*r.chunk)[:r.chunkSize]
	n, err := io.ReadFull(r.reader, buf)
	if n > 0 {
		if _, werr := r.proc.Write(buf[:n]); werr != nil {
			return werr
		}
		clear(buf[:n])
	}

	switch {
	case err == nil:
		out, derr := r.proc.Drain()
		if derr != nil {
			return derr
		}
		r.remaining = out
		return nil

	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		r.eof = true
		out, ferr := r.proc.Finalize()
		if ferr != nil {
			return ferr
		}
		r.remaining = out
		return nil

	default:
		return goerrors.Wrap(err, ErrCodeStream, "failed to read source chunk")
	}
}

// Close implements the Close method of StreamingReader.
func (r *streamingReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	wipe(r.remaining)
	r.remaining = nil
	putChunkBuffer(r.chunk)
	r.chunk = nil
	return r.proc.Close()
}
