// Package blockcipher provides from-scratch block cipher primitives, the classic
// modes of operation on top of them and a parallel pipeline for block-level work.
//
// This package offers:
//   - AES (Rijndael, FIPS-197) with 128, 192 and 256-bit keys
//   - Serpent with 128, 192 and 256-bit keys (NESSIE test vectors)
//   - ECB, CBC and CFB128 modes generic over any crypto/cipher.Block
//   - A bounded, ordered worker pipeline with threaded ECB and CBC decryption
//   - Streaming io.Writer / io.Reader adapters for large data sets
//   - Secure buffers that wipe key schedules, IVs and partial blocks
//
// Both primitives implement crypto/cipher.Block, so they also plug into the
// standard library and golang.org/x/crypto modes.
//
// # Quick Start
//
// Configuration-driven encryption and decryption:
//
//	key, _ := blockcipher.GenerateKey(32)
//	iv, _ := blockcipher.GenerateIV()
//
//	cfg := blockcipher.Config{Algorithm: blockcipher.AlgorithmSerpent, Mode: blockcipher.ModeCBC, Workers: 4}
//
//	enc, err := blockcipher.NewEncrypter(cfg, key, iv)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer enc.Close()
//	enc.Write(plaintext) // len(plaintext) must be a multiple of 16 for ECB and CBC
//	ciphertext, err := enc.Finalize()
//
//	dec, _ := blockcipher.NewDecrypter(cfg, key, iv) // CBC decryption runs on 4 workers
//	defer dec.Close()
//	dec.Write(ciphertext)
//	recovered, err := dec.Finalize()
//
// # Modes and Primitives
//
// The building blocks can be assembled by hand:
//
//	c, _ := blockcipher.NewAES(key)
//	cbc, _ := blockcipher.NewCBCEncryption(c, iv)
//	cbc.CryptBlocks(dst, src) // cipher.BlockMode
//
//	cfb, _ := blockcipher.NewCFBEncryption(c, iv)
//	cfb.XORKeyStream(dst, src) // cipher.Stream
//
// Padding is never applied. Finalize on ECB and CBC reports a partial block
// as an *IncompleteBlockError carrying the number of missing bytes.
//
// # Parallel Pipeline
//
// A Pipeline shares one primitive between a fixed set of workers. Blocks are
// tagged with a sequence id on Put and reassembled in that order by Finalize.
// The input queue is bounded, so Put applies backpressure and honours context
// cancellation. A panicking block callback is converted into a
// *WorkerFailedError naming the block instead of crashing the process.
//
// # Error Handling
//
// All functions return standard Go errors for maximum compatibility.
// For advanced error handling with rich error details, the library integrates
// with github.com/agilira/go-errors.
//
// Example error handling:
//
//	_, err := blockcipher.NewSerpent(key)
//	if errors.Is(err, blockcipher.ErrInvalidKeyLength) {
//		// Handle invalid key size
//	}
//
// # Logging
//
// The package logs through a github.com/btcsuite/btclog logger that is
// disabled by default. Enable it with UseLogger.
//
// # Security Considerations
//
// The primitives are table driven and make no constant-time guarantees.
// ECB leaks equal plaintext blocks and none of the modes authenticate data;
// they are intended for interoperability, testing and education.
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra library
// SPDX-License-Identifier: MPL-2.0
package blockcipher
