// primitive.go: Block cipher primitive contracts and the algorithm registry.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"crypto/cipher"
	"crypto/subtle"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// BlockSize is the block size in bytes shared by AES and Serpent.
const BlockSize = 16

// Algorithm names a block cipher primitive.
type Algorithm string

const (
	// AlgorithmAES selects the Rijndael cipher with a 128-bit block (FIPS-197).
	AlgorithmAES Algorithm = "aes"
	// AlgorithmSerpent selects the Serpent cipher.
	AlgorithmSerpent Algorithm = "serpent"
)

// BlockEncrypter is the encryption-only capability. CFB only needs this half
// of a primitive.
type BlockEncrypter interface {
	BlockSize() int
	Encrypt(dst, src []byte)
}

// Primitive is a keyed block cipher that can release its key schedule.
//
// Encrypt and Decrypt never mutate the primitive, so a single Primitive can
// be shared by any number of goroutines until Destroy is called.
type Primitive interface {
	cipher.Block
	Destroy()
}

type primitiveFactory func(key []byte) (Primitive, error)

var primitives = map[Algorithm]primitiveFactory{
	AlgorithmAES:     func(key []byte) (Primitive, error) { return NewAES(key) },
	AlgorithmSerpent: func(key []byte) (Primitive, error) { return NewSerpent(key) },
}

// Algorithms returns the supported algorithm names.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmAES, AlgorithmSerpent}
}

func (a Algorithm) String() string { return string(a) }

func (a Algorithm) lookup() (primitiveFactory, error) {
	factory, ok := primitives[a]
	if !ok {
		richErr := goerrors.New(ErrCodeConfig, fmt.Sprintf("no primitive registered for %q", string(a)))
		return nil, fmt.Errorf("%w: %w", ErrUnknownAlgorithm, richErr)
	}
	return factory, nil
}

// NewPrimitive constructs the primitive named by alg with key.
//
// Example:
//
//	block, err := blockcipher.NewPrimitive(blockcipher.AlgorithmSerpent, key)
//	if err != nil {
//		return err
//	}
//	defer block.Destroy()
func NewPrimitive(alg Algorithm, key []byte) (Primitive, error) {
	factory, err := alg.lookup()
	if err != nil {
		return nil, err
	}
	return factory(key)
}

func xorBytes(dst, a, b []byte) int {
	return subtle.XORBytes(dst, a, b)
}

func checkBlock(prefix string, dst, src []byte) {
	if len(src) < BlockSize {
		panic(prefix + ": input not full block")
	}
	if len(dst) < BlockSize {
		panic(prefix + ": output not full block")
	}
}
