// ecb.go: Electronic codebook mode over any block primitive.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"crypto/cipher"
)

// ECBEncryption encrypts every block independently with the same key.
// It implements cipher.BlockMode.
type ECBEncryption struct {
	b cipher.Block
}

// NewECBEncryption returns an ECB encrypter over b.
func NewECBEncryption(b cipher.Block) *ECBEncryption {
	return &ECBEncryption{b: b}
}

// BlockSize returns the block size of the underlying primitive.
func (e *ECBEncryption) BlockSize() int { return e.b.BlockSize() }

// ProcessBlock encrypts one block in place.
func (e *ECBEncryption) ProcessBlock(block []byte) {
	e.b.Encrypt(block, block)
}

// CryptBlocks encrypts src into dst. len(src) must be a multiple of the block size.
func (e *ECBEncryption) CryptBlocks(dst, src []byte) {
	cryptBlocks(e.b.BlockSize(), dst, src, e.b.Encrypt)
}

// Destroy releases the primitive when it supports it.
func (e *ECBEncryption) Destroy() { destroyPrimitive(e.b) }

// ECBDecryption is the inverse of ECBEncryption. It implements cipher.BlockMode.
type ECBDecryption struct {
	b cipher.Block
}

// NewECBDecryption returns an ECB decrypter over b.
func NewECBDecryption(b cipher.Block) *ECBDecryption {
	return &ECBDecryption{b: b}
}

// BlockSize returns the block size of the underlying primitive.
func (d *ECBDecryption) BlockSize() int { return d.b.BlockSize() }

// ProcessBlock decrypts one block in place.
func (d *ECBDecryption) ProcessBlock(block []byte) {
	d.b.Decrypt(block, block)
}

// CryptBlocks decrypts src into dst. len(src) must be a multiple of the block size.
func (d *ECBDecryption) CryptBlocks(dst, src []byte) {
	cryptBlocks(d.b.BlockSize(), dst, src, d.b.Decrypt)
}

// Destroy releases the primitive when it supports it.
func (d *ECBDecryption) Destroy() { destroyPrimitive(d.b) }

func cryptBlocks(bs int, dst, src []byte, fn func(dst, src []byte)) {
	if len(src)%bs != 0 {
		panic("blockcipher: input not full blocks")
	}
	if len(dst) < len(src) {
		panic("blockcipher: output smaller than input")
	}
	for len(src) > 0 {
		fn(dst[:bs], src[:bs])
		src = src[bs:]
		dst = dst[bs:]
	}
}

func destroyPrimitive(b cipher.Block) {
	if d, ok := b.(interface{ Destroy() }); ok {
		d.Destroy()
	}
}
