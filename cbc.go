// cbc.go: Cipher block chaining mode with a wiped chaining register.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"crypto/cipher"
)

// CBCEncryption XORs each plaintext block with the previous ciphertext block
// (the IV for the first one) before encrypting it. Encryption is inherently
// sequential. It implements cipher.BlockMode.
type CBCEncryption struct {
	b  cipher.Block
	iv *SecureBuffer[byte]
}

// NewCBCEncryption returns a CBC encrypter over b. The IV must be exactly one
// block long, otherwise an error wrapping ErrInvalidIVLength is returned.
func NewCBCEncryption(b cipher.Block, iv []byte) (*CBCEncryption, error) {
	if len(iv) != b.BlockSize() {
		return nil, newIVLengthError(b.BlockSize(), len(iv))
	}
	return &CBCEncryption{b: b, iv: NewSecureBufferFrom(iv)}, nil
}

// BlockSize returns the block size of the underlying primitive.
func (c *CBCEncryption) BlockSize() int { return c.b.BlockSize() }

// ProcessBlock encrypts one block in place and advances the chain.
func (c *CBCEncryption) ProcessBlock(block []byte) {
	bs := c.b.BlockSize()
	xorBytes(block[:bs], block[:bs], c.iv.Bytes())
	c.b.Encrypt(block, block)
	c.iv.OverrideContents(block, bs)
}

// CryptBlocks encrypts src into dst. len(src) must be a multiple of the block size.
func (c *CBCEncryption) CryptBlocks(dst, src []byte) {
	cryptBlocks(c.b.BlockSize(), dst, src, func(d, s []byte) {
		copy(d, s)
		c.ProcessBlock(d)
	})
}

// IV returns a copy of the current chaining value.
func (c *CBCEncryption) IV() []byte {
	return append([]byte(nil), c.iv.Bytes()...)
}

// Destroy wipes the chaining value and releases the primitive.
func (c *CBCEncryption) Destroy() {
	c.iv.Destroy()
	destroyPrimitive(c.b)
}

// CBCDecryption reverses CBCEncryption. Each block only depends on the
// ciphertext before it, which is what makes ThreadedCBCDecryption possible.
type CBCDecryption struct {
	b    cipher.Block
	iv   *SecureBuffer[byte]
	next *SecureBuffer[byte]
}

// NewCBCDecryption returns a CBC decrypter over b. The IV must be exactly one
// block long, otherwise an error wrapping ErrInvalidIVLength is returned.
func NewCBCDecryption(b cipher.Block, iv []byte) (*CBCDecryption, error) {
	if len(iv) != b.BlockSize() {
		return nil, newIVLengthError(b.BlockSize(), len(iv))
	}
	return &CBCDecryption{
		b:    b,
		iv:   NewSecureBufferFrom(iv),
		next: NewSecureBuffer[byte](b.BlockSize()),
	}, nil
}

// BlockSize returns the block size of the underlying primitive.
func (c *CBCDecryption) BlockSize() int { return c.b.BlockSize() }

// ProcessBlock decrypts one block in place and advances the chain.
func (c *CBCDecryption) ProcessBlock(block []byte) {
	bs := c.b.BlockSize()
	// The incoming ciphertext becomes the next IV, so capture it before the
	// block is overwritten.
	c.next.PushSlice(block[:bs])
	c.b.Decrypt(block, block)
	xorBytes(block[:bs], block[:bs], c.iv.Bytes())
	c.iv.OverrideContents(c.next.Bytes(), bs)
	c.next.Reset()
}

// CryptBlocks decrypts src into dst. len(src) must be a multiple of the block size.
func (c *CBCDecryption) CryptBlocks(dst, src []byte) {
	cryptBlocks(c.b.BlockSize(), dst, src, func(d, s []byte) {
		copy(d, s)
		c.ProcessBlock(d)
	})
}

// IV returns a copy of the current chaining value.
func (c *CBCDecryption) IV() []byte {
	return append([]byte(nil), c.iv.Bytes()...)
}

// Destroy wipes the chaining state and releases the primitive.
func (c *CBCDecryption) Destroy() {
	c.iv.Destroy()
	c.next.Destroy()
	destroyPrimitive(c.b)
}
