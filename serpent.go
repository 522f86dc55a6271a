// serpent.go: Serpent block cipher with a bitsliced S-box layer.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"encoding/binary"
	"math/bits"
)

const (
	serpentRounds = 32
	serpentPhi    = 0x9e3779b9
	// serpentKeyWords is the number of expanded key words: 33 round keys of 4 words.
	serpentKeyWords = (serpentRounds + 1) * 4
)

// serpentSbox holds the eight published 4-bit Serpent S-boxes.
var serpentSbox = [8][16]byte{
	{3, 8, 15, 1, 10, 6, 5, 11, 14, 13, 4, 2, 7, 0, 9, 12},
	{15, 12, 2, 7, 9, 0, 5, 10, 1, 11, 14, 8, 6, 13, 3, 4},
	{8, 6, 7, 9, 3, 12, 10, 15, 13, 1, 14, 4, 0, 11, 5, 2},
	{0, 15, 11, 8, 12, 9, 6, 3, 13, 1, 2, 4, 10, 7, 5, 14},
	{1, 15, 8, 3, 12, 0, 11, 6, 2, 5, 4, 10, 9, 14, 7, 13},
	{15, 5, 2, 11, 4, 10, 9, 12, 0, 3, 14, 8, 13, 6, 7, 1},
	{7, 2, 12, 5, 8, 4, 6, 11, 14, 9, 1, 15, 13, 3, 10, 0},
	{1, 13, 15, 0, 14, 8, 2, 11, 7, 4, 12, 10, 9, 3, 5, 6},
}

var serpentInvSbox [8][16]byte

func init() {
	for i, box := range serpentSbox {
		for in, out := range box {
			serpentInvSbox[i][out] = byte(in)
		}
	}
}

// Serpent is a 32-round Serpent primitive with a 128-bit block, using the
// little-endian byte convention of the reference bitslice implementation and
// the NESSIE test vectors.
//
// A Serpent value is immutable after NewSerpent and safe for concurrent use.
type Serpent struct {
	keyLen int
	sk     *SecureBuffer[uint32]
}

// NewSerpent expands key into a Serpent primitive. The key must be 16, 24 or
// 32 bytes; other lengths return an error wrapping ErrInvalidKeyLength.
func NewSerpent(key []byte) (*Serpent, error) {
	if !validKeyLength(len(key)) {
		return nil, newKeyLengthError(AlgorithmSerpent, len(key))
	}

	w := make([]uint32, 8+serpentKeyWords)
	expandSerpentKey(w, key)
	sk := NewSecureBufferFrom(w[8:])
	wipe(w)
	return &Serpent{keyLen: len(key), sk: sk}, nil
}

// expandSerpentKey derives the prekeys into w[8:] and turns every group of four
// into a round key. w[:8] receives the padded 256-bit seed: key words are read
// little-endian and a short key is followed by a single 1 bit.
func expandSerpentKey(w []uint32, key []byte) {
	n := len(key) / 4
	for i := 0; i < n; i++ {
		w[i] = binary.LittleEndian.Uint32(key[4*i:])
	}
	if n < 8 {
		w[n] |= 1
	}

	for i := 8; i < len(w); i++ {
		x := w[i-8] ^ w[i-5] ^ w[i-3] ^ w[i-1] ^ serpentPhi ^ uint32(i-8)
		w[i] = bits.RotateLeft32(x, 11)
	}

	// Round key k uses S-box (3-k) mod 8: 3, 2, 1, 0, 7, 6, 5, 4, 3, ...
	sk := w[8:]
	for k := 0; k <= serpentRounds; k++ {
		box := (3 - k) & 7
		var x [4]uint32
		copy(x[:], sk[4*k:4*k+4])
		applySbox(&serpentSbox[box], &x)
		copy(sk[4*k:], x[:])
	}
}

// BlockSize returns the Serpent block size, 16 bytes.
func (s *Serpent) BlockSize() int { return BlockSize }

// Rounds returns the number of rounds, always 32.
func (s *Serpent) Rounds() int { return serpentRounds }

// KeySize returns the length of the raw key the primitive was built from.
func (s *Serpent) KeySize() int { return s.keyLen }

// Encrypt encrypts the first block of src into dst. dst and src may overlap
// entirely.
func (s *Serpent) Encrypt(dst, src []byte) {
	checkBlock("blockcipher/serpent", dst, src)
	sk := s.sk.Bytes()

	var x [4]uint32
	loadWords(&x, src)
	for r := 0; r < serpentRounds; r++ {
		addRoundKey(&x, sk[4*r:])
		applySbox(&serpentSbox[r&7], &x)
		if r < serpentRounds-1 {
			linearTransform(&x)
		}
	}
	addRoundKey(&x, sk[4*serpentRounds:])
	storeWords(dst, &x)
	clear(x[:])
}

// Decrypt decrypts the first block of src into dst. dst and src may overlap
// entirely.
func (s *Serpent) Decrypt(dst, src []byte) {
	checkBlock("blockcipher/serpent", dst, src)
	sk := s.sk.Bytes()

	var x [4]uint32
	loadWords(&x, src)
	addRoundKey(&x, sk[4*serpentRounds:])
	for r := serpentRounds - 1; r >= 0; r-- {
		if r < serpentRounds-1 {
			inverseLinearTransform(&x)
		}
		applySbox(&serpentInvSbox[r&7], &x)
		addRoundKey(&x, sk[4*r:])
	}
	storeWords(dst, &x)
	clear(x[:])
}

// Destroy wipes the expanded key. The primitive must not be used afterwards.
func (s *Serpent) Destroy() {
	s.sk.Destroy()
}

func loadWords(x *[4]uint32, src []byte) {
	for i := range x {
		x[i] = binary.LittleEndian.Uint32(src[4*i:])
	}
}

func storeWords(dst []byte, x *[4]uint32) {
	for i := range x {
		binary.LittleEndian.PutUint32(dst[4*i:], x[i])
	}
}

func addRoundKey(x *[4]uint32, k []uint32) {
	x[0] ^= k[0]
	x[1] ^= k[1]
	x[2] ^= k[2]
	x[3] ^= k[3]
}

// applySbox runs box bitsliced across the four words: bit j of x[0..3] forms
// the 4-bit input of the j-th S-box, x[0] being the least significant bit.
func applySbox(box *[16]byte, x *[4]uint32) {
	var y0, y1, y2, y3 uint32
	for j := 0; j < 32; j++ {
		in := (x[0]>>j)&1 | ((x[1]>>j)&1)<<1 | ((x[2]>>j)&1)<<2 | ((x[3]>>j)&1)<<3
		out := uint32(box[in])
		y0 |= (out & 1) << j
		y1 |= ((out >> 1) & 1) << j
		y2 |= ((out >> 2) & 1) << j
		y3 |= ((out >> 3) & 1) << j
	}
	x[0], x[1], x[2], x[3] = y0, y1, y2, y3
}

func linearTransform(x *[4]uint32) {
	x0, x1, x2, x3 := x[0], x[1], x[2], x[3]
	x0 = bits.RotateLeft32(x0, 13)
	x2 = bits.RotateLeft32(x2, 3)
	x1 ^= x0 ^ x2
	x3 ^= x2 ^ (x0 << 3)
	x1 = bits.RotateLeft32(x1, 1)
	x3 = bits.RotateLeft32(x3, 7)
	x0 ^= x1 ^ x3
	x2 ^= x3 ^ (x1 << 7)
	x0 = bits.RotateLeft32(x0, 5)
	x2 = bits.RotateLeft32(x2, 22)
	x[0], x[1], x[2], x[3] = x0, x1, x2, x3
}

func inverseLinearTransform(x *[4]uint32) {
	x0, x1, x2, x3 := x[0], x[1], x[2], x[3]
	x2 = bits.RotateLeft32(x2, -22)
	x0 = bits.RotateLeft32(x0, -5)
	x2 ^= x3 ^ (x1 << 7)
	x0 ^= x1 ^ x3
	x3 = bits.RotateLeft32(x3, -7)
	x1 = bits.RotateLeft32(x1, -1)
	x3 ^= x2 ^ (x0 << 3)
	x1 ^= x0 ^ x2
	x2 = bits.RotateLeft32(x2, -3)
	x0 = bits.RotateLeft32(x0, -13)
	x[0], x[1], x[2], x[3] = x0, x1, x2, x3
}
