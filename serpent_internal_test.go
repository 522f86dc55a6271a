// serpent_internal_test.go: S-box and key schedule invariants.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerpentSboxesArePermutations(t *testing.T) {
	for i, box := range serpentSbox {
		seen := make(map[byte]bool)
		for _, v := range box {
			require.Less(t, v, byte(16))
			seen[v] = true
		}
		assert.Len(t, seen, 16, "S-box %d is not a permutation", i)
	}
}

// Every S-box followed by its inverse must be the identity on all 16 nibble
// values placed in every bit position.
func TestSerpentSboxInverseIdentity(t *testing.T) {
	for i := range serpentSbox {
		for nibble := uint32(0); nibble < 16; nibble++ {
			for _, shift := range []uint{0, 7, 31} {
				x := [4]uint32{
					(nibble & 1) << shift,
					((nibble >> 1) & 1) << shift,
					((nibble >> 2) & 1) << shift,
					((nibble >> 3) & 1) << shift,
				}
				orig := x
				applySbox(&serpentSbox[i], &x)
				applySbox(&serpentInvSbox[i], &x)
				assert.Equal(t, orig, x, "S-box %d nibble %x shift %d", i, nibble, shift)
			}
		}

		// Four registers carrying the words 0, 1, 2, 3.
		x := [4]uint32{0, 1, 2, 3}
		applySbox(&serpentSbox[i], &x)
		applySbox(&serpentInvSbox[i], &x)
		assert.Equal(t, [4]uint32{0, 1, 2, 3}, x)
	}
}

func TestSerpentSboxBitsliced(t *testing.T) {
	// Bit j of the four words forms the j-th nibble, word 0 least significant.
	x := [4]uint32{0x1, 0x0, 0x0, 0x0} // nibble 1 at position 0, nibble 0 elsewhere
	applySbox(&serpentSbox[0], &x)

	// S0[1] = 8 at bit 0, S0[0] = 3 everywhere else.
	assert.Equal(t, uint32(0xfffffffe), x[0])
	assert.Equal(t, uint32(0xfffffffe), x[1])
	assert.Equal(t, uint32(0x00000000), x[2])
	assert.Equal(t, uint32(0x00000001), x[3])
}

func TestSerpentLinearTransformInverse(t *testing.T) {
	x := [4]uint32{0x01234567, 0x89abcdef, 0xfedcba98, 0x76543210}
	orig := x
	linearTransform(&x)
	assert.NotEqual(t, orig, x)
	inverseLinearTransform(&x)
	assert.Equal(t, orig, x)
}

func TestSerpentKeyScheduleDeterministic(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	a, err := NewSerpent(key)
	require.NoError(t, err)
	b, err := NewSerpent(key[:])
	require.NoError(t, err)

	require.Equal(t, serpentKeyWords, a.sk.Size())
	assert.Equal(t, a.sk.Bytes(), b.sk.Bytes())

	a.Destroy()
	assert.Zero(t, a.sk.Size())
	assert.NotEmpty(t, b.sk.Bytes())
}

func TestAESKeyExpansionFIPS197(t *testing.T) {
	// FIPS-197 appendix A.1: last round key of the 128-bit example key.
	key := []byte{0x2b, 0x7e, 0x15, 0x16, 0x28, 0xae, 0xd2, 0xa6, 0xab, 0xf7, 0x15, 0x88, 0x09, 0xcf, 0x4f, 0x3c}
	c, err := NewAES(key)
	require.NoError(t, err)

	rk := c.rk.Bytes()
	require.Len(t, rk, 176)
	assert.Equal(t, key, rk[:16])
	assert.Equal(t, "d014f9a8c9ee2589e13f0cc8b6630ca6", EncodeHex(rk[160:]))
}
