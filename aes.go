// aes.go: Table-driven Rijndael (AES-128/192/256) block cipher.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

// AES is a Rijndael primitive with a 128-bit block. The state is laid out
// column-major: byte r of column c lives at index r+4c, which is also the
// order of the input bytes.
//
// An AES value is immutable after NewAES and safe for concurrent use.
type AES struct {
	rounds int
	keyLen int
	rk     *SecureBuffer[byte]
}

// NewAES expands key into an AES primitive.
//
// The key must be 16, 24 or 32 bytes, selecting 10, 12 or 14 rounds. Any other
// length returns an error wrapping ErrInvalidKeyLength; keys are never padded
// or truncated.
//
// Example:
//
//	key, _ := blockcipher.GenerateKey(32)
//	c, err := blockcipher.NewAES(key)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Destroy()
func NewAES(key []byte) (*AES, error) {
	var rounds int
	switch len(key) {
	case 16:
		rounds = 10
	case 24:
		rounds = 12
	case 32:
		rounds = 14
	default:
		return nil, newKeyLengthError(AlgorithmAES, len(key))
	}

	w := make([]byte, (rounds+1)*BlockSize)
	expandAESKey(w, key)
	rk := NewSecureBufferFrom(w)
	wipe(w)
	return &AES{rounds: rounds, keyLen: len(key), rk: rk}, nil
}

// expandAESKey fills w with the Rijndael key schedule. Words are derived four
// bytes at a time from the previous word and the word keyLen bytes back.
func expandAESKey(w, key []byte) {
	keyLen := len(key)
	copy(w, key)

	var tmp [4]byte
	for i := keyLen; i < len(w); i += 4 {
		copy(tmp[:], w[i-4:i])
		switch {
		case i%keyLen == 0:
			tmp[0], tmp[1], tmp[2], tmp[3] = sbox[tmp[1]], sbox[tmp[2]], sbox[tmp[3]], sbox[tmp[0]]
			tmp[0] ^= rcon[i/keyLen]
		case keyLen == 32 && i%keyLen == 16:
			for j := range tmp {
				tmp[j] = sbox[tmp[j]]
			}
		}
		for j := range tmp {
			w[i+j] = w[i-keyLen+j] ^ tmp[j]
		}
	}
	clear(tmp[:])
}

// BlockSize returns the AES block size, 16 bytes.
func (a *AES) BlockSize() int { return BlockSize }

// Rounds returns the number of rounds, 10, 12 or 14.
func (a *AES) Rounds() int { return a.rounds }

// KeySize returns the length of the raw key the primitive was built from.
func (a *AES) KeySize() int { return a.keyLen }

// Encrypt encrypts the first block of src into dst. dst and src may overlap
// entirely.
func (a *AES) Encrypt(dst, src []byte) {
	checkBlock("blockcipher/aes", dst, src)
	rk := a.rk.Bytes()

	var s, t [BlockSize]byte
	xorBytes(s[:], src[:BlockSize], rk[:BlockSize])

	for round := 1; round < a.rounds; round++ {
		subShift(&t, &s)
		mixColumns(&s, &t)
		xorBytes(s[:], s[:], rk[round*BlockSize:(round+1)*BlockSize])
	}

	subShift(&t, &s)
	xorBytes(dst[:BlockSize], t[:], rk[a.rounds*BlockSize:])
	clear(s[:])
	clear(t[:])
}

// Decrypt decrypts the first block of src into dst. dst and src may overlap
// entirely.
func (a *AES) Decrypt(dst, src []byte) {
	checkBlock("blockcipher/aes", dst, src)
	rk := a.rk.Bytes()

	var s, t [BlockSize]byte
	xorBytes(s[:], src[:BlockSize], rk[a.rounds*BlockSize:])

	for round := a.rounds - 1; round > 0; round-- {
		invShiftSub(&t, &s)
		xorBytes(t[:], t[:], rk[round*BlockSize:(round+1)*BlockSize])
		invMixColumns(&s, &t)
	}

	invShiftSub(&t, &s)
	xorBytes(dst[:BlockSize], t[:], rk[:BlockSize])
	clear(s[:])
	clear(t[:])
}

// Destroy wipes the expanded key. The primitive must not be used afterwards.
func (a *AES) Destroy() {
	a.rk.Destroy()
}

// subShift applies SubBytes and ShiftRows: row r rotates left by r columns.
func subShift(dst, src *[BlockSize]byte) {
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			dst[r+4*c] = sbox[src[r+4*((c+r)%4)]]
		}
	}
}

// invShiftSub applies InvShiftRows and InvSubBytes.
func invShiftSub(dst, src *[BlockSize]byte) {
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			dst[r+4*((c+r)%4)] = invSbox[src[r+4*c]]
		}
	}
}

func mixColumns(dst, src *[BlockSize]byte) {
	for c := 0; c < 16; c += 4 {
		a0, a1, a2, a3 := src[c], src[c+1], src[c+2], src[c+3]
		dst[c] = mul2[a0] ^ mul3[a1] ^ a2 ^ a3
		dst[c+1] = a0 ^ mul2[a1] ^ mul3[a2] ^ a3
		dst[c+2] = a0 ^ a1 ^ mul2[a2] ^ mul3[a3]
		dst[c+3] = mul3[a0] ^ a1 ^ a2 ^ mul2[a3]
	}
}

func invMixColumns(dst, src *[BlockSize]byte) {
	for c := 0; c < 16; c += 4 {
		a0, a1, a2, a3 := src[c], src[c+1], src[c+2], src[c+3]
		dst[c] = mul14[a0] ^ mul11[a1] ^ mul13[a2] ^ mul9[a3]
		dst[c+1] = mul9[a0] ^ mul14[a1] ^ mul11[a2] ^ mul13[a3]
		dst[c+2] = mul13[a0] ^ mul9[a1] ^ mul14[a2] ^ mul11[a3]
		dst[c+3] = mul11[a0] ^ mul13[a1] ^ mul9[a2] ^ mul14[a3]
	}
}
