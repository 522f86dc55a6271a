// keyutils.go: Key and IV utilities, text codecs for test vectors, zeroization and fingerprinting.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	goerrors "github.com/agilira/go-errors"
)

// EncodeHex encodes data as a lowercase hexadecimal string.
func EncodeHex(data []byte) string {
	return hex.EncodeToString(data)
}

// DecodeHex decodes a hexadecimal string.
//
// Whitespace is ignored and both upper and lower case digits are accepted, so
// vectors can be pasted in the grouped form used by NIST publications:
//
//	key, err := blockcipher.DecodeHex("2B7E1516 28AED2A6 ABF71588 09CF4F3C")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Returns an error wrapping ErrFormat if s is not valid hexadecimal.
func DecodeHex(s string) ([]byte, error) {
	data, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeFormat, "failed to decode hex")
		return nil, fmt.Errorf("%w: %w", ErrFormat, richErr)
	}
	return data, nil
}

// EncodeBase64 encodes data with the standard base64 alphabet.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes a standard base64 string.
// Returns an error wrapping ErrFormat if s is not valid base64.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeFormat, "failed to decode base64")
		return nil, fmt.Errorf("%w: %w", ErrFormat, richErr)
	}
	return data, nil
}

// Zeroize securely wipes a byte slice from memory.
//
// This function overwrites all bytes in the slice with zeros to prevent
// key material or plaintext from remaining in memory after use.
//
// Note: This function modifies the original slice in place.
//
// Example:
//
//	key, _ := blockcipher.GenerateKey(32)
//	c, _ := blockcipher.NewAES(key)
//	defer c.Destroy()
//	blockcipher.Zeroize(key) // the primitive keeps its own expanded copy
func Zeroize(b []byte) {
	wipe(b)
}

// ZeroizeWords wipes a slice of 32-bit words.
func ZeroizeWords(w []uint32) {
	wipe(w)
}

// GetKeyFingerprint generates a fingerprint for a key (non-cryptographic).
//
// The fingerprint is the first 8 bytes of the SHA-256 of the key, hex encoded.
// It is safe to log and lets operators tell keys apart without exposing them.
// An empty key yields an empty string.
func GetKeyFingerprint(key []byte) string {
	if len(key) == 0 {
		return ""
	}
	hash := sha256.Sum256(key)
	return fmt.Sprintf("%016x", hash[:8])
}

// GenerateKey generates a cryptographically secure random key of size bytes.
//
// Parameters:
//   - size: 16, 24 or 32 for AES-128/192/256 and Serpent-128/192/256
//
// Returns:
//   - The random key
//   - An error wrapping ErrInvalidKeyLength for other sizes, or a random source failure
//
// Example:
//
//	key, err := blockcipher.GenerateKey(32)
//	if err != nil {
//		log.Fatal(err)
//	}
func GenerateKey(size int) ([]byte, error) {
	if !validKeyLength(size) {
		return nil, newKeyLengthError("", size)
	}
	key := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, goerrors.Wrap(err, ErrCodeRandom, "failed to generate key")
	}
	return key, nil
}

// GenerateIV generates a random initialization vector of one block.
//
// Every CBC and CFB message needs a fresh IV; the IV is not secret and is
// usually stored next to the ciphertext.
func GenerateIV() ([]byte, error) {
	iv := make([]byte, BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, goerrors.Wrap(err, ErrCodeRandom, "failed to generate IV")
	}
	return iv, nil
}

// ValidateKey checks that key has a length supported by alg.
// Both AES and Serpent accept 16, 24 and 32 byte keys.
func ValidateKey(alg Algorithm, key []byte) error {
	if _, err := alg.lookup(); err != nil {
		return err
	}
	if !validKeyLength(len(key)) {
		return newKeyLengthError(alg, len(key))
	}
	return nil
}

// ValidateIV checks that iv is exactly one block long.
func ValidateIV(iv []byte) error {
	if len(iv) != BlockSize {
		return newIVLengthError(BlockSize, len(iv))
	}
	return nil
}

func validKeyLength(n int) bool {
	return n == 16 || n == 24 || n == 32
}
