// helpers_test.go: Shared fixtures for the external test package.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	blockcipher "github.com/agilira/krypteia"
)

// NIST SP 800-38A appendix F material shared by the mode tests.
const (
	nistPlaintext = "6BC1BEE22E409F96E93D7E117393172A AE2D8A571E03AC9C9EB76FAC45AF8E51" +
		"30C81C46A35CE411E5FBC1191A0A52EF F69F2445DF4F9B17AD2B417BE66C3710"
	nistIV = "000102030405060708090A0B0C0D0E0F"

	nistKey128 = "2B7E151628AED2A6ABF7158809CF4F3C"
	nistKey192 = "8E73B0F7DA0E6452C810F32B809079E562F8EAD2522C6B7B"
	nistKey256 = "603DEB1015CA71BE2B73AEF0857D77811F352C073B6108D72D9810A30914DFF4"
)

func mustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := blockcipher.DecodeHex(s)
	require.NoError(t, err)
	return b
}

func randomBytes(t testing.TB, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func newPrimitive(t testing.TB, alg blockcipher.Algorithm, key []byte) blockcipher.Primitive {
	t.Helper()
	p, err := blockcipher.NewPrimitive(alg, key)
	require.NoError(t, err)
	return p
}

// process writes input to proc in one call and finalizes it.
func process(t testing.TB, proc blockcipher.Processor, input []byte) []byte {
	t.Helper()
	n, err := proc.Write(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)
	out, err := proc.Finalize()
	require.NoError(t, err)
	return out
}
