// cfb.go: Full-block cipher feedback mode built on the encryption direction only.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

// cfbStream keeps one register. When the cursor reaches the end the register
// is encrypted in place to produce the next keystream block; every processed
// byte then replaces the keystream byte it consumed with the ciphertext byte,
// so at the next boundary the register holds the last ciphertext block.
type cfbStream struct {
	b       BlockEncrypter
	reg     *SecureBuffer[byte]
	pos     int
	decrypt bool
	out     []byte
}

func newCFBStream(b BlockEncrypter, iv []byte, decrypt bool) (cfbStream, error) {
	bs := b.BlockSize()
	if len(iv) != bs {
		return cfbStream{}, newIVLengthError(bs, len(iv))
	}
	return cfbStream{
		b:       b,
		reg:     NewSecureBufferFrom(iv),
		pos:     bs,
		decrypt: decrypt,
	}, nil
}

// XORKeyStream implements cipher.Stream. dst and src may overlap entirely.
func (s *cfbStream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("blockcipher: output smaller than input")
	}
	reg := s.reg.Bytes()
	for i, in := range src {
		if s.pos == len(reg) {
			s.b.Encrypt(reg, reg)
			s.pos = 0
		}
		if s.decrypt {
			dst[i] = in ^ reg[s.pos]
			reg[s.pos] = in
		} else {
			c := in ^ reg[s.pos]
			reg[s.pos] = c
			dst[i] = c
		}
		s.pos++
	}
}

// Write processes p and buffers the result. It never returns an error.
func (s *cfbStream) Write(p []byte) (int, error) {
	start := len(s.out)
	s.out = append(s.out, p...)
	s.XORKeyStream(s.out[start:], s.out[start:])
	return len(p), nil
}

func (s *cfbStream) Flush() error { return nil }

func (s *cfbStream) Drain() ([]byte, error) {
	out := s.out
	s.out = nil
	return out, nil
}

// Finalize returns everything processed since the last Drain. CFB works byte
// by byte, so it never reports an incomplete block.
func (s *cfbStream) Finalize() ([]byte, error) {
	return s.Drain()
}

func (s *cfbStream) Close() error {
	s.reg.Destroy()
	wipe(s.out)
	s.out = nil
	if d, ok := s.b.(interface{ Destroy() }); ok {
		d.Destroy()
	}
	return nil
}

// CFBEncryption encrypts a byte stream with 128-bit cipher feedback
// (NIST SP 800-38A CFB128). It implements cipher.Stream and Processor.
type CFBEncryption struct {
	cfbStream
}

// NewCFBEncryption returns a CFB encrypter. The IV must be exactly one block
// long, otherwise an error wrapping ErrInvalidIVLength is returned.
func NewCFBEncryption(b BlockEncrypter, iv []byte) (*CFBEncryption, error) {
	s, err := newCFBStream(b, iv, false)
	if err != nil {
		return nil, err
	}
	return &CFBEncryption{cfbStream: s}, nil
}

// CFBDecryption reverses CFBEncryption. It only uses the primitive's
// encryption direction.
type CFBDecryption struct {
	cfbStream
}

// NewCFBDecryption returns a CFB decrypter. The IV must be exactly one block
// long, otherwise an error wrapping ErrInvalidIVLength is returned.
func NewCFBDecryption(b BlockEncrypter, iv []byte) (*CFBDecryption, error) {
	s, err := newCFBStream(b, iv, true)
	if err != nil {
		return nil, err
	}
	return &CFBDecryption{cfbStream: s}, nil
}
