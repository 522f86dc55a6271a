// engine.go: Config-driven construction of encrypting and decrypting processors.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

// NewEncrypter builds the Processor described by cfg.
//
// Parameters:
//   - cfg: algorithm, mode and worker settings (validated here)
//   - key: 16, 24 or 32 bytes
//   - iv: one block for CBC and CFB, ignored for ECB
//
// ECB with cfg.Workers > 0 runs on a pipeline; CBC encryption is always
// sequential because each block needs the previous ciphertext.
//
// The returned Processor owns the primitive: Close wipes the key schedule.
//
// Example:
//
//	enc, err := blockcipher.NewEncrypter(blockcipher.DefaultConfig(), key, iv)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer enc.Close()
//	enc.Write(plaintext)
//	ciphertext, err := enc.Finalize()
func NewEncrypter(cfg Config, key, iv []byte) (Processor, error) {
	prim, err := newConfiguredPrimitive(cfg, key)
	if err != nil {
		return nil, err
	}

	var proc Processor
	switch cfg.Mode {
	case ModeECB:
		if cfg.Workers > 0 {
			proc = NewThreadedECBEncryption(prim, cfg.PipelineConfig())
		} else {
			proc = NewBufferedEncryption(NewECBEncryption(prim))
		}
	case ModeCBC:
		var cbc *CBCEncryption
		if cbc, err = NewCBCEncryption(prim, iv); err == nil {
			proc = NewBufferedEncryption(cbc)
		}
	case ModeCFB:
		proc, err = NewCFBEncryption(prim, iv)
	}
	if err != nil {
		prim.Destroy()
		return nil, err
	}

	log.Debugf("Encrypter ready: %s/%s, workers=%d, key %s",
		cfg.Algorithm, cfg.Mode, cfg.Workers, GetKeyFingerprint(key))
	return proc, nil
}

// NewDecrypter builds the Processor that reverses NewEncrypter for the same
// cfg, key and iv. ECB and CBC decryption run on a pipeline when
// cfg.Workers > 0.
func NewDecrypter(cfg Config, key, iv []byte) (Processor, error) {
	prim, err := newConfiguredPrimitive(cfg, key)
	if err != nil {
		return nil, err
	}

	var proc Processor
	switch cfg.Mode {
	case ModeECB:
		if cfg.Workers > 0 {
			proc = NewThreadedECBDecryption(prim, cfg.PipelineConfig())
		} else {
			proc = NewBufferedDecryption(NewECBDecryption(prim))
		}
	case ModeCBC:
		if cfg.Workers > 0 {
			proc, err = NewThreadedCBCDecryption(prim, iv, cfg.PipelineConfig())
		} else {
			var cbc *CBCDecryption
			if cbc, err = NewCBCDecryption(prim, iv); err == nil {
				proc = NewBufferedDecryption(cbc)
			}
		}
	case ModeCFB:
		proc, err = NewCFBDecryption(prim, iv)
	}
	if err != nil {
		prim.Destroy()
		return nil, err
	}

	log.Debugf("Decrypter ready: %s/%s, workers=%d, key %s",
		cfg.Algorithm, cfg.Mode, cfg.Workers, GetKeyFingerprint(key))
	return proc, nil
}

func newConfiguredPrimitive(cfg Config, key []byte) (Primitive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewPrimitive(cfg.Algorithm, key)
}
