// config.go: Engine configuration with YAML/JSON loading and validation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"fmt"
	"os"

	goerrors "github.com/agilira/go-errors"
	"sigs.k8s.io/yaml"
)

// Mode names a mode of operation.
type Mode string

const (
	ModeECB Mode = "ecb"
	ModeCBC Mode = "cbc"
	ModeCFB Mode = "cfb"
)

// Config selects the primitive, the mode of operation and how blocks are
// scheduled by NewEncrypter and NewDecrypter.
type Config struct {
	// Algorithm is the block primitive, "aes" or "serpent".
	Algorithm Algorithm `json:"algorithm"`

	// Mode is the mode of operation, "ecb", "cbc" or "cfb".
	Mode Mode `json:"mode"`

	// Workers is the number of pipeline workers. Zero processes blocks on
	// the calling goroutine. Only ECB and CBC decryption use a pipeline.
	Workers int `json:"workers"`

	// QueueDepth bounds the pipeline input queue (default: 64)
	QueueDepth int `json:"queue_depth"`
}

// DefaultConfig returns AES in CBC mode processed synchronously.
func DefaultConfig() Config {
	return Config{
		Algorithm:  AlgorithmAES,
		Mode:       ModeCBC,
		QueueDepth: DefaultQueueDepth,
	}
}

// Validate reports the first invalid field as an error wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	if _, err := c.Algorithm.lookup(); err != nil {
		return configError(fmt.Sprintf("unknown algorithm %q", string(c.Algorithm)))
	}
	switch c.Mode {
	case ModeECB, ModeCBC, ModeCFB:
	default:
		return configError(fmt.Sprintf("unknown mode %q", string(c.Mode)))
	}
	if c.Workers < 0 {
		return configError(fmt.Sprintf("workers must not be negative (got %d)", c.Workers))
	}
	if c.QueueDepth < 0 {
		return configError(fmt.Sprintf("queue_depth must not be negative (got %d)", c.QueueDepth))
	}
	return nil
}

// PipelineConfig derives the pipeline settings used by threaded modes.
func (c Config) PipelineConfig() PipelineConfig {
	return PipelineConfig{
		Workers:    c.Workers,
		QueueDepth: c.QueueDepth,
	}.normalized()
}

// LoadConfig parses a YAML or JSON document over DefaultConfig and validates
// the result. Unknown fields are rejected.
//
// Example:
//
//	cfg, err := blockcipher.LoadConfig([]byte("algorithm: serpent\nmode: ecb\nworkers: 4\n"))
func LoadConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeConfig, "failed to parse configuration")
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, richErr)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads and parses the configuration file at path.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeConfig, "failed to read configuration file")
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, richErr)
	}
	return LoadConfig(data)
}

func configError(msg string) error {
	richErr := goerrors.New(ErrCodeConfig, msg)
	return fmt.Errorf("%w: %w", ErrInvalidConfig, richErr)
}
