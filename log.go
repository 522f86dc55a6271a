// log.go: Package logger.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"github.com/btcsuite/btclog"
)

// Subsystem is the logging tag suggested for this package's logger.
const Subsystem = "BCPH"

// log is a logger that is initialized with no output filters. This means the
// package will not perform any logging by default until the caller requests it.
var log btclog.Logger

// The default amount of logging is none.
func init() {
	DisableLog()
}

// DisableLog disables all library log output. Logging output is disabled by
// default until UseLogger is called.
func DisableLog() {
	UseLogger(btclog.Disabled)
}

// UseLogger uses a specified Logger to output package logging info.
//
// Example:
//
//	backend := btclog.NewBackend(os.Stderr)
//	logger := backend.Logger(blockcipher.Subsystem)
//	logger.SetLevel(btclog.LevelDebug)
//	blockcipher.UseLogger(logger)
func UseLogger(logger btclog.Logger) {
	log = logger
}
