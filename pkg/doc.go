// Package pkg provides shared utilities for the usbdfs device engine.
//
// It contains:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for request rejections and configuration problems
//   - The [Handshake] type reported by the simulated bus
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentDevice, "device configured", "config", 1)
//
// Records below the configured level are dropped before any attributes are
// assembled, which keeps disabled logging cheap on the dispatch path.
//
// # Errors
//
// Rejections are sentinel values compared with [errors.Is]:
//
//	if errors.Is(err, pkg.ErrInvalidState) {
//	    // request arrived in the wrong enumeration state
//	}
package pkg
