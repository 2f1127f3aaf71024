// Package logger provides a small, thread-safe levelled logger.
//
// Each entry carries a timestamp, the level, an optional scope naming the
// component that wrote it, and the message:
//
//	[2026-01-02 15:04:05.000] [INFO] [engine] frame 12: 48213 points
//
// # Basic Usage
//
//	logger.Info("", "sweep started")
//	logger.Debug("worker-3", "job finished in %v", d)
//	logger.Error("engine", "calculate failed: %v", err)
//
// A dedicated logger can be created for tests or alternate sinks:
//
//	l := logger.New(&buf, logger.LevelDebug)
//
// # Log Levels
//
// ParseLevel accepts "debug", "info", "warn" and "error"; messages below the
// configured level are dropped.
package logger
