// Package log provides the logging port used by lazyload components.
//
// The loader never writes to stdout or stderr directly. Every component logs
// through the Logger interface, so the host application decides where module
// loading diagnostics go.
//
// # Usage
//
// Wrap a zerolog logger:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Discard everything:
//
//	logger := log.NewNoopLogger()
//
// Capture entries in tests:
//
//	rec := log.NewRecorder()
//	// ... exercise the loader ...
//	warnings := rec.Entries(log.LevelWarn)
//
// # Custom Loggers
//
// Implement Logger to forward entries to an existing logging setup:
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package log
