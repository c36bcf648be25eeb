// Package logger wraps zap with a global sugared console logger on stderr.
//
// Services carry the logger in their context: WithName and WithKV scope it,
// and the KV helpers (InfoKV, WarnKV...) write through whatever logger the
// context holds. SetLevel adjusts the shared level after the CLI parses
// --log-level.
package logger
