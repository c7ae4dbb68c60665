// Package logx configures fibtick's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Chatty levels optionally rate-throttled (a fast tick period can emit
//     several debug lines per second)
package logx
