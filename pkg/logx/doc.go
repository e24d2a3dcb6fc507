// Package logx configures surveybot's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional notifier sink (min-level + rate limiting) so warnings and
//     errors reach the operator's chat channel
package logx
