// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Every component of the daemon accepts a context and extracts the logger from
// it, so poller ticks, alarm transitions and reminder syncs are logged with the
// owner and component they belong to.
package logger
