// Package sender implements the streaming protocol engine that feeds a G-code
// command sequence to a line-oriented, acknowledgment-based device.
//
// # Protocol Overview
//
// The device is assumed to be single-buffered: it accepts one command, executes
// or rejects it, and answers with one line. The engine therefore keeps exactly
// one command in flight:
//
//  1. Handshake: write "\r\n\r\n", wait the settle delay (2s by default) for the
//     firmware to finish its reset, then discard whatever the device printed
//     while booting.
//  2. Exchange: write the command at the cursor, read one response line,
//     classify it as Acknowledged or Rejected.
//  3. Acknowledged advances the cursor and resets the retry counter. Rejected
//     resends the same command until the retry limit (3 by default) is reached,
//     at which point the run ends in ErrorState.
//
// A run ends in FinishedState once every command is acknowledged.
//
// # Classification
//
// The default classifier rejects only lines starting with the case-sensitive
// prefix "Error". Everything else, including an empty line produced by a read
// timeout, counts as an acknowledgment. Use WithClassifier to change the policy.
//
// # Errors
//
// Run returns the terminal RunState together with an error describing why a
// run did not finish: an *ExchangeError wrapping ErrRetryExhausted, an error
// wrapping ErrTransport for I/O failures, or the context error on cancellation.
package sender
