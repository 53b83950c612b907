// Package proxy provides the recording and replay stand-ins for a
// database connection and its cursors, and the connect entry point that
// chooses between them.
//
// Recording proxies forward every call to the real client. Calls whose
// results the test can observe are also captured in the ledger: successes
// as values, failures as Failures that are re-raised unchanged. Replay
// proxies never touch a real client; they answer the same calls from the
// ledger in FIFO order per call key.
//
// All cursors of a connection share the "cursor--<member>" keys, so the
// order of calls across cursors must be the same when replaying as when
// recording.
package proxy
