// Package ledger keeps the per-test store of recorded call outcomes.
//
// Outcomes are grouped by CallKey, a facet ("connection", "cursor" or
// "user") joined to a member name with "--". Each key holds a FIFO queue:
// RECORD appends, REPLAY consumes from the front. Equal keys share one
// queue, so calls made on two different cursors interleave in the shared
// "cursor--<member>" queue in the order they happened.
//
// A successful outcome carries an ir.IRValue. A failed one carries a
// Failure (kind, message, structured payload) which an ErrorRegistry turns
// back into an error of the same kind and message on replay.
//
// Every append is stamped with a monotonic sequence number so a snapshot
// can be inspected in arrival order.
package ledger
