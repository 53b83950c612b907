package ledger

import (
	"fmt"
	"slices"

	"github.com/roach88/dbtape/internal/ir"
)

// Failure is the persisted form of an error raised by a recorded call.
//
// Kind selects the decoder in an ErrorRegistry. Message is the full text
// of the original error. Payload holds whatever structured fields the
// kind's encoder chose to keep (error codes, inner messages).
type Failure struct {
	Kind    string
	Message string
	Payload ir.IRObject
}

// Outcome is the result of one recorded call: a value or a failure.
// Exactly one of Value and Failure is meaningful; Failure != nil marks a
// failed call.
type Outcome struct {
	Value   ir.IRValue
	Failure *Failure
}

// Success returns a successful Outcome carrying v.
func Success(v ir.IRValue) Outcome {
	if v == nil {
		v = ir.IRNull{}
	}
	return Outcome{Value: v}
}

// Failed returns a failed Outcome.
func Failed(f Failure) Outcome {
	return Outcome{Failure: &f}
}

// IsFailure reports whether o records a raised error.
func (o Outcome) IsFailure() bool {
	return o.Failure != nil
}

// ToIR renders o as {"value": v} or {"error": {kind, message, payload}}.
func (o Outcome) ToIR() ir.IRObject {
	if o.Failure == nil {
		return ir.NewIRObject(ir.O("value", valueOrNull(o.Value)))
	}
	payload := o.Failure.Payload
	if payload == nil {
		payload = ir.IRObject{}
	}
	return ir.NewIRObject(ir.O("error", ir.NewIRObject(
		ir.O("kind", ir.IRString(o.Failure.Kind)),
		ir.O("message", ir.IRString(o.Failure.Message)),
		ir.O("payload", payload),
	)))
}

func valueOrNull(v ir.IRValue) ir.IRValue {
	if v == nil {
		return ir.IRNull{}
	}
	return v
}

// Entry is one outcome positioned in the ledger.
//
// Seq is the global arrival order. Position is the index within Key's
// queue.
type Entry struct {
	Seq      int64
	Key      CallKey
	Position int
	Outcome  Outcome
}

// Snapshot is the persistable content of a ledger, in arrival order.
type Snapshot struct {
	Entries []Entry
}

// Len returns the number of recorded outcomes.
func (s Snapshot) Len() int {
	return len(s.Entries)
}

// Keys returns the distinct keys in s, sorted.
func (s Snapshot) Keys() []CallKey {
	seen := make(map[CallKey]struct{})
	var keys []CallKey
	for _, e := range s.Entries {
		if _, ok := seen[e.Key]; ok {
			continue
		}
		seen[e.Key] = struct{}{}
		keys = append(keys, e.Key)
	}
	slices.Sort(keys)
	return keys
}

// Queues groups the outcomes by key, each queue in position order.
func (s Snapshot) Queues() map[CallKey][]Outcome {
	entries := s.sorted()
	queues := make(map[CallKey][]Outcome)
	for _, e := range entries {
		queues[e.Key] = append(queues[e.Key], e.Outcome)
	}
	return queues
}

// sorted returns a copy of the entries ordered by seq.
func (s Snapshot) sorted() []Entry {
	entries := slices.Clone(s.Entries)
	slices.SortStableFunc(entries, func(a, b Entry) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		default:
			return 0
		}
	})
	return entries
}

// ToIR renders s as an array of entry objects in arrival order.
func (s Snapshot) ToIR() ir.IRArray {
	entries := s.sorted()
	arr := make(ir.IRArray, 0, len(entries))
	for _, e := range entries {
		arr = append(arr, ir.NewIRObject(
			ir.O("seq", ir.IRInt(e.Seq)),
			ir.O("key", ir.IRString(e.Key)),
			ir.O("position", ir.IRInt(e.Position)),
			ir.O("outcome", e.Outcome.ToIR()),
		))
	}
	return arr
}

// Digest returns a content digest over s. Two snapshots with the same
// outcomes in the same order have the same digest.
func (s Snapshot) Digest() (string, error) {
	d, err := ir.Digest(ir.DomainSnapshot, s.ToIR())
	if err != nil {
		return "", fmt.Errorf("snapshot digest: %w", err)
	}
	return d, nil
}

// Validate checks that positions are dense per key and seqs are unique.
func (s Snapshot) Validate() error {
	next := make(map[CallKey]int)
	seqs := make(map[int64]struct{}, len(s.Entries))
	for _, e := range s.sorted() {
		if _, err := ParseKey(string(e.Key)); err != nil {
			return err
		}
		if _, dup := seqs[e.Seq]; dup {
			return fmt.Errorf("duplicate seq %d", e.Seq)
		}
		seqs[e.Seq] = struct{}{}
		if e.Position != next[e.Key] {
			return fmt.Errorf("key %s: position %d out of order (want %d)", e.Key, e.Position, next[e.Key])
		}
		next[e.Key]++
	}
	return nil
}
