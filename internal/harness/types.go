package harness

import (
	"fmt"

	"github.com/roach88/dbtape/internal/ir"
)

// TraceEntry is the observed outcome of one step: a value or an error.
type TraceEntry struct {
	Step int
	On   string
	Call string

	// Value is the result of a successful call (IRNull for unit results).
	Value ir.IRValue

	// ErrorKind and Error describe a failed call. ErrorKind is the client
	// error kind, or "error" for errors outside the client taxonomy.
	ErrorKind string
	Error     string
}

// Failed reports whether the step raised an error.
func (e TraceEntry) Failed() bool {
	return e.ErrorKind != ""
}

// ToIR converts the entry to an IRObject for canonical encoding.
func (e TraceEntry) ToIR() ir.IRObject {
	obj := ir.NewIRObject(
		ir.O("step", ir.IRInt(e.Step)),
		ir.O("on", ir.IRString(e.On)),
		ir.O("call", ir.IRString(e.Call)),
	)
	if e.Failed() {
		obj["error"] = ir.NewIRObject(
			ir.O("kind", ir.IRString(e.ErrorKind)),
			ir.O("message", ir.IRString(e.Error)),
		)
		return obj
	}
	obj["value"] = e.Value
	return obj
}

// String renders the entry for mismatch reports.
func (e TraceEntry) String() string {
	if e.Failed() {
		return fmt.Sprintf("%s.%s raised %s: %s", e.On, e.Call, e.ErrorKind, e.Error)
	}
	data, err := ir.MarshalCanonical(e.Value)
	if err != nil {
		return fmt.Sprintf("%s.%s returned unencodable %T", e.On, e.Call, e.Value)
	}
	return fmt.Sprintf("%s.%s returned %s", e.On, e.Call, data)
}

// Result is the outcome of a round trip.
type Result struct {
	// Pass is true when every expectation held and replay matched the
	// recording entry for entry.
	Pass bool

	// Recorded is the trace of the run against the real client.
	Recorded []TraceEntry

	// Replayed is the trace of the run against the snapshot.
	Replayed []TraceEntry

	// Outcomes is the number of outcomes in the snapshot.
	Outcomes int

	// Errors lists failed expectations and replay mismatches.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
