package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ir"
)

// TraceSnapshot is the golden form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string
	Outcomes     int
	Trace        []TraceEntry
}

// ToIR converts the snapshot to an IRObject for canonical encoding.
func (s TraceSnapshot) ToIR() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, e := range s.Trace {
		trace[i] = e.ToIR()
	}
	return ir.NewIRObject(
		ir.O("scenario_name", ir.IRString(s.ScenarioName)),
		ir.O("outcomes", ir.IRInt(s.Outcomes)),
		ir.O("trace", trace),
	)
}

// MarshalTrace returns the canonical JSON of the recorded trace of result.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	snap := TraceSnapshot{
		ScenarioName: name,
		Outcomes:     result.Outcomes,
		Trace:        result.Recorded,
	}
	return ir.MarshalCanonical(snap.ToIR())
}

// RunWithGolden round-trips a scenario against real and compares the
// recorded trace with testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The test fails if the round trip fails, an expectation does not hold,
// replay diverges from the recording, or the trace differs from the
// golden file.
func RunWithGolden(t *testing.T, sc *Scenario, real dbapi.ConnectFunc) *Result {
	t.Helper()

	result, err := RoundTrip(context.Background(), sc, real, t.TempDir())
	if err != nil {
		t.Fatalf("round trip %s: %v", sc.Name, err)
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", sc.Name, msg)
	}

	AssertGolden(t, sc.Name, result)
	return result
}

// AssertGolden compares the recorded trace of result with a golden file,
// for results that are already at hand.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := MarshalTrace(name, result)
	if err != nil {
		t.Fatalf("marshal trace %s: %v", name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
