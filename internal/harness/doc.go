// Package harness checks that record and replay agree.
//
// A scenario scripts a client session: optional setup SQL and a list of
// member calls on the connection or on named cursors. The harness runs the
// session against a real database through the recording proxy, persists
// the snapshot, then runs it again through the replay proxy and compares
// the two traces entry by entry.
//
// # Scenario Format
//
// Scenarios are YAML or CUE files:
//
//	name: duplicate_insert
//	description: "A constraint violation replays with its kind and message"
//	setup:
//	  - CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT UNIQUE)
//	steps:
//	  - on: c
//	    call: execute
//	    query: INSERT INTO users (name) VALUES (?)
//	    args: [ada]
//	  - on: c
//	    call: execute
//	    query: INSERT INTO users (name) VALUES (?)
//	    args: [ada]
//	    expect: { error: IntegrityError }
//	  - on: connection
//	    call: insert_id
//	    expect: { value: 1 }
//
// YAML files are decoded strictly: unknown fields are errors. CUE files
// are unified with the #Scenario schema in scenario.cue and must be
// concrete.
//
// # Golden Traces
//
// RunWithGolden stores the recorded trace as canonical JSON under
// testdata/golden, so a change in what the client returns shows up as a
// golden diff. Regenerate with -update.
package harness
