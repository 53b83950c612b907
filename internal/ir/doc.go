// Package ir provides the value model for recorded call outcomes.
//
// This package contains value types and their canonical encoding only.
// All other internal packages may import ir; ir imports nothing internal.
//
// Key design constraints:
//   - IRValue is sealed; drivers' Go values enter through FromGo
//   - Canonical JSON is the only persisted encoding, so a ledger always
//     serializes to the same bytes
//   - Floats, bytes and times are tagged ({"$f":..}, {"$b":..}, {"$t":..})
//     and "$"-prefixed object keys are reserved
package ir
