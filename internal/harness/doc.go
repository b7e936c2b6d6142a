// Package harness runs declarative conformance scenarios against the
// composition engine.
//
// A scenario is a YAML file describing a self-contained fragment set,
// session configuration (variables and overrides), one compose call, and
// the expected outcome: the flattened document plus the diagnostics the
// run must surface. Scenarios execute against an in-memory store with a
// fixed run-id generator so results are byte-for-byte deterministic and
// suitable for golden-file comparison.
//
// Scenarios live in testdata/scenarios, golden snapshots in
// testdata/golden. Regenerate goldens with:
//
//	go test ./internal/harness -update
package harness
