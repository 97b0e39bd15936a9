// Package jsonvalue provides helpers for the untyped JSON data model shared by
// the rule registry, the schema compiler and the evaluator.
//
// A normalized value is one of:
//   - nil (JSON null)
//   - bool
//   - float64 (every JSON number)
//   - string
//   - []any
//   - map[string]any
//
// Normalize converts arbitrary Go values into that model, DeepCopy clones it,
// and MarshalCanonical produces RFC 8785 canonical JSON used for content
// hashing (see Hash).
//
// This package imports nothing internal.
package jsonvalue
