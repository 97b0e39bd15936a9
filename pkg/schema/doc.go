// Package schema compiles rule tables from a rules.Registry into JSON
// Schema documents.
//
// Schema is a typed draft-07 document with the transform and errorMessage
// extension keywords. It marshals with a fixed key order so that compiled
// documents are byte-for-byte stable. Annotation keywords from custom
// overrides are kept in Extra and written after the known ones.
//
// Compilation panics with a *rules.CompilationAnomaly when a model is
// statically defective. Use Compiler.TryCompile to get an error instead.
package schema
