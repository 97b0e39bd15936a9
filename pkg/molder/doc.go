// Package molder is the caller-facing API: it compiles models from a sealed
// rules.Registry on first use, caches the documents and validates untyped
// input against them.
//
// Typical use:
//
//	reg := rules.NewRegistry()
//	reg.Model("Account").
//		Field("amount", rules.Number, rules.Max(11), rules.Default(2)).
//		Field("name", rules.String, rules.Required(), rules.Trim())
//
//	m := molder.New(reg)
//	account, err := m.Validate("Account", input)
//
// Validate returns the sanitized instance or a *ValidationError.
// InstantiateWithErrors never fails and reports violations in the result.
package molder
