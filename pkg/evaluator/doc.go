// Package evaluator validates and sanitizes untyped JSON values against a
// compiled schema document.
//
// The evaluator understands the draft-07 subset emitted by the schema
// compiler plus two custom keywords: transform (string rewriting before the
// remaining string checks) and errorMessage (custom violation messages).
// Evaluation is not read-only. Depending on Options it coerces scalars to
// the schema type, fills absent properties from defaults and removes
// properties an object schema does not list.
//
// Violation messages follow the wording of the common JavaScript validators
// ("should have required property 'name'", "should be <= 11") so that
// reports stay familiar to API clients.
package evaluator
