// Package harness runs validation scenarios against model declarations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: account_defaults
//	description: "Defaults fill absent fields"
//	models:
//	  - ../models          # model directories, relative to this file
//	model:                 # optional inline declarations
//	  Account:
//	    fields:
//	      amount: {type: number, max: 11, default: 2}
//	options:
//	  coerce_types: false  # optional evaluator overrides
//	cases:
//	  - name: empty input
//	    model: Account
//	    input: {}
//	    expect:
//	      valid: true
//	      instance: {amount: 2}
//	  - name: too large
//	    model: Account
//	    input: {amount: 12}
//	    expect:
//	      errors: "data/amount should be <= 11"
//	      violations:
//	        - {path: /amount, keyword: maximum}
//	assertions:
//	  - type: valid_count
//	    count: 1
//	  - type: stored_runs
//	    model: Account
//	    count: 2
//	  - type: schema
//	    model: Account
//	    expect: {additionalProperties: false}
//
// # Assertion Types
//
//   - valid_count: exactly count cases are valid
//   - violation_count: the named case reports exactly count violations
//   - stored_runs: the run log holds count runs of model (optionally valid)
//   - schema: the compiled document of model contains expect
//
// # Isolation
//
// Every scenario gets a fresh registry and a fresh in-memory SQLite store,
// and each case is recorded there as a validation run. Golden snapshots use
// canonical JSON, so outcomes compare byte for byte across runs.
package harness
