// Package loader reads model declarations from CUE and YAML files and
// registers them on a rules.Registry.
//
// Both formats share one shape:
//
//	model: Account: {
//		description: "An account"
//		extends:     "Base"
//		fields: {
//			amount: {type: "number", max: 11, default: 2}
//			name:   {type: "string", required: true, trim: true, min: 1}
//			owner:  {type: "User"}
//			pet:    {one_of: ["Cat", "Dog"]}
//		}
//	}
//
// A model may carry a schema key instead of fields; its value is installed
// verbatim as a schema override. Field and rule order follow the source.
package loader
