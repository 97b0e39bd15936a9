package loader

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// DecodeCUE reads every model under the model struct of v.
//
// The value is usually a built instance of a models directory:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: Account: { fields: { name: {type: "string"} } }`)
//	decls, errs := DecodeCUE(v, LoadModeCollectAll)
func DecodeCUE(v cue.Value, mode LoadMode) ([]Declaration, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	modelsVal := v.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return nil, nil
	}
	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var (
		decls []Declaration
		errs  []error
	)
	for iter.Next() {
		decl, err := decodeCUEModel(iter.Label(), iter.Value())
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return decls, errs
			}
			continue
		}
		decls = append(decls, decl)
	}
	return decls, errs
}

func decodeCUEModel(name string, v cue.Value) (Declaration, error) {
	decl := Declaration{Name: name, Pos: cuePos(v.Pos())}

	iter, err := v.Fields()
	if err != nil {
		return decl, errorf(ErrCodeInvalidModel, decl.Pos, "model %s: body must be a struct", name)
	}
	for iter.Next() {
		key := iter.Label()
		val := iter.Value()
		pos := cuePos(val.Pos())

		switch key {
		case "description", "extends":
			s, err := val.String()
			if err != nil {
				return decl, errorf(ErrCodeInvalidModel, pos, "model %s: %s must be a string, got %s", name, key, cueKindName(val))
			}
			if key == "description" {
				decl.Description = s
			} else {
				decl.Extends = s
			}
		case "schema":
			doc, err := cueToValue(val)
			if err != nil {
				return decl, err
			}
			obj, ok := doc.(map[string]any)
			if !ok {
				return decl, wrongModelValue(name, key, "an object", doc, pos)
			}
			decl.Schema = obj
		case "fields":
			fields, err := decodeCUEFields(val)
			if err != nil {
				return decl, err
			}
			decl.Fields = fields
		default:
			return decl, unknownModelKey(name, key, pos)
		}
	}
	return decl, checkModel(decl)
}

func decodeCUEFields(v cue.Value) ([]FieldDecl, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []FieldDecl
	for iter.Next() {
		name := iter.Label()
		body := iter.Value()

		bodyIter, err := body.Fields()
		if err != nil {
			return nil, errorf(ErrCodeInvalidRule, cuePos(body.Pos()), "field %s: body must be a struct", name)
		}
		var entries []entry
		for bodyIter.Next() {
			val, err := cueToValue(bodyIter.Value())
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry{
				Key:   bodyIter.Label(),
				Value: val,
				Pos:   cuePos(bodyIter.Value().Pos()),
			})
		}

		field, err := buildField(name, cuePos(body.Pos()), entries)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// cueToValue converts a concrete CUE value into the normalized JSON model.
// Struct field order is lost; only schema overrides and defaults go
// through here.
func cueToValue(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.StringKind:
		return v.String()
	case cue.IntKind, cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return f, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for iter.Next() {
			elem, err := cueToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := map[string]any{}
		for iter.Next() {
			elem, err := cueToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = elem
		}
		return out, nil
	}
	return nil, errorf(ErrCodeInvalidRule, cuePos(v.Pos()), "value must be concrete, got %s", cueKindName(v))
}

func cueKindName(v cue.Value) string {
	return v.IncompleteKind().String()
}

func cuePos(p token.Pos) Position {
	if !p.IsValid() {
		return Position{}
	}
	return Position{File: p.Filename(), Line: p.Line(), Column: p.Column()}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
	}

	first := errs[0]
	var pos Position
	if positions := errors.Positions(first); len(positions) > 0 {
		pos = cuePos(positions[0])
	}
	return &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprint(first), Pos: pos}
}
