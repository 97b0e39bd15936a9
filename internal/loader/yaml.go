package loader

import (
	"gopkg.in/yaml.v3"

	"github.com/roach88/molder/pkg/jsonvalue"
)

// DecodeYAML reads the models declared in one YAML document. Node order is
// kept, so fields and rules register in the order written.
func DecodeYAML(data []byte, filename string, mode LoadMode) ([]Declaration, []error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, []error{errorf(ErrCodeLoadFailed, Position{File: filename}, "parsing YAML: %v", err)}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, []error{errorf(ErrCodeLoadFailed, yamlPos(filename, root), "top level must be a mapping")}
	}

	var (
		decls []Declaration
		errs  []error
	)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Value != "model" {
			continue
		}
		if val.Kind != yaml.MappingNode {
			return nil, []error{errorf(ErrCodeLoadFailed, yamlPos(filename, val), "model must be a mapping")}
		}
		for j := 0; j+1 < len(val.Content); j += 2 {
			decl, err := decodeYAMLModel(filename, val.Content[j].Value, val.Content[j+1])
			if err != nil {
				errs = append(errs, err)
				if mode == LoadModeFailFast {
					return decls, errs
				}
				continue
			}
			decls = append(decls, decl)
		}
	}
	return decls, errs
}

func decodeYAMLModel(filename, name string, node *yaml.Node) (Declaration, error) {
	decl := Declaration{Name: name, Pos: yamlPos(filename, node)}
	if node.Kind != yaml.MappingNode {
		return decl, errorf(ErrCodeInvalidModel, decl.Pos, "model %s: body must be a mapping", name)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		pos := yamlPos(filename, val)

		switch key {
		case "description", "extends":
			if val.Kind != yaml.ScalarNode || val.Tag != "!!str" {
				return decl, errorf(ErrCodeInvalidModel, pos, "model %s: %s must be a string, got %s", name, key, val.Tag)
			}
			if key == "description" {
				decl.Description = val.Value
			} else {
				decl.Extends = val.Value
			}
		case "schema":
			doc, err := yamlToValue(filename, val)
			if err != nil {
				return decl, err
			}
			obj, ok := doc.(map[string]any)
			if !ok {
				return decl, wrongModelValue(name, key, "a mapping", doc, pos)
			}
			decl.Schema = obj
		case "fields":
			fields, err := decodeYAMLFields(filename, val)
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

func decodeYAMLFields(filename string, node *yaml.Node) ([]FieldDecl, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errorf(ErrCodeInvalidModel, yamlPos(filename, node), "fields must be a mapping")
	}

	var fields []FieldDecl
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, body := node.Content[i].Value, node.Content[i+1]
		pos := yamlPos(filename, body)

		var entries []entry
		switch body.Kind {
		case yaml.MappingNode:
			for j := 0; j+1 < len(body.Content); j += 2 {
				val, err := yamlToValue(filename, body.Content[j+1])
				if err != nil {
					return nil, err
				}
				entries = append(entries, entry{
					Key:   body.Content[j].Value,
					Value: val,
					Pos:   yamlPos(filename, body.Content[j+1]),
				})
			}
		case yaml.ScalarNode:
			// Shorthand: `name: string` declares a plain typed field.
			entries = []entry{{Key: "type", Value: body.Value, Pos: pos}}
		default:
			return nil, errorf(ErrCodeInvalidRule, pos, "field %s: body must be a mapping or a type name", name)
		}

		field, err := buildField(name, pos, entries)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func yamlToValue(filename string, node *yaml.Node) (any, error) {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, errorf(ErrCodeInvalidRule, yamlPos(filename, node), "decoding value: %v", err)
	}
	v, err := jsonvalue.Normalize(raw)
	if err != nil {
		return nil, errorf(ErrCodeInvalidRule, yamlPos(filename, node), "value is not JSON compatible: %v", err)
	}
	return v, nil
}

func yamlPos(filename string, node *yaml.Node) Position {
	return Position{File: filename, Line: node.Line, Column: node.Column}
}
