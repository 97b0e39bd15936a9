// Package openapi exports compiled model documents as an OpenAPI 3 document.
//
// Every model becomes an entry of components.schemas, and every model gets a
// POST /models/{name}/validate operation matching the HTTP surface. Keywords
// OpenAPI has no room for (transform, errorMessage, unknown override keys)
// are kept as x- extensions.
package openapi

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/roach88/molder/pkg/molder"
	"github.com/roach88/molder/pkg/schema"
)

// Version is the OpenAPI version written into documents.
const Version = "3.0.3"

// Info names the exported API.
type Info struct {
	Title   string
	Version string
}

// Build compiles every model of m and returns the OpenAPI document.
func Build(m *molder.Molder, info Info) (*openapi3.T, error) {
	if info.Title == "" {
		info.Title = "molder models"
	}
	if info.Version == "" {
		info.Version = "0.0.0"
	}

	doc := &openapi3.T{
		OpenAPI:    Version,
		Info:       &openapi3.Info{Title: info.Title, Version: info.Version},
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
		Paths:      openapi3.Paths{},
	}

	for _, name := range m.Registry().Models() {
		s, err := m.JSONSchema(name)
		if err != nil {
			return nil, fmt.Errorf("openapi %s: %w", name, err)
		}
		value := Convert(s)
		if d := m.Description(name); d != "" && value.Description == "" {
			value.Description = d
		}
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", value)
		doc.Paths["/models/"+name+"/validate"] = validatePath(name, value)
	}
	return doc, nil
}

// ComponentRef is the reference of a model under components.schemas.
func ComponentRef(name string) string {
	return "#/components/schemas/" + name
}

func validatePath(name string, value *openapi3.Schema) *openapi3.PathItem {
	ref := openapi3.NewSchemaRef(ComponentRef(name), value)

	mt := openapi3.NewMediaType()
	mt.Schema = ref
	rb := openapi3.NewRequestBody()
	rb.Content = openapi3.Content{"application/json": mt}

	okSchema := openapi3.NewObjectSchema()
	okSchema.Properties["instance"] = ref
	ok := openapi3.NewResponse().WithDescription("sanitized instance").WithJSONSchema(okSchema)

	failed := openapi3.NewResponse().WithDescription("validation failed").
		WithJSONSchema(openapi3.NewObjectSchema().
			WithProperty("errors", openapi3.NewStringSchema()).
			WithProperty("instance", openapi3.NewObjectSchema()).
			WithProperty("fields", openapi3.NewObjectSchema().
				WithAdditionalProperties(openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))))

	return &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "validate" + name,
			Summary:     "Validate a " + name + " payload",
			RequestBody: &openapi3.RequestBodyRef{Value: rb},
			Responses: openapi3.Responses{
				"200": &openapi3.ResponseRef{Value: ok},
				"422": &openapi3.ResponseRef{Value: failed},
			},
		},
	}
}

// Convert maps a compiled document onto an OpenAPI schema object.
//
// A type list containing "null" becomes nullable; other multi-type lists
// become anyOf. Arrays without items get an empty items schema.
func Convert(s *schema.Schema) *openapi3.Schema {
	if s == nil {
		return nil
	}
	out := &openapi3.Schema{
		Title:       s.Title,
		Description: s.Description,
		Pattern:     s.Pattern,
		Required:    append([]string(nil), s.Required...),
		Min:         copyFloat(s.Minimum),
		Max:         copyFloat(s.Maximum),
		MultipleOf:  copyFloat(s.MultipleOf),
		Format:      s.Format,
		UniqueItems: s.UniqueItems,
	}
	if s.ExclusiveMinimum != nil {
		out.Min, out.ExclusiveMin = copyFloat(s.ExclusiveMinimum), true
	}
	if s.ExclusiveMaximum != nil {
		out.Max, out.ExclusiveMax = copyFloat(s.ExclusiveMaximum), true
	}

	var types []string
	for _, t := range s.Type {
		if t == "null" {
			out.Nullable = true
			continue
		}
		types = append(types, t)
	}
	switch len(types) {
	case 0:
	case 1:
		out.Type = types[0]
	default:
		for _, t := range types {
			out.AnyOf = append(out.AnyOf, openapi3.NewSchemaRef("", &openapi3.Schema{Type: t}))
		}
	}

	if s.Properties != nil {
		out.Properties = make(openapi3.Schemas, len(s.Properties))
		for _, p := range s.Properties {
			out.Properties[p.Name] = ref(p.Schema)
		}
	}
	if a := s.AdditionalProperties; a != nil {
		has := a.Allowed
		out.AdditionalProperties = openapi3.AdditionalProperties{Has: &has}
		if a.Schema != nil {
			out.AdditionalProperties = openapi3.AdditionalProperties{Schema: ref(a.Schema)}
		}
	}

	if s.MinProperties != nil {
		out.MinProps = toUint(*s.MinProperties)
	}
	if s.MaxProperties != nil {
		n := toUint(*s.MaxProperties)
		out.MaxProps = &n
	}

	if s.Items != nil {
		out.Items = ref(s.Items)
	} else if out.Type == openapi3.TypeArray {
		out.Items = openapi3.NewSchemaRef("", &openapi3.Schema{})
	}
	if s.MinItems != nil {
		out.MinItems = toUint(*s.MinItems)
	}
	if s.MaxItems != nil {
		n := toUint(*s.MaxItems)
		out.MaxItems = &n
	}
	if s.MinLength != nil {
		out.MinLength = toUint(*s.MinLength)
	}
	if s.MaxLength != nil {
		n := toUint(*s.MaxLength)
		out.MaxLength = &n
	}

	if len(s.Enum) > 0 {
		out.Enum = append([]any(nil), s.Enum...)
	}
	if s.HasConst {
		out.Enum = []any{s.Const}
	}
	if s.HasDefault {
		out.Default = s.Default
	}

	out.AllOf = append(out.AllOf, refs(s.AllOf)...)
	out.AnyOf = append(out.AnyOf, refs(s.AnyOf)...)
	out.OneOf = append(out.OneOf, refs(s.OneOf)...)
	if s.Not != nil {
		out.Not = ref(s.Not)
	}

	ext := map[string]any{}
	if len(s.Transform) > 0 {
		ext["x-transform"] = append([]string(nil), s.Transform...)
	}
	if em := s.ErrorMessage; em != nil {
		ext["x-errorMessage"] = errorMessageValue(em)
	}
	for k, v := range draft07Only(s) {
		ext["x-"+k] = v
	}
	for k, v := range s.Extra {
		if !strings.HasPrefix(k, "x-") {
			k = "x-" + k
		}
		ext[k] = v
	}
	if len(ext) > 0 {
		out.Extensions = ext
	}
	return out
}

// draft07Only renders the keywords OpenAPI 3.0 has no field for. They are
// carried as x- extensions holding their draft-07 form.
func draft07Only(s *schema.Schema) map[string]any {
	partial := &schema.Schema{
		Ref:               s.Ref,
		Definitions:       s.Definitions,
		PatternProperties: s.PatternProperties,
		PropertyNames:     s.PropertyNames,
		Dependencies:      s.Dependencies,
		TupleItems:        s.TupleItems,
		AdditionalItems:   s.AdditionalItems,
		Contains:          s.Contains,
		If:                s.If,
		Then:              s.Then,
		Else:              s.Else,
	}
	doc, err := partial.Document()
	if err != nil {
		return nil
	}
	return doc
}

func errorMessageValue(em *schema.ErrorMessage) any {
	if em.General != "" && len(em.Properties) == 0 {
		return em.General
	}
	props := make(map[string]any, len(em.Properties))
	for _, m := range em.Properties {
		props[m.Field] = m.Text
	}
	return map[string]any{"properties": props}
}

func ref(s *schema.Schema) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("", Convert(s))
}

func refs(ss []*schema.Schema) openapi3.SchemaRefs {
	if len(ss) == 0 {
		return nil
	}
	out := make(openapi3.SchemaRefs, len(ss))
	for i, s := range ss {
		out[i] = ref(s)
	}
	return out
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func toUint(n int) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}
