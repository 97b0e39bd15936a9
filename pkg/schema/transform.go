package schema

// wrapTransforms embeds string transforms ahead of the structural checks.
//
// A string fragment becomes {allOf: [{transform}, fragment]}; an array of
// strings gets its items wrapped the same way. Any other fragment is
// returned unchanged: transforms declared on it are inert. Default and
// description stay on the outer fragment where defaults are looked up.
func wrapTransforms(frag *Schema, transforms []string) *Schema {
	switch {
	case frag.Type.Is("string"):
		wrapper := &Schema{
			Description: frag.Description,
			Default:     frag.Default,
			HasDefault:  frag.HasDefault,
		}
		frag.Description = ""
		frag.Default, frag.HasDefault = nil, false
		wrapper.AllOf = []*Schema{{Transform: transforms}, frag}
		return wrapper
	case frag.Type.Is("array") && frag.Items != nil && frag.Items.Type.Is("string"):
		frag.Items = &Schema{AllOf: []*Schema{{Transform: transforms}, frag.Items}}
		return frag
	}
	return frag
}
