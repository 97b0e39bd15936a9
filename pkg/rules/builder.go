package rules

// ModelBuilder declares one model on a registry.
//
//	reg.Model("Account").
//		Describe("An account").
//		ExtendRules("Base").
//		Field("amount", rules.Number, rules.Max(11), rules.Default(2))
type ModelBuilder struct {
	reg  *Registry
	name string
}

// Model declares name (if needed) and returns its builder.
func (r *Registry) Model(name string) *ModelBuilder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkMutable(name)
	r.declare(name)
	return &ModelBuilder{reg: r, name: name}
}

func (b *ModelBuilder) Name() string { return b.name }

func (b *ModelBuilder) Describe(description string) *ModelBuilder {
	b.reg.AddRule(b.name, "", KindDescription, description)
	return b
}

// ExtendRules merges parent's rule chain into this model.
func (b *ModelBuilder) ExtendRules(parent string) *ModelBuilder {
	b.reg.SetParent(b.name, parent)
	return b
}

// Field declares a field of type t. The type is recorded even without
// rules, so a bare Field call behaves like a plain typed property.
func (b *ModelBuilder) Field(name string, t Type, rules ...Rule) *ModelBuilder {
	b.reg.DeclareField(b.name, name, t)
	for _, rule := range rules {
		b.reg.AddRule(b.name, name, rule.Kind, rule.Value)
	}
	return b
}

// CustomSchema replaces rule-based compilation by doc.
func (b *ModelBuilder) CustomSchema(doc map[string]any) *ModelBuilder {
	b.reg.AddRule(b.name, "", KindCustomSchema, doc)
	return b
}
