package rules

// Chain returns [model, parent, grandparent, ...] following extends-rules
// links. Unknown models yield a single-element chain.
func (r *Registry) Chain(modelName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chainLocked(modelName)
}

func (r *Registry) chainLocked(modelName string) []string {
	chain := []string{modelName}
	seen := map[string]bool{modelName: true}
	cur := modelName
	for {
		m, ok := r.models[cur]
		if !ok || m.parent == "" {
			return chain
		}
		if seen[m.parent] {
			// SetParent rejects cycles; this only guards against misuse.
			panic(Anomaly(modelName, "", "", "extends cycle through %s", m.parent))
		}
		seen[m.parent] = true
		chain = append(chain, m.parent)
		cur = m.parent
	}
}

// RuleValue reads kind for field through the chain: the nearest definer
// wins. KindRequired is true when any table in the chain marks the field.
func (r *Registry) RuleValue(modelName, field string, kind Kind) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if field == "" {
		m, ok := r.models[modelName]
		if !ok {
			return nil, false
		}
		switch kind {
		case KindDescription:
			return m.description, m.description != ""
		case KindCustomSchema:
			return m.customSchema, m.customSchema != nil
		}
		return nil, false
	}

	for _, name := range r.chainLocked(modelName) {
		m, ok := r.models[name]
		if !ok {
			continue
		}
		fr, ok := m.fields[field]
		if !ok {
			continue
		}
		if v, ok := fr.Get(kind); ok {
			if kind == KindRequired && v != true {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

// MergedField is one field of a model with its rules merged across the
// chain.
type MergedField struct {
	Name     string
	Required bool
	Kinds    []Kind
	Values   map[Kind]any
}

// Get returns the merged value of kind.
func (f MergedField) Get(kind Kind) (any, bool) {
	v, ok := f.Values[kind]
	return v, ok
}

// Type returns the resolved TYPE of the field.
func (f MergedField) Type() (Type, bool) {
	v, ok := f.Values[KindType]
	if !ok {
		return Type{}, false
	}
	t, ok := v.(Type)
	return t, ok
}

// Resolve merges the rule tables of model's chain.
//
// Fields come in chain order: the model's own fields first, then each
// ancestor's new fields. Per field, kinds merge from the farthest ancestor
// to the model itself so the nearest definer wins while kinds keep the
// position of their first declaration.
func (r *Registry) Resolve(modelName string) []MergedField {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := r.chainLocked(modelName)

	var names []string
	seen := map[string]bool{}
	for _, name := range chain {
		m, ok := r.models[name]
		if !ok {
			continue
		}
		for _, f := range m.fieldOrder {
			if !seen[f] {
				seen[f] = true
				names = append(names, f)
			}
		}
	}

	out := make([]MergedField, 0, len(names))
	for _, fieldName := range names {
		mf := MergedField{Name: fieldName, Values: make(map[Kind]any)}
		for i := len(chain) - 1; i >= 0; i-- {
			m, ok := r.models[chain[i]]
			if !ok {
				continue
			}
			fr, ok := m.fields[fieldName]
			if !ok {
				continue
			}
			for _, kind := range fr.order {
				if _, exists := mf.Values[kind]; !exists {
					mf.Kinds = append(mf.Kinds, kind)
				}
				mf.Values[kind] = fr.values[kind]
				if kind == KindRequired && fr.values[kind] == true {
					mf.Required = true
				}
			}
		}
		out = append(out, mf)
	}
	return out
}
