package rules

import (
	"fmt"

	"github.com/roach88/molder/pkg/jsonvalue"
)

// CompilerVersion is hashed into every fingerprint. Bump it whenever the
// same declarations compile to a different document, so persisted schemas
// from an older compiler stop matching.
const CompilerVersion = 2

// Fingerprint identifies the compiled schema of model by content: the hash
// covers its chain and every model it references, transitively. Two
// registries declaring the same rules yield the same fingerprint.
func (r *Registry) Fingerprint(modelName string) (string, error) {
	return r.fingerprint(modelName, CompilerVersion)
}

func (r *Registry) fingerprint(modelName string, compiler int) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := map[string]any{}
	queue := []string{modelName}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, done := models[name]; done {
			continue
		}
		m, ok := r.models[name]
		if !ok {
			models[name] = nil
			continue
		}
		models[name] = describeModel(m)
		for _, ref := range r.referencesLocked(name) {
			queue = append(queue, ref.Target)
		}
	}

	fp, err := jsonvalue.Hash(jsonvalue.DomainModel, map[string]any{
		"compiler": compiler,
		"root":     modelName,
		"models":   models,
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", modelName, err)
	}
	return fp, nil
}

func describeModel(m *model) map[string]any {
	fields := make([]any, 0, len(m.fieldOrder))
	for _, name := range m.fieldOrder {
		fr := m.fields[name]
		declared := make([]any, 0, len(fr.order))
		for _, kind := range fr.order {
			declared = append(declared, []any{string(kind), fr.values[kind]})
		}
		fields = append(fields, map[string]any{"name": name, "rules": declared})
	}

	desc := map[string]any{
		"fields":      fields,
		"description": m.description,
		"parent":      m.parent,
	}
	if m.customSchema != nil {
		desc["custom_schema"] = m.customSchema
	}
	return desc
}
