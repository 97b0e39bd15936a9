package rules

import (
	"fmt"
	"sync"

	"github.com/roach88/molder/pkg/jsonvalue"
)

// AnyModel is the built-in model accepting any object unchanged.
const AnyModel = "Any"

// FieldRules is the ordered rule map of one field.
// Kinds keep the position of their first declaration; later writes only
// replace the value.
type FieldRules struct {
	Name   string
	order  []Kind
	values map[Kind]any
}

func newFieldRules(name string) *FieldRules {
	return &FieldRules{Name: name, values: make(map[Kind]any)}
}

// Get returns the value declared for kind.
func (f *FieldRules) Get(kind Kind) (any, bool) {
	v, ok := f.values[kind]
	return v, ok
}

// Kinds returns declared kinds in declaration order.
func (f *FieldRules) Kinds() []Kind {
	out := make([]Kind, len(f.order))
	copy(out, f.order)
	return out
}

func (f *FieldRules) set(kind Kind, value any) {
	if _, ok := f.values[kind]; !ok {
		f.order = append(f.order, kind)
	}
	f.values[kind] = value
}

// model holds everything registered for one model name.
type model struct {
	name         string
	declared     bool
	parent       string
	description  string
	customSchema map[string]any
	fieldOrder   []string
	fields       map[string]*FieldRules
}

func (m *model) field(name string) *FieldRules {
	fr, ok := m.fields[name]
	if !ok {
		fr = newFieldRules(name)
		m.fields[name] = fr
		m.fieldOrder = append(m.fieldOrder, name)
	}
	return fr
}

// Registry is the process-wide side table from model name to rule table.
//
// Models are declared during a registration phase, then the registry is
// sealed and read concurrently. Mutating a sealed registry panics.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*model
	order  []string
	sealed bool
}

// NewRegistry returns a registry holding the built-in Any model.
func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]*model)}
	r.Model(AnyModel).CustomSchema(map[string]any{
		"type":                 "object",
		"additionalProperties": true,
	})
	return r
}

// lookup returns the model entry, creating an undeclared placeholder.
// Caller must hold the write lock.
func (r *Registry) lookup(name string) *model {
	m, ok := r.models[name]
	if !ok {
		m = &model{name: name, fields: make(map[string]*FieldRules)}
		r.models[name] = m
	}
	return m
}

func (r *Registry) declare(name string) *model {
	m := r.lookup(name)
	if !m.declared {
		m.declared = true
		r.order = append(r.order, name)
	}
	return m
}

func (r *Registry) checkMutable(name string) {
	if r.sealed {
		panic(fmt.Errorf("rules: registry is sealed, cannot modify model %q", name))
	}
}

// AddRule appends or overwrites kind for field in model's rule table.
// KindType is first-write-wins.
//
// An empty field stores model-level metadata: KindDescription sets the model
// description and KindCustomSchema installs a schema override, which empties
// the rule table. Field rules added to a model carrying an override are
// dropped.
func (r *Registry) AddRule(modelName, field string, kind Kind, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkMutable(modelName)

	value = normalizeRuleValue(modelName, field, kind, value)
	m := r.declare(modelName)

	if field == "" {
		switch kind {
		case KindDescription:
			s, _ := value.(string)
			m.description = s
		case KindCustomSchema:
			doc, ok := value.(map[string]any)
			if !ok {
				panic(Anomaly(modelName, "", kind, "schema override must be an object, got %T", value))
			}
			m.customSchema = doc
			m.fieldOrder = nil
			m.fields = make(map[string]*FieldRules)
		default:
			panic(Anomaly(modelName, "", kind, "rule kind needs a field"))
		}
		return
	}

	if m.customSchema != nil {
		return
	}
	fr := m.field(field)
	if _, ok := fr.Get(KindType); ok && kind == KindType {
		return
	}
	fr.set(kind, value)
}

// DeclareField back-fills the TYPE rule of field with its declared type.
// An existing TYPE entry is never overwritten.
func (r *Registry) DeclareField(modelName, field string, t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkMutable(modelName)

	m := r.declare(modelName)
	if m.customSchema != nil {
		return
	}
	fr := m.field(field)
	if _, ok := fr.Get(KindType); ok {
		return
	}
	fr.set(KindType, t)
}

// SetParent links model to the parent whose rules it extends.
// Closing an extends cycle panics with a *CompilationAnomaly.
func (r *Registry) SetParent(modelName, parent string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkMutable(modelName)

	if parent == modelName {
		panic(Anomaly(modelName, "", "", "model cannot extend its own rules"))
	}
	for cur := parent; cur != ""; {
		p, ok := r.models[cur]
		if !ok {
			break
		}
		if p.parent == modelName {
			panic(Anomaly(modelName, "", "", "extends cycle through %s", parent))
		}
		cur = p.parent
	}

	m := r.declare(modelName)
	m.parent = parent
	r.lookup(parent)
}

// Seal ends the registration phase.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Has reports whether model was declared.
func (r *Registry) Has(modelName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[modelName]
	return ok && m.declared
}

// Models returns declared model names in declaration order.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Description returns the model-level description.
func (r *Registry) Description(modelName string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.models[modelName]; ok {
		return m.description
	}
	return ""
}

// CustomSchema returns a deep copy of the model's schema override.
func (r *Registry) CustomSchema(modelName string) (map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[modelName]
	if !ok || m.customSchema == nil {
		return nil, false
	}
	return jsonvalue.DeepCopy(m.customSchema).(map[string]any), true
}

// Parent returns the extends-rules parent of model.
func (r *Registry) Parent(modelName string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.models[modelName]; ok {
		return m.parent
	}
	return ""
}

// HasRules reports whether references to model compile to a nested schema:
// it carries an override or some table in its chain has fields.
func (r *Registry) HasRules(modelName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[modelName]
	if !ok {
		return false
	}
	if m.customSchema != nil {
		return true
	}
	for _, name := range r.chainLocked(modelName) {
		if len(r.models[name].fields) > 0 {
			return true
		}
	}
	return false
}

// OwnFields returns the model's own rule table in declaration order.
func (r *Registry) OwnFields(modelName string) []*FieldRules {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[modelName]
	if !ok {
		return nil
	}
	out := make([]*FieldRules, 0, len(m.fieldOrder))
	for _, name := range m.fieldOrder {
		out = append(out, m.fields[name])
	}
	return out
}

func normalizeRuleValue(modelName, field string, kind Kind, value any) any {
	if kind.typeValued() {
		t, ok := value.(Type)
		if !ok || t.IsZero() {
			panic(Anomaly(modelName, field, kind, "expected a type, got %v", value))
		}
		return t
	}
	n, err := jsonvalue.Normalize(value)
	if err != nil {
		panic(Anomaly(modelName, field, kind, "value is not JSON compatible: %v", err))
	}
	switch kind {
	case KindMin, KindMax:
		if _, ok := n.(float64); !ok {
			panic(Anomaly(modelName, field, kind, "expected a number, got %v", value))
		}
	case KindPattern, KindCustomError:
		if _, ok := n.(string); !ok {
			panic(Anomaly(modelName, field, kind, "expected a string, got %v", value))
		}
	case KindEnum:
		if _, ok := n.([]any); !ok {
			n = []any{n}
		}
	}
	return n
}
