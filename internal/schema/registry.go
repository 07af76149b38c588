package schema

import "fmt"

// Registry holds every entity of the application.
type Registry struct {
	entities []*Entity
	byTable  map[string]*Entity
}

// NewRegistry builds a registry and checks that every foreign key points at a
// registered table.
func NewRegistry(entities ...*Entity) (*Registry, error) {
	r := &Registry{byTable: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		if _, dup := r.byTable[e.Table]; dup {
			return nil, fmt.Errorf("schema: table %q registered twice", e.Table)
		}
		r.byTable[e.Table] = e
		r.entities = append(r.entities, e)
	}
	for _, e := range entities {
		for _, f := range e.ForeignKeys() {
			if _, ok := r.byTable[f.References]; !ok {
				return nil, fmt.Errorf("schema: %s.%s references unknown table %q", e.Table, f.Name, f.References)
			}
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry for static declarations.
func MustRegistry(entities ...*Entity) *Registry {
	r, err := NewRegistry(entities...)
	if err != nil {
		panic(err)
	}
	return r
}

// Entities returns the entities in registration order.
func (r *Registry) Entities() []*Entity {
	return r.entities
}

// Lookup returns the entity stored in table.
func (r *Registry) Lookup(table string) (*Entity, bool) {
	e, ok := r.byTable[table]
	return e, ok
}

// Dependents returns the required foreign keys pointing at e.
func (r *Registry) Dependents(e *Entity) []Dependent {
	var out []Dependent
	for _, other := range r.entities {
		for _, f := range other.ForeignKeys() {
			if f.References == e.Table && f.Required {
				out = append(out, Dependent{Entity: other, Field: f})
			}
		}
	}
	return out
}
