package entities

import (
	"fmt"
	"time"
)

// Schema represents a complete schema version for a tenant
type Schema struct {
	TenantID  string            // Tenant identifier
	Version   string            // Schema version (UUID)
	DSL       string            // Original DSL text
	Types     []*TypeDefinition // Type definitions
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SchemaVersion represents a lightweight schema version for listing
type SchemaVersion struct {
	Version   string    // Schema version (UUID)
	CreatedAt time.Time // When the version was created
}

// ResolvedType is a concrete type flattened over its inheritance chain.
// Properties and constraints from all bases are folded in, so records can
// be checked against it directly.
type ResolvedType struct {
	Name        string
	Properties  []*Property
	Constraints []*Constraint
}

// GetProperty returns the resolved property by name
func (r *ResolvedType) GetProperty(name string) *Property {
	for _, p := range r.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// GetType returns the type definition by name
func (s *Schema) GetType(name string) *TypeDefinition {
	for _, t := range s.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Ancestors returns the names of all types the given type inherits from,
// nearest bases first. Returns an error on unknown bases or cycles.
func (s *Schema) Ancestors(name string) ([]string, error) {
	var out []string
	seen := map[string]bool{name: true}

	var walk func(t *TypeDefinition) error
	walk = func(t *TypeDefinition) error {
		for _, baseName := range t.Extends {
			base := s.GetType(baseName)
			if base == nil {
				return fmt.Errorf("type %s extends undefined type: %s", t.Name, baseName)
			}
			if seen[baseName] {
				continue
			}
			seen[baseName] = true
			out = append(out, baseName)
			if err := walk(base); err != nil {
				return err
			}
		}
		return nil
	}

	t := s.GetType(name)
	if t == nil {
		return nil, fmt.Errorf("type not found: %s", name)
	}
	if err := walk(t); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveType flattens a type over its bases. Own declarations win over
// inherited ones; expression constraints on the same property collected from
// multiple bases are merged by conjunction.
func (s *Schema) ResolveType(name string) (*ResolvedType, error) {
	t := s.GetType(name)
	if t == nil {
		return nil, fmt.Errorf("type not found: %s", name)
	}

	ancestors, err := s.Ancestors(name)
	if err != nil {
		return nil, err
	}

	resolved := &ResolvedType{Name: name}

	// Walk from the type itself outward so the nearest declaration wins.
	chain := append([]string{name}, ancestors...)
	for _, typeName := range chain {
		def := s.GetType(typeName)
		for _, prop := range def.Properties {
			existing := resolved.GetProperty(prop.Name)
			if existing == nil {
				resolved.Properties = append(resolved.Properties, copyProperty(prop))
				continue
			}
			mergeInheritedProperty(existing, prop)
		}
		for _, c := range def.Constraints {
			if !hasExpressionConstraint(resolved.Constraints, c.Expression) {
				resolved.Constraints = append(resolved.Constraints, &Constraint{
					Kind:       c.Kind,
					Expression: c.Expression,
					ErrMessage: c.ErrMessage,
				})
			}
		}
	}

	return resolved, nil
}

// ConcreteDescendants returns the names of all concrete types that are the
// given type or inherit from it. Used to scope exclusive value lookups.
func (s *Schema) ConcreteDescendants(name string) []string {
	var out []string
	for _, t := range s.Types {
		if t.Abstract {
			continue
		}
		if t.Name == name {
			out = append(out, t.Name)
			continue
		}
		ancestors, err := s.Ancestors(t.Name)
		if err != nil {
			continue
		}
		for _, a := range ancestors {
			if a == name {
				out = append(out, t.Name)
				break
			}
		}
	}
	return out
}

// copyProperty makes a shallow copy with its own constraint slice
func copyProperty(p *Property) *Property {
	cp := &Property{
		Name:     p.Name,
		Type:     p.Type,
		Required: p.Required,
		Multi:    p.Multi,
	}
	for _, c := range p.Constraints {
		cp.Constraints = append(cp.Constraints, &Constraint{
			Kind:       c.Kind,
			Expression: c.Expression,
			ErrMessage: c.ErrMessage,
		})
	}
	return cp
}

// mergeInheritedProperty folds an inherited declaration into an already
// resolved property. The resolved side keeps its scalar type and
// multiplicity; constraints from the base are merged in.
func mergeInheritedProperty(resolved *Property, inherited *Property) {
	// required may only be narrowed: a base requiring the property keeps
	// it required in every subtype
	if inherited.Required {
		resolved.Required = true
	}

	for _, c := range inherited.Constraints {
		switch c.Kind {
		case ConstraintExclusive:
			if !resolved.Exclusive() {
				resolved.Constraints = append(resolved.Constraints, &Constraint{Kind: ConstraintExclusive, ErrMessage: c.ErrMessage})
			}
		case ConstraintExpression:
			existing := resolved.GetConstraint(ConstraintExpression)
			if existing == nil {
				resolved.Constraints = append(resolved.Constraints, &Constraint{
					Kind:       ConstraintExpression,
					Expression: c.Expression,
					ErrMessage: c.ErrMessage,
				})
			} else {
				existing.Expression = MergeExpressions(existing.Expression, c.Expression)
			}
		}
	}
}

// hasExpressionConstraint reports whether the list already carries an
// expression constraint with the same expression text
func hasExpressionConstraint(list []*Constraint, expression string) bool {
	for _, c := range list {
		if c.Kind == ConstraintExpression && c.Expression == expression {
			return true
		}
	}
	return false
}
