package parser

import (
	"fmt"
	"strings"

	"github.com/mizutani/meibo/internal/entities"
)

// Validator validates the parsed schema AST
type Validator struct {
	schema *SchemaAST
	errors []string
	types  map[string]*TypeAST
}

// NewValidator creates a new Validator
func NewValidator(schema *SchemaAST) *Validator {
	types := make(map[string]*TypeAST)
	for _, t := range schema.Types {
		types[t.Name] = t
	}
	return &Validator{
		schema: schema,
		errors: []string{},
		types:  types,
	}
}

// Validate validates the schema and returns error if invalid
func (v *Validator) Validate() error {
	v.validateUniqueTypeNames()
	v.validateExtends()
	v.validateInheritanceCycles()
	v.validateTypeDefinitions()
	v.validateInheritedRedefinitions()

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

// validateUniqueTypeNames checks for duplicate type names
func (v *Validator) validateUniqueTypeNames() {
	seen := make(map[string]bool)
	for _, t := range v.schema.Types {
		if seen[t.Name] {
			v.errors = append(v.errors, fmt.Sprintf("duplicate type name: %s", t.Name))
		}
		seen[t.Name] = true
	}
}

// validateExtends checks that extending clauses reference defined types
func (v *Validator) validateExtends() {
	for _, t := range v.schema.Types {
		seen := make(map[string]bool)
		for _, base := range t.Extends {
			if base == t.Name {
				v.errors = append(v.errors, fmt.Sprintf("type %s cannot extend itself", t.Name))
				continue
			}
			if seen[base] {
				v.errors = append(v.errors, fmt.Sprintf("type %s extends %s more than once", t.Name, base))
			}
			seen[base] = true
			if _, exists := v.types[base]; !exists {
				v.errors = append(v.errors, fmt.Sprintf("type %s extends undefined type: %s", t.Name, base))
			}
		}
	}
}

// validateInheritanceCycles checks that the inheritance graph is acyclic
func (v *Validator) validateInheritanceCycles() {
	for _, t := range v.schema.Types {
		visited := map[string]bool{t.Name: true}
		path := []string{t.Name}
		v.checkInheritanceCycle(t, visited, path)
	}
}

// checkInheritanceCycle walks the extends chain looking for a cycle
func (v *Validator) checkInheritanceCycle(t *TypeAST, visited map[string]bool, path []string) {
	for _, baseName := range t.Extends {
		base, exists := v.types[baseName]
		if !exists {
			continue // reported by validateExtends
		}
		if visited[baseName] {
			cycle := append(path, baseName)
			v.errors = append(v.errors, fmt.Sprintf("circular inheritance: %s", strings.Join(cycle, " -> ")))
			return
		}
		visited[baseName] = true
		newPath := append(path, baseName)
		v.checkInheritanceCycle(base, visited, newPath)
		delete(visited, baseName)
	}
}

// validateTypeDefinitions validates each type's internal structure
func (v *Validator) validateTypeDefinitions() {
	for _, t := range v.schema.Types {
		v.validatePropertyUniqueness(t)
		v.validatePropertyTypes(t)
		v.validateConstraints(t)
	}
}

// validatePropertyUniqueness checks for duplicate property names within a type
func (v *Validator) validatePropertyUniqueness(t *TypeAST) {
	seen := make(map[string]bool)
	for _, p := range t.Properties {
		if seen[p.Name] {
			v.errors = append(v.errors, fmt.Sprintf("type %s: duplicate property name: %s", t.Name, p.Name))
		}
		seen[p.Name] = true
	}
}

// validatePropertyTypes validates property scalar type declarations
func (v *Validator) validatePropertyTypes(t *TypeAST) {
	for _, p := range t.Properties {
		if !entities.IsScalarType(p.Type) {
			v.errors = append(v.errors, fmt.Sprintf("type %s: invalid property type: %s (property: %s)", t.Name, p.Type, p.Name))
		}
	}
}

// validateConstraints validates constraint declarations on the type and its properties
func (v *Validator) validateConstraints(t *TypeAST) {
	for _, c := range t.Constraints {
		if c.Kind != "expression" {
			v.errors = append(v.errors, fmt.Sprintf("type %s: only expression constraints are allowed at type level, got: %s", t.Name, c.Kind))
			continue
		}
		if c.Expression == "" {
			v.errors = append(v.errors, fmt.Sprintf("type %s: empty constraint expression", t.Name))
		}
	}

	for _, p := range t.Properties {
		exclusiveSeen := false
		for _, c := range p.Constraints {
			switch c.Kind {
			case "exclusive":
				if exclusiveSeen {
					v.errors = append(v.errors, fmt.Sprintf("type %s: property %s declares exclusive more than once", t.Name, p.Name))
				}
				exclusiveSeen = true
			case "expression":
				if c.Expression == "" {
					v.errors = append(v.errors, fmt.Sprintf("type %s: property %s has empty constraint expression", t.Name, p.Name))
				}
			default:
				v.errors = append(v.errors, fmt.Sprintf("type %s: property %s has unknown constraint kind: %s", t.Name, p.Name, c.Kind))
			}
		}
	}
}

// validateInheritedRedefinitions checks that a property redefined in a subtype
// stays compatible with the base declaration: same scalar type, same
// multiplicity shape, and required may only be added, never dropped.
func (v *Validator) validateInheritedRedefinitions() {
	for _, t := range v.schema.Types {
		for _, p := range t.Properties {
			for _, baseName := range v.ancestorNames(t) {
				base := v.types[baseName]
				inherited := findProperty(base, p.Name)
				if inherited == nil {
					continue
				}
				if inherited.Type != p.Type {
					v.errors = append(v.errors, fmt.Sprintf("type %s: property %s redefines inherited type %s as %s", t.Name, p.Name, inherited.Type, p.Type))
				}
				if inherited.Multi != p.Multi {
					v.errors = append(v.errors, fmt.Sprintf("type %s: property %s changes multiplicity of inherited declaration", t.Name, p.Name))
				}
				if inherited.Required && !p.Required {
					v.errors = append(v.errors, fmt.Sprintf("type %s: property %s cannot drop required from inherited declaration", t.Name, p.Name))
				}
			}
		}
	}
}

// ancestorNames returns all (transitive) base type names, ignoring
// unresolved bases and cycles; those are reported elsewhere
func (v *Validator) ancestorNames(t *TypeAST) []string {
	var out []string
	seen := map[string]bool{t.Name: true}

	var walk func(t *TypeAST)
	walk = func(t *TypeAST) {
		for _, baseName := range t.Extends {
			if seen[baseName] {
				continue
			}
			seen[baseName] = true
			base, exists := v.types[baseName]
			if !exists {
				continue
			}
			out = append(out, baseName)
			walk(base)
		}
	}
	walk(t)
	return out
}

// findProperty returns the property declaration by name, or nil
func findProperty(t *TypeAST, name string) *PropertyAST {
	for _, p := range t.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}
