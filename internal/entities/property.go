package entities

import "fmt"

// Valid scalar types for property declarations
var scalarTypes = map[string]bool{
	"string":   true,
	"int":      true,
	"float":    true,
	"bool":     true,
	"datetime": true,
}

// IsScalarType reports whether name is a known scalar type
func IsScalarType(name string) bool {
	return scalarTypes[name]
}

// Property represents a property declaration in a type definition
// Example: "required property name: string" or "multi property ingredients: string"
type Property struct {
	Name        string        // Property name (e.g., "name", "description", "ingredients")
	Type        string        // Scalar type (e.g., "string", "int", "datetime")
	Required    bool          // At least one value must be present
	Multi       bool          // Property holds a list of values instead of a single value
	Constraints []*Constraint // Constraints attached to this property
}

// String returns the canonical declaration form of the property
// Format: [required] [multi] property name: type
func (p *Property) String() string {
	prefix := ""
	if p.Required {
		prefix += "required "
	}
	if p.Multi {
		prefix += "multi "
	}
	return fmt.Sprintf("%sproperty %s: %s", prefix, p.Name, p.Type)
}

// GetConstraint returns the first constraint of the given kind, or nil
func (p *Property) GetConstraint(kind string) *Constraint {
	for _, c := range p.Constraints {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// Exclusive reports whether the property carries an exclusive constraint
func (p *Property) Exclusive() bool {
	return p.GetConstraint(ConstraintExclusive) != nil
}
