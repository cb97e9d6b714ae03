package entities

// TypeDefinition represents an entity type definition in the schema
// Example: "abstract type NamedObject { required property name: string }"
type TypeDefinition struct {
	Name        string        // Type name (e.g., "NamedObject", "Recipe")
	Abstract    bool          // Abstract types cannot have records
	Extends     []string      // Names of the types this type extends
	Properties  []*Property   // Property declarations
	Constraints []*Constraint // Type-level constraints (expression constraints over "this")
}

// GetProperty returns the property declaration by name
func (t *TypeDefinition) GetProperty(name string) *Property {
	for _, p := range t.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ExtendsType reports whether the type directly extends the given base
func (t *TypeDefinition) ExtendsType(name string) bool {
	for _, base := range t.Extends {
		if base == name {
			return true
		}
	}
	return false
}
