package parser

// SchemaAST represents the parsed schema AST
type SchemaAST struct {
	Types []*TypeAST
}

// TypeAST represents a type definition in the AST
// Example: "abstract type NamedObject { ... }" or "type Recipe extending NamedObject { ... }"
type TypeAST struct {
	Name        string
	Abstract    bool
	Extends     []string // Base type names, in declaration order
	Properties  []*PropertyAST
	Constraints []*ConstraintAST // Type-level constraints
}

// PropertyAST represents a property declaration in the AST
// Example: "required property name: string" or "multi property ingredients: string"
type PropertyAST struct {
	Name        string
	Type        string // Scalar type name (e.g., "string", "int", "datetime")
	Required    bool
	Multi       bool
	Constraints []*ConstraintAST
}

// ConstraintAST represents a constraint declaration in the AST
// Example: "constraint exclusive" or "constraint expression (size(this.name) > 0)"
type ConstraintAST struct {
	Kind       string // "exclusive" or "expression"
	Expression string // CEL expression (expression constraints only)
	ErrMessage string // Optional message from an errmessage block
}
