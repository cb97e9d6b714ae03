package entities

import "fmt"

// Constraint kinds
const (
	// ConstraintExclusive requires the property value to be unique across
	// all records of the declaring type and its subtypes
	ConstraintExclusive = "exclusive"

	// ConstraintExpression is a boolean CEL expression over "this"
	ConstraintExpression = "expression"
)

// Constraint represents a constraint declaration in the schema
// Example: "constraint exclusive" or "constraint expression (size(this.name) > 0)"
type Constraint struct {
	Kind       string // "exclusive" or "expression"
	Expression string // CEL expression (expression constraints only)
	ErrMessage string // Optional message reported when the constraint is violated
}

// String returns the canonical declaration form of the constraint
func (c *Constraint) String() string {
	if c.Kind == ConstraintExpression {
		return fmt.Sprintf("constraint expression (%s)", c.Expression)
	}
	return fmt.Sprintf("constraint %s", c.Kind)
}

// Validate checks if the constraint declaration is well formed
func (c *Constraint) Validate() error {
	switch c.Kind {
	case ConstraintExclusive:
		if c.Expression != "" {
			return fmt.Errorf("exclusive constraint must not carry an expression")
		}
	case ConstraintExpression:
		if c.Expression == "" {
			return fmt.Errorf("expression constraint requires a non-empty expression")
		}
	default:
		return fmt.Errorf("unknown constraint kind: %s", c.Kind)
	}
	return nil
}

// ViolationMessage returns the message to report when the constraint fails
func (c *Constraint) ViolationMessage() string {
	if c.ErrMessage != "" {
		return c.ErrMessage
	}
	if c.Kind == ConstraintExclusive {
		return "value must be unique"
	}
	return fmt.Sprintf("constraint violated: %s", c.Expression)
}

// MergeExpressions combines two constraint expressions inherited from
// different bases into a single conjunction. Either side may be empty.
func MergeExpressions(ours, theirs string) string {
	if ours != "" && theirs != "" && ours != theirs {
		return fmt.Sprintf("(%s) && (%s)", ours, theirs)
	}
	if ours == "" {
		return theirs
	}
	return ours
}
