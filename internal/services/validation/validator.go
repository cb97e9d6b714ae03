package validation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mizutani/meibo/internal/entities"
)

// Violation describes a single failed check against a resolved type
type Violation struct {
	Property string // Property name, or "" for type-level violations
	Message  string
}

// String returns a string representation of the violation
func (v *Violation) String() string {
	if v.Property != "" {
		return fmt.Sprintf("%s: %s", v.Property, v.Message)
	}
	return v.Message
}

// ValidationError is returned when a record fails validation
type ValidationError struct {
	Type       string // Type the record was checked against
	Violations []*Violation
}

// Error joins all violations into a single message
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return fmt.Sprintf("record does not conform to type %s:\n%s", e.Type, strings.Join(msgs, "\n"))
}

// RecordValidator checks record values against a resolved type definition.
// Exclusive constraints are not checked here: they need a repository lookup
// and are enforced by the record service.
type RecordValidator struct {
	engine *CELEngine
}

// NewRecordValidator creates a new RecordValidator
func NewRecordValidator(engine *CELEngine) *RecordValidator {
	return &RecordValidator{engine: engine}
}

// Validate checks values against the resolved type. A nil return means the
// record conforms; a *ValidationError lists every violated declaration.
func (rv *RecordValidator) Validate(resolved *entities.ResolvedType, values map[string]interface{}) error {
	var violations []*Violation

	// Unknown properties
	for key := range values {
		if resolved.GetProperty(key) == nil {
			violations = append(violations, &Violation{
				Property: key,
				Message:  "unknown property",
			})
		}
	}

	// Multiplicity and scalar checks
	for _, prop := range resolved.Properties {
		value, present := values[prop.Name]
		if !present || value == nil {
			if prop.Required {
				violations = append(violations, &Violation{
					Property: prop.Name,
					Message:  "required property is missing",
				})
			}
			continue
		}

		violations = append(violations, rv.checkValue(prop, value)...)
	}

	// Expression constraints, property level first. A constraint attached to
	// an absent property has no subject and does not fire.
	for _, prop := range resolved.Properties {
		if value, present := values[prop.Name]; !present || value == nil {
			continue
		}
		for _, c := range prop.Constraints {
			if c.Kind != entities.ConstraintExpression {
				continue
			}
			ok, err := rv.engine.Evaluate(c.Expression, values)
			if err != nil {
				if isMissingKey(err) {
					continue
				}
				return fmt.Errorf("property %s: %w", prop.Name, err)
			}
			if !ok {
				violations = append(violations, &Violation{
					Property: prop.Name,
					Message:  c.ViolationMessage(),
				})
			}
		}
	}

	for _, c := range resolved.Constraints {
		if c.Kind != entities.ConstraintExpression {
			continue
		}
		ok, err := rv.engine.Evaluate(c.Expression, values)
		if err != nil {
			if isMissingKey(err) {
				continue
			}
			return err
		}
		if !ok {
			violations = append(violations, &Violation{Message: c.ViolationMessage()})
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Type: resolved.Name, Violations: violations}
	}
	return nil
}

// isMissingKey reports whether a CEL evaluation failed because the expression
// referenced a property the record does not carry. Constraints over absent
// properties are skipped rather than violated: multiplicity checks already
// report missing required properties, and optional properties may simply be
// unset.
func isMissingKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such key")
}

// checkValue validates a single property value's shape and scalar type
func (rv *RecordValidator) checkValue(prop *entities.Property, value interface{}) []*Violation {
	list, isList := toList(value)

	if prop.Multi {
		if !isList {
			return []*Violation{{
				Property: prop.Name,
				Message:  "multi property requires a list of values",
			}}
		}
		if prop.Required && len(list) == 0 {
			return []*Violation{{
				Property: prop.Name,
				Message:  "required multi property must have at least one value",
			}}
		}
		var violations []*Violation
		for i, elem := range list {
			if msg := checkScalar(prop.Type, elem); msg != "" {
				violations = append(violations, &Violation{
					Property: prop.Name,
					Message:  fmt.Sprintf("element %d: %s", i, msg),
				})
			}
		}
		return violations
	}

	if isList {
		return []*Violation{{
			Property: prop.Name,
			Message:  "single property cannot hold a list of values",
		}}
	}
	if msg := checkScalar(prop.Type, value); msg != "" {
		return []*Violation{{Property: prop.Name, Message: msg}}
	}
	return nil
}

// toList normalizes list-shaped values. JSON decoding produces
// []interface{}; callers constructing records directly may pass typed slices.
func toList(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]interface{}, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]interface{}, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, true
	case []bool:
		out := make([]interface{}, len(v))
		for i, b := range v {
			out[i] = b
		}
		return out, true
	default:
		return nil, false
	}
}

// checkScalar validates a single scalar value against the declared type.
// Returns "" when the value conforms.
func checkScalar(scalarType string, value interface{}) string {
	switch scalarType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("expected string, got %T", value)
		}
	case "int":
		switch v := value.(type) {
		case int, int32, int64:
			// ok
		case float64:
			// JSON numbers decode to float64; accept integral values only
			if v != math.Trunc(v) {
				return fmt.Sprintf("expected int, got fractional number %v", v)
			}
		default:
			return fmt.Sprintf("expected int, got %T", value)
		}
	case "float":
		switch value.(type) {
		case float32, float64, int, int32, int64:
			// ok
		default:
			return fmt.Sprintf("expected float, got %T", value)
		}
	case "bool":
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("expected bool, got %T", value)
		}
	case "datetime":
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("expected RFC 3339 datetime string, got %T", value)
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return fmt.Sprintf("invalid datetime: %v", err)
		}
	default:
		return fmt.Sprintf("unknown scalar type: %s", scalarType)
	}
	return ""
}
