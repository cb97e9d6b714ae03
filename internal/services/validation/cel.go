package validation

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// CELEngine evaluates constraint expressions declared in the schema.
// Expressions see the record being validated as "this".
type CELEngine struct {
	env *cel.Env
}

// NewCELEngine creates a new CEL engine with the "this" declaration
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("this", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &CELEngine{
		env: env,
	}, nil
}

// Evaluate evaluates a constraint expression against the record values
func (e *CELEngine) Evaluate(expression string, values map[string]interface{}) (bool, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("failed to compile constraint expression: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("failed to create CEL program: %w", err)
	}

	if values == nil {
		values = map[string]interface{}{}
	}

	result, _, err := program.Eval(map[string]interface{}{
		"this": values,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate constraint expression: %w", err)
	}

	boolResult, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("constraint expression did not evaluate to boolean, got: %T", result.Value())
	}

	return boolResult, nil
}

// ValidateExpression validates a constraint expression without evaluating it
func (e *CELEngine) ValidateExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("invalid constraint expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("constraint expression must return boolean, got: %s", ast.OutputType())
	}

	return nil
}
