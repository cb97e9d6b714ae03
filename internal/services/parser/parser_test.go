package parser

import (
	"strings"
	"testing"
)

func parse(t *testing.T, input string) *SchemaAST {
	t.Helper()
	p := NewParser(NewLexer(input))
	ast, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return ast
}

func TestParser_AbstractType(t *testing.T) {
	ast := parse(t, `abstract type NamedObject {
  required property name: string {
    constraint exclusive
  }
}`)

	if len(ast.Types) != 1 {
		t.Fatalf("Parse() types = %d, want 1", len(ast.Types))
	}

	typeDef := ast.Types[0]
	if typeDef.Name != "NamedObject" {
		t.Errorf("type name = %v, want NamedObject", typeDef.Name)
	}
	if !typeDef.Abstract {
		t.Error("type should be abstract")
	}
	if len(typeDef.Properties) != 1 {
		t.Fatalf("properties = %d, want 1", len(typeDef.Properties))
	}

	name := typeDef.Properties[0]
	if name.Name != "name" || name.Type != "string" {
		t.Errorf("property = %s: %s, want name: string", name.Name, name.Type)
	}
	if !name.Required {
		t.Error("name property should be required")
	}
	if name.Multi {
		t.Error("name property should not be multi")
	}
	if len(name.Constraints) != 1 || name.Constraints[0].Kind != "exclusive" {
		t.Errorf("name constraints = %+v, want one exclusive", name.Constraints)
	}
}

func TestParser_ExtendingType(t *testing.T) {
	ast := parse(t, `abstract type NamedObject {
  required property name: string
}

type Recipe extending NamedObject {
  property description: string
  multi property ingredients: string
}`)

	if len(ast.Types) != 2 {
		t.Fatalf("Parse() types = %d, want 2", len(ast.Types))
	}

	recipe := ast.Types[1]
	if recipe.Name != "Recipe" {
		t.Errorf("type name = %v, want Recipe", recipe.Name)
	}
	if recipe.Abstract {
		t.Error("Recipe should not be abstract")
	}
	if len(recipe.Extends) != 1 || recipe.Extends[0] != "NamedObject" {
		t.Errorf("extends = %v, want [NamedObject]", recipe.Extends)
	}

	if len(recipe.Properties) != 2 {
		t.Fatalf("properties = %d, want 2", len(recipe.Properties))
	}
	if recipe.Properties[0].Required || recipe.Properties[0].Multi {
		t.Errorf("description should be optional single: %+v", recipe.Properties[0])
	}
	if !recipe.Properties[1].Multi {
		t.Error("ingredients should be multi")
	}
}

func TestParser_MultipleBases(t *testing.T) {
	ast := parse(t, `abstract type A {}
abstract type B {}
type C extending A, B {}`)

	c := ast.Types[2]
	if len(c.Extends) != 2 || c.Extends[0] != "A" || c.Extends[1] != "B" {
		t.Errorf("extends = %v, want [A B]", c.Extends)
	}
}

func TestParser_ExpressionConstraint(t *testing.T) {
	ast := parse(t, `type Recipe {
  required property name: string
  constraint expression (size(this.name) > 0) {
    errmessage "name must not be empty"
  }
}`)

	recipe := ast.Types[0]
	if len(recipe.Constraints) != 1 {
		t.Fatalf("type constraints = %d, want 1", len(recipe.Constraints))
	}

	c := recipe.Constraints[0]
	if c.Kind != "expression" {
		t.Errorf("constraint kind = %v, want expression", c.Kind)
	}
	if c.Expression != "size(this.name) > 0" {
		t.Errorf("constraint expression = %q, want %q", c.Expression, "size(this.name) > 0")
	}
	if c.ErrMessage != "name must not be empty" {
		t.Errorf("errmessage = %q, want %q", c.ErrMessage, "name must not be empty")
	}
}

func TestParser_PropertyExpressionConstraint(t *testing.T) {
	ast := parse(t, `type Counter {
  property count: int {
    constraint expression (this.count >= 0 && this.count < 100)
  }
}`)

	count := ast.Types[0].Properties[0]
	if len(count.Constraints) != 1 {
		t.Fatalf("property constraints = %d, want 1", len(count.Constraints))
	}
	want := "this.count >= 0 && this.count < 100"
	if count.Constraints[0].Expression != want {
		t.Errorf("expression = %q, want %q", count.Constraints[0].Expression, want)
	}
}

func TestParser_NestedParensInExpression(t *testing.T) {
	ast := parse(t, `type T {
  constraint expression ((this.a > 0 || this.b > 0) && this.c != "x")
}`)

	want := `(this.a > 0 || this.b > 0) && this.c != "x"`
	got := ast.Types[0].Constraints[0].Expression
	if got != want {
		t.Errorf("expression = %q, want %q", got, want)
	}
}

func TestParser_RequiredMulti(t *testing.T) {
	ast := parse(t, `type Recipe {
  required multi property ingredients: string
}`)

	p := ast.Types[0].Properties[0]
	if !p.Required || !p.Multi {
		t.Errorf("property = %+v, want required multi", p)
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "missing type name",
			input:   "type {",
			wantErr: "expected next token to be IDENTIFIER",
		},
		{
			name:    "missing opening brace",
			input:   "type Recipe property name: string }",
			wantErr: "expected next token to be {",
		},
		{
			name:    "unexpected top-level token",
			input:   "property name: string",
			wantErr: "expected 'type' or 'abstract'",
		},
		{
			name:    "unterminated expression",
			input:   "type T { constraint expression (this.a > 0 }",
			wantErr: "expected ')' at end of constraint expression",
		},
		{
			name:    "missing property type",
			input:   "type T { property name: }",
			wantErr: "expected next token to be IDENTIFIER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(NewLexer(tt.input))
			_, err := p.Parse()
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestParser_EmptySchema(t *testing.T) {
	ast := parse(t, "")
	if len(ast.Types) != 0 {
		t.Errorf("Parse() types = %d, want 0", len(ast.Types))
	}
}
