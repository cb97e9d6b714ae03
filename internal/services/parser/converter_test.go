package parser

import (
	"testing"

	"github.com/mizutani/meibo/internal/entities"
)

func TestASTToSchema(t *testing.T) {
	ast := parse(t, `abstract type NamedObject {
  required property name: string {
    constraint exclusive
  }
}

type Recipe extending NamedObject {
  property description: string
  multi property ingredients: string
  constraint expression (size(this.name) > 0) {
    errmessage "name must not be empty"
  }
}`)

	schema, err := ASTToSchema("tenant1", ast)
	if err != nil {
		t.Fatalf("ASTToSchema() error = %v", err)
	}

	if schema.TenantID != "tenant1" {
		t.Errorf("tenant ID = %v, want tenant1", schema.TenantID)
	}
	if len(schema.Types) != 2 {
		t.Fatalf("types = %d, want 2", len(schema.Types))
	}

	namedObject := schema.GetType("NamedObject")
	if namedObject == nil || !namedObject.Abstract {
		t.Fatalf("NamedObject = %+v, want abstract type", namedObject)
	}
	name := namedObject.GetProperty("name")
	if name == nil || !name.Required || !name.Exclusive() {
		t.Errorf("name property = %+v, want required exclusive", name)
	}

	recipe := schema.GetType("Recipe")
	if recipe == nil {
		t.Fatal("Recipe type missing")
	}
	if !recipe.ExtendsType("NamedObject") {
		t.Error("Recipe should extend NamedObject")
	}
	if len(recipe.Constraints) != 1 {
		t.Fatalf("Recipe constraints = %d, want 1", len(recipe.Constraints))
	}
	if recipe.Constraints[0].ErrMessage != "name must not be empty" {
		t.Errorf("errmessage = %q", recipe.Constraints[0].ErrMessage)
	}
}

func TestASTToSchema_InvalidConstraint(t *testing.T) {
	ast := &SchemaAST{
		Types: []*TypeAST{
			{
				Name: "T",
				Properties: []*PropertyAST{
					{
						Name: "x",
						Type: "int",
						Constraints: []*ConstraintAST{
							{Kind: "unique"},
						},
					},
				},
			},
		},
	}

	if _, err := ASTToSchema("tenant1", ast); err == nil {
		t.Error("ASTToSchema() expected error for unknown constraint kind, got nil")
	}
}

func TestSchemaToAST_RoundTrip(t *testing.T) {
	schema := &entities.Schema{
		TenantID: "tenant1",
		Types: []*entities.TypeDefinition{
			{
				Name:     "NamedObject",
				Abstract: true,
				Properties: []*entities.Property{
					{
						Name:     "name",
						Type:     "string",
						Required: true,
						Constraints: []*entities.Constraint{
							{Kind: entities.ConstraintExclusive},
						},
					},
				},
			},
			{
				Name:    "Recipe",
				Extends: []string{"NamedObject"},
				Properties: []*entities.Property{
					{Name: "ingredients", Type: "string", Multi: true},
				},
			},
		},
	}

	ast := SchemaToAST(schema)
	back, err := ASTToSchema("tenant1", ast)
	if err != nil {
		t.Fatalf("ASTToSchema() error = %v", err)
	}

	if len(back.Types) != 2 {
		t.Fatalf("round trip types = %d, want 2", len(back.Types))
	}
	name := back.GetType("NamedObject").GetProperty("name")
	if name == nil || !name.Required || !name.Exclusive() {
		t.Errorf("round trip name property = %+v, want required exclusive", name)
	}
	ingredients := back.GetType("Recipe").GetProperty("ingredients")
	if ingredients == nil || !ingredients.Multi {
		t.Errorf("round trip ingredients = %+v, want multi", ingredients)
	}
}
