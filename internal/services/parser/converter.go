package parser

import (
	"fmt"

	"github.com/mizutani/meibo/internal/entities"
)

// ASTToSchema converts SchemaAST to entities.Schema
func ASTToSchema(tenantID string, ast *SchemaAST) (*entities.Schema, error) {
	schema := &entities.Schema{
		TenantID: tenantID,
		Types:    make([]*entities.TypeDefinition, 0, len(ast.Types)),
	}

	for _, typeAST := range ast.Types {
		typeDef, err := convertType(typeAST)
		if err != nil {
			return nil, fmt.Errorf("failed to convert type %s: %w", typeAST.Name, err)
		}
		schema.Types = append(schema.Types, typeDef)
	}

	return schema, nil
}

// SchemaToAST converts entities.Schema to SchemaAST
func SchemaToAST(schema *entities.Schema) *SchemaAST {
	ast := &SchemaAST{
		Types: make([]*TypeAST, 0, len(schema.Types)),
	}

	for _, typeDef := range schema.Types {
		ast.Types = append(ast.Types, convertTypeToAST(typeDef))
	}

	return ast
}

// convertType converts TypeAST to entities.TypeDefinition
func convertType(ast *TypeAST) (*entities.TypeDefinition, error) {
	typeDef := &entities.TypeDefinition{
		Name:        ast.Name,
		Abstract:    ast.Abstract,
		Extends:     append([]string(nil), ast.Extends...),
		Properties:  make([]*entities.Property, 0, len(ast.Properties)),
		Constraints: make([]*entities.Constraint, 0, len(ast.Constraints)),
	}

	for _, propAST := range ast.Properties {
		prop := &entities.Property{
			Name:     propAST.Name,
			Type:     propAST.Type,
			Required: propAST.Required,
			Multi:    propAST.Multi,
		}
		for _, cAST := range propAST.Constraints {
			c, err := convertConstraint(cAST)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", propAST.Name, err)
			}
			prop.Constraints = append(prop.Constraints, c)
		}
		typeDef.Properties = append(typeDef.Properties, prop)
	}

	for _, cAST := range ast.Constraints {
		c, err := convertConstraint(cAST)
		if err != nil {
			return nil, err
		}
		typeDef.Constraints = append(typeDef.Constraints, c)
	}

	return typeDef, nil
}

// convertConstraint converts ConstraintAST to entities.Constraint
func convertConstraint(ast *ConstraintAST) (*entities.Constraint, error) {
	c := &entities.Constraint{
		Kind:       ast.Kind,
		Expression: ast.Expression,
		ErrMessage: ast.ErrMessage,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// convertTypeToAST converts entities.TypeDefinition to TypeAST
func convertTypeToAST(typeDef *entities.TypeDefinition) *TypeAST {
	ast := &TypeAST{
		Name:        typeDef.Name,
		Abstract:    typeDef.Abstract,
		Extends:     append([]string(nil), typeDef.Extends...),
		Properties:  make([]*PropertyAST, 0, len(typeDef.Properties)),
		Constraints: make([]*ConstraintAST, 0, len(typeDef.Constraints)),
	}

	for _, prop := range typeDef.Properties {
		propAST := &PropertyAST{
			Name:     prop.Name,
			Type:     prop.Type,
			Required: prop.Required,
			Multi:    prop.Multi,
		}
		for _, c := range prop.Constraints {
			propAST.Constraints = append(propAST.Constraints, &ConstraintAST{
				Kind:       c.Kind,
				Expression: c.Expression,
				ErrMessage: c.ErrMessage,
			})
		}
		ast.Properties = append(ast.Properties, propAST)
	}

	for _, c := range typeDef.Constraints {
		ast.Constraints = append(ast.Constraints, &ConstraintAST{
			Kind:       c.Kind,
			Expression: c.Expression,
			ErrMessage: c.ErrMessage,
		})
	}

	return ast
}
