package services

import (
	"context"
	"fmt"

	"github.com/mizutani/meibo/internal/entities"
	"github.com/mizutani/meibo/internal/repositories"
	"github.com/mizutani/meibo/internal/services/parser"
	"github.com/mizutani/meibo/internal/services/validation"
)

// SchemaServiceInterface defines the interface for schema management operations
type SchemaServiceInterface interface {
	WriteSchema(ctx context.Context, tenantID string, schemaDSL string) (string, error)
	ReadSchema(ctx context.Context, tenantID string) (*entities.Schema, error)
	ValidateSchema(ctx context.Context, schemaDSL string) error
	ListVersions(ctx context.Context, tenantID string) ([]*entities.SchemaVersion, error)
	DeleteSchema(ctx context.Context, tenantID string) error
	GetSchemaEntity(ctx context.Context, tenantID string, version string) (*entities.Schema, error)
}

// SchemaService handles schema management operations
type SchemaService struct {
	schemaRepo repositories.SchemaRepository
	celEngine  *validation.CELEngine
}

// NewSchemaService creates a new SchemaService
func NewSchemaService(schemaRepo repositories.SchemaRepository, celEngine *validation.CELEngine) *SchemaService {
	return &SchemaService{
		schemaRepo: schemaRepo,
		celEngine:  celEngine,
	}
}

// WriteSchema parses DSL, validates it, and creates a new schema version
func (s *SchemaService) WriteSchema(ctx context.Context, tenantID string, schemaDSL string) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant ID is required")
	}

	schema, err := s.parseAndValidate(tenantID, schemaDSL)
	if err != nil {
		return "", err
	}

	// Fail on unresolvable inheritance before anything is stored
	for _, typeDef := range schema.Types {
		if typeDef.Abstract {
			continue
		}
		if _, err := schema.ResolveType(typeDef.Name); err != nil {
			return "", fmt.Errorf("schema validation failed: %w", err)
		}
	}

	version, err := s.schemaRepo.Create(ctx, tenantID, schemaDSL)
	if err != nil {
		return "", fmt.Errorf("failed to create schema version: %w", err)
	}

	return version, nil
}

// ReadSchema retrieves the latest schema for a tenant
func (s *SchemaService) ReadSchema(ctx context.Context, tenantID string) (*entities.Schema, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}

	schema, err := s.schemaRepo.GetLatestVersion(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	return schema, nil
}

// ValidateSchema validates a DSL string without saving it
func (s *SchemaService) ValidateSchema(ctx context.Context, schemaDSL string) error {
	_, err := s.parseAndValidate("validate", schemaDSL)
	return err
}

// ListVersions lists all schema versions for a tenant, newest first
func (s *SchemaService) ListVersions(ctx context.Context, tenantID string) ([]*entities.SchemaVersion, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}

	versions, err := s.schemaRepo.ListVersions(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema versions: %w", err)
	}

	return versions, nil
}

// DeleteSchema deletes all schema versions for a tenant
func (s *SchemaService) DeleteSchema(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}

	if err := s.schemaRepo.Delete(ctx, tenantID); err != nil {
		return fmt.Errorf("failed to delete schema: %w", err)
	}

	return nil
}

// GetSchemaEntity retrieves the parsed schema entity for internal use.
// version="" means use the latest version.
func (s *SchemaService) GetSchemaEntity(ctx context.Context, tenantID string, version string) (*entities.Schema, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}

	var dbSchema *entities.Schema
	var err error

	if version == "" {
		dbSchema, err = s.schemaRepo.GetLatestVersion(ctx, tenantID)
	} else {
		dbSchema, err = s.schemaRepo.GetByVersion(ctx, tenantID, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	lexer := parser.NewLexer(dbSchema.DSL)
	p := parser.NewParser(lexer)
	ast, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema DSL: %w", err)
	}

	parsedSchema, err := parser.ASTToSchema(tenantID, ast)
	if err != nil {
		return nil, fmt.Errorf("failed to convert AST to schema: %w", err)
	}

	parsedSchema.DSL = dbSchema.DSL
	parsedSchema.Version = dbSchema.Version
	parsedSchema.CreatedAt = dbSchema.CreatedAt
	parsedSchema.UpdatedAt = dbSchema.UpdatedAt

	return parsedSchema, nil
}

// parseAndValidate runs the full static pipeline: lexer, parser, structural
// validator, AST conversion, and constraint expression compilation.
func (s *SchemaService) parseAndValidate(tenantID string, schemaDSL string) (*entities.Schema, error) {
	if schemaDSL == "" {
		return nil, fmt.Errorf("schema DSL is required")
	}

	lexer := parser.NewLexer(schemaDSL)
	p := parser.NewParser(lexer)
	ast, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSL: %w", err)
	}

	validator := parser.NewValidator(ast)
	if err := validator.Validate(); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	schema, err := parser.ASTToSchema(tenantID, ast)
	if err != nil {
		return nil, fmt.Errorf("failed to convert schema: %w", err)
	}

	if err := s.compileConstraints(schema); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	return schema, nil
}

// compileConstraints compiles every expression constraint so malformed
// expressions are rejected at write time, not at record validation time
func (s *SchemaService) compileConstraints(schema *entities.Schema) error {
	for _, typeDef := range schema.Types {
		for _, c := range typeDef.Constraints {
			if err := s.compileConstraint(typeDef.Name, "", c); err != nil {
				return err
			}
		}
		for _, prop := range typeDef.Properties {
			for _, c := range prop.Constraints {
				if err := s.compileConstraint(typeDef.Name, prop.Name, c); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *SchemaService) compileConstraint(typeName string, propName string, c *entities.Constraint) error {
	if c.Kind != entities.ConstraintExpression {
		return nil
	}
	if err := s.celEngine.ValidateExpression(c.Expression); err != nil {
		if propName != "" {
			return fmt.Errorf("type %s, property %s: %w", typeName, propName, err)
		}
		return fmt.Errorf("type %s: %w", typeName, err)
	}
	return nil
}
