package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mizutani/meibo/internal/entities"
	"github.com/mizutani/meibo/internal/repositories"
	"github.com/mizutani/meibo/internal/services/validation"
	"github.com/mizutani/meibo/pkg/cache"
)

// RecordServiceInterface defines the interface for record operations
type RecordServiceInterface interface {
	WriteRecord(ctx context.Context, tenantID string, recordType string, id string, values map[string]interface{}) (*entities.Record, error)
	ValidateRecord(ctx context.Context, tenantID string, recordType string, values map[string]interface{}) error
	GetRecord(ctx context.Context, tenantID string, recordType string, id string) (*entities.Record, error)
	ListRecords(ctx context.Context, tenantID string, filter *repositories.RecordFilter) ([]*entities.Record, error)
	DeleteRecord(ctx context.Context, tenantID string, recordType string, id string) error
}

// RecordService validates and stores records against the tenant's schema
type RecordService struct {
	schemaService SchemaServiceInterface
	recordRepo    repositories.RecordRepository
	validator     *validation.RecordValidator
	cache         cache.Cache // Optional cache for parsed schemas
	cacheTTL      time.Duration
}

// NewRecordService creates a new RecordService without caching
func NewRecordService(
	schemaService SchemaServiceInterface,
	recordRepo repositories.RecordRepository,
	validator *validation.RecordValidator,
) *RecordService {
	return &RecordService{
		schemaService: schemaService,
		recordRepo:    recordRepo,
		validator:     validator,
	}
}

// NewRecordServiceWithCache creates a new RecordService that caches parsed
// schemas between requests
func NewRecordServiceWithCache(
	schemaService SchemaServiceInterface,
	recordRepo repositories.RecordRepository,
	validator *validation.RecordValidator,
	c cache.Cache,
	cacheTTL time.Duration,
) *RecordService {
	return &RecordService{
		schemaService: schemaService,
		recordRepo:    recordRepo,
		validator:     validator,
		cache:         c,
		cacheTTL:      cacheTTL,
	}
}

// WriteRecord validates values against the schema and creates or replaces a
// record. An empty id creates a new record with a generated UUID.
func (s *RecordService) WriteRecord(ctx context.Context, tenantID string, recordType string, id string, values map[string]interface{}) (*entities.Record, error) {
	resolved, schema, err := s.resolveConcreteType(ctx, tenantID, recordType)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(resolved, values); err != nil {
		return nil, err
	}

	if id == "" {
		id = uuid.New().String()
	}

	if err := s.checkExclusive(ctx, schema, resolved, tenantID, id, values); err != nil {
		return nil, err
	}

	record := &entities.Record{
		TenantID: tenantID,
		Type:     recordType,
		ID:       id,
		Values:   values,
	}
	if err := s.recordRepo.Write(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to write record: %w", err)
	}

	return record, nil
}

// ValidateRecord checks values against the schema without storing anything.
// Exclusive constraints are checked as if the record were new.
func (s *RecordService) ValidateRecord(ctx context.Context, tenantID string, recordType string, values map[string]interface{}) error {
	resolved, schema, err := s.resolveConcreteType(ctx, tenantID, recordType)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(resolved, values); err != nil {
		return err
	}

	return s.checkExclusive(ctx, schema, resolved, tenantID, "", values)
}

// GetRecord retrieves a single record by type and ID
func (s *RecordService) GetRecord(ctx context.Context, tenantID string, recordType string, id string) (*entities.Record, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if recordType == "" || id == "" {
		return nil, fmt.Errorf("record type and ID are required")
	}

	return s.recordRepo.Get(ctx, tenantID, recordType, id)
}

// ListRecords retrieves records for a tenant matching the filter
func (s *RecordService) ListRecords(ctx context.Context, tenantID string, filter *repositories.RecordFilter) ([]*entities.Record, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}

	return s.recordRepo.List(ctx, tenantID, filter)
}

// DeleteRecord removes a record by type and ID
func (s *RecordService) DeleteRecord(ctx context.Context, tenantID string, recordType string, id string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if recordType == "" || id == "" {
		return fmt.Errorf("record type and ID are required")
	}

	return s.recordRepo.Delete(ctx, tenantID, recordType, id)
}

// resolveConcreteType loads the tenant schema and flattens the given type.
// Abstract types cannot hold records.
func (s *RecordService) resolveConcreteType(ctx context.Context, tenantID string, recordType string) (*entities.ResolvedType, *entities.Schema, error) {
	if tenantID == "" {
		return nil, nil, fmt.Errorf("tenant ID is required")
	}
	if recordType == "" {
		return nil, nil, fmt.Errorf("record type is required")
	}

	schema, err := s.getSchema(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	typeDef := schema.GetType(recordType)
	if typeDef == nil {
		return nil, nil, fmt.Errorf("type %s is not defined in the schema", recordType)
	}
	if typeDef.Abstract {
		return nil, nil, fmt.Errorf("type %s is abstract and cannot hold records", recordType)
	}

	resolved, err := schema.ResolveType(recordType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve type %s: %w", recordType, err)
	}

	return resolved, schema, nil
}

// getSchema returns the parsed latest schema for a tenant, via cache when
// one is configured
func (s *RecordService) getSchema(ctx context.Context, tenantID string) (*entities.Schema, error) {
	cacheKey := "schema:" + tenantID

	if s.cache != nil {
		if cached, found := s.cache.Get(ctx, cacheKey); found {
			if schema, ok := cached.(*entities.Schema); ok {
				return schema, nil
			}
		}
	}

	schema, err := s.schemaService.GetSchemaEntity(ctx, tenantID, "")
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, schema, s.cacheTTL)
	}

	return schema, nil
}

// checkExclusive enforces exclusive property constraints. Uniqueness spans
// every concrete type that shares the declaring ancestor, so a Recipe and a
// Menu both extending NamedObject cannot reuse the same name.
func (s *RecordService) checkExclusive(ctx context.Context, schema *entities.Schema, resolved *entities.ResolvedType, tenantID string, id string, values map[string]interface{}) error {
	var violations []*validation.Violation

	for _, prop := range resolved.Properties {
		if !prop.Exclusive() {
			continue
		}
		value, present := values[prop.Name]
		if !present || value == nil {
			continue
		}

		scope, err := s.exclusiveScope(schema, resolved.Name, prop.Name)
		if err != nil {
			return err
		}

		existing, err := s.recordRepo.FindByPropertyValue(ctx, tenantID, scope, prop.Name, value)
		if err != nil {
			return fmt.Errorf("failed to check exclusive constraint on %s: %w", prop.Name, err)
		}

		for _, other := range existing {
			if other.Type == resolved.Name && other.ID == id {
				continue
			}
			c := prop.GetConstraint(entities.ConstraintExclusive)
			violations = append(violations, &validation.Violation{
				Property: prop.Name,
				Message:  fmt.Sprintf("%s (already used by %s)", c.ViolationMessage(), other),
			})
			break
		}
	}

	if len(violations) > 0 {
		return &validation.ValidationError{Type: resolved.Name, Violations: violations}
	}
	return nil
}

// exclusiveScope finds the farthest ancestor declaring the exclusive
// constraint and returns the concrete types that share it
func (s *RecordService) exclusiveScope(schema *entities.Schema, typeName string, propName string) ([]string, error) {
	root := typeName

	ancestors, err := schema.Ancestors(typeName)
	if err != nil {
		return nil, err
	}
	for _, name := range ancestors {
		typeDef := schema.GetType(name)
		if typeDef == nil {
			continue
		}
		if prop := typeDef.GetProperty(propName); prop != nil && prop.Exclusive() {
			root = name
		}
	}

	return schema.ConcreteDescendants(root), nil
}
