package repositories

import (
	"context"
	"errors"

	"github.com/mizutani/meibo/internal/entities"
)

// ErrSchemaNotFound is returned when no schema exists for a tenant or version
var ErrSchemaNotFound = errors.New("schema not found")

// SchemaRepository defines the interface for schema data access
type SchemaRepository interface {
	// Create stores a new schema version for a tenant and returns the version ID
	Create(ctx context.Context, tenantID string, schemaDSL string) (string, error)

	// GetLatestVersion retrieves the latest schema version for a tenant
	GetLatestVersion(ctx context.Context, tenantID string) (*entities.Schema, error)

	// GetByVersion retrieves a specific schema version for a tenant
	GetByVersion(ctx context.Context, tenantID string, version string) (*entities.Schema, error)

	// ListVersions lists all schema versions for a tenant, newest first
	ListVersions(ctx context.Context, tenantID string) ([]*entities.SchemaVersion, error)

	// Delete deletes all schema versions for a tenant
	Delete(ctx context.Context, tenantID string) error
}
