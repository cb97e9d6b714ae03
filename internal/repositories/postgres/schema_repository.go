package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mizutani/meibo/internal/entities"
	"github.com/mizutani/meibo/internal/repositories"
)

// PostgresSchemaRepository implements SchemaRepository using PostgreSQL
type PostgresSchemaRepository struct {
	db *sql.DB
}

// NewPostgresSchemaRepository creates a new PostgreSQL schema repository
func NewPostgresSchemaRepository(db *sql.DB) repositories.SchemaRepository {
	return &PostgresSchemaRepository{db: db}
}

// Create stores a new schema version for a tenant and returns the version ID
func (r *PostgresSchemaRepository) Create(ctx context.Context, tenantID string, schemaDSL string) (string, error) {
	query := `
		INSERT INTO schemas (version, tenant_id, schema_dsl, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	version := uuid.New().String()
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query, version, tenantID, schemaDSL, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to create schema: %w", err)
	}
	return version, nil
}

// GetLatestVersion retrieves the latest schema version for a tenant
func (r *PostgresSchemaRepository) GetLatestVersion(ctx context.Context, tenantID string) (*entities.Schema, error) {
	query := `
		SELECT version, schema_dsl, created_at, updated_at
		FROM schemas
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanSchema(r.db.QueryRowContext(ctx, query, tenantID), tenantID)
}

// GetByVersion retrieves a specific schema version for a tenant
func (r *PostgresSchemaRepository) GetByVersion(ctx context.Context, tenantID string, version string) (*entities.Schema, error) {
	query := `
		SELECT version, schema_dsl, created_at, updated_at
		FROM schemas
		WHERE tenant_id = $1 AND version = $2
	`
	return r.scanSchema(r.db.QueryRowContext(ctx, query, tenantID, version), tenantID)
}

// ListVersions lists all schema versions for a tenant, newest first
func (r *PostgresSchemaRepository) ListVersions(ctx context.Context, tenantID string) ([]*entities.SchemaVersion, error) {
	query := `
		SELECT version, created_at
		FROM schemas
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema versions: %w", err)
	}
	defer rows.Close()

	var versions []*entities.SchemaVersion
	for rows.Next() {
		v := &entities.SchemaVersion{}
		if err := rows.Scan(&v.Version, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schema version: %w", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema versions: %w", err)
	}

	return versions, nil
}

// Delete deletes all schema versions for a tenant
func (r *PostgresSchemaRepository) Delete(ctx context.Context, tenantID string) error {
	query := `DELETE FROM schemas WHERE tenant_id = $1`
	result, err := r.db.ExecContext(ctx, query, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete schemas: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("tenant %s: %w", tenantID, repositories.ErrSchemaNotFound)
	}

	return nil
}

func (r *PostgresSchemaRepository) scanSchema(row *sql.Row, tenantID string) (*entities.Schema, error) {
	schema := &entities.Schema{TenantID: tenantID}

	err := row.Scan(&schema.Version, &schema.DSL, &schema.CreatedAt, &schema.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, repositories.ErrSchemaNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	// Types are populated by the parser in the service layer
	return schema, nil
}
