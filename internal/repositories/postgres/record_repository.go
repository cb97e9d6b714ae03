package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mizutani/meibo/internal/entities"
	"github.com/mizutani/meibo/internal/repositories"
)

// PostgresRecordRepository implements RecordRepository using PostgreSQL
type PostgresRecordRepository struct {
	db *sql.DB
}

// NewPostgresRecordRepository creates a new PostgreSQL record repository
func NewPostgresRecordRepository(db *sql.DB) repositories.RecordRepository {
	return &PostgresRecordRepository{db: db}
}

// Write creates or replaces a record
func (r *PostgresRecordRepository) Write(ctx context.Context, record *entities.Record) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}

	valuesJSON, err := record.MarshalValues()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO records (tenant_id, type, id, name, properties, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, type, id)
		DO UPDATE SET name = EXCLUDED.name, properties = EXCLUDED.properties, updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	_, err = r.db.ExecContext(ctx, query,
		record.TenantID, record.Type, record.ID, record.Name(), valuesJSON, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return nil
}

// Get retrieves a single record by type and ID
func (r *PostgresRecordRepository) Get(ctx context.Context, tenantID string, recordType string, id string) (*entities.Record, error) {
	query := `
		SELECT properties, created_at, updated_at
		FROM records
		WHERE tenant_id = $1 AND type = $2 AND id = $3
	`
	record := &entities.Record{
		TenantID: tenantID,
		Type:     recordType,
		ID:       id,
	}

	var valuesJSON string
	err := r.db.QueryRowContext(ctx, query, tenantID, recordType, id).
		Scan(&valuesJSON, &record.CreatedAt, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s:%s: %w", recordType, id, repositories.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if err := record.UnmarshalValues(valuesJSON); err != nil {
		return nil, err
	}

	return record, nil
}

// List retrieves records for a tenant matching the filter
func (r *PostgresRecordRepository) List(ctx context.Context, tenantID string, filter *repositories.RecordFilter) ([]*entities.Record, error) {
	if filter == nil {
		filter = &repositories.RecordFilter{}
	}

	query := `
		SELECT type, id, properties, created_at, updated_at
		FROM records
		WHERE tenant_id = $1
	`
	args := []interface{}{tenantID}

	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.Name != "" {
		args = append(args, filter.Name)
		query += fmt.Sprintf(" AND name = $%d", len(args))
	}

	query += " ORDER BY created_at"

	if filter.PageSize > 0 {
		args = append(args, filter.PageSize)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows, tenantID)
}

// Delete removes a record by type and ID
func (r *PostgresRecordRepository) Delete(ctx context.Context, tenantID string, recordType string, id string) error {
	query := `DELETE FROM records WHERE tenant_id = $1 AND type = $2 AND id = $3`
	result, err := r.db.ExecContext(ctx, query, tenantID, recordType, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s:%s: %w", recordType, id, repositories.ErrRecordNotFound)
	}

	return nil
}

// FindByPropertyValue retrieves records of any of the given types whose
// property holds the given scalar value
func (r *PostgresRecordRepository) FindByPropertyValue(ctx context.Context, tenantID string, recordTypes []string, property string, value interface{}) ([]*entities.Record, error) {
	if len(recordTypes) == 0 {
		return nil, nil
	}

	valueJSON, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal property value: %w", err)
	}

	// Compare inside the JSONB document so string "42" and number 42 stay
	// distinct
	query := `
		SELECT type, id, properties, created_at, updated_at
		FROM records
		WHERE tenant_id = $1 AND type = ANY($2) AND properties -> $3 = $4::jsonb
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, pq.Array(recordTypes), property, string(valueJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to query records by property value: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows, tenantID)
}

func (r *PostgresRecordRepository) scanRecords(rows *sql.Rows, tenantID string) ([]*entities.Record, error) {
	var records []*entities.Record
	for rows.Next() {
		record := &entities.Record{TenantID: tenantID}
		var valuesJSON string
		if err := rows.Scan(&record.Type, &record.ID, &valuesJSON, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if err := record.UnmarshalValues(valuesJSON); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}
