package repositories

import (
	"context"
	"errors"

	"github.com/mizutani/meibo/internal/entities"
)

// ErrRecordNotFound is returned when no record matches the given type and ID
var ErrRecordNotFound = errors.New("record not found")

// RecordFilter narrows a List call. Zero values match everything.
type RecordFilter struct {
	Type     string // Filter by record type
	Name     string // Filter by the extracted name value
	PageSize int    // Maximum number of records to return (0 = no limit)
	Offset   int    // Number of records to skip
}

// RecordRepository defines the interface for record data access
type RecordRepository interface {
	// Write creates or replaces a record
	Write(ctx context.Context, record *entities.Record) error

	// Get retrieves a single record by type and ID
	Get(ctx context.Context, tenantID string, recordType string, id string) (*entities.Record, error)

	// List retrieves records for a tenant matching the filter, ordered by
	// creation time
	List(ctx context.Context, tenantID string, filter *RecordFilter) ([]*entities.Record, error)

	// Delete removes a record by type and ID
	Delete(ctx context.Context, tenantID string, recordType string, id string) error

	// FindByPropertyValue retrieves records of any of the given types whose
	// property holds the given scalar value. Used for exclusive constraint
	// checks.
	FindByPropertyValue(ctx context.Context, tenantID string, recordTypes []string, property string, value interface{}) ([]*entities.Record, error)
}
