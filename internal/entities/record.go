package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record represents an instance of a concrete type
// Example: Recipe:7d9f... with values {name: "Curry", ingredients: ["rice"]}
type Record struct {
	TenantID  string                 // Tenant identifier
	Type      string                 // Concrete type name (e.g., "Recipe")
	ID        string                 // Record ID (UUID)
	Values    map[string]interface{} // Property values keyed by property name
	CreatedAt time.Time
	UpdatedAt time.Time
}

// String returns a string representation of the record
// Format: type:id
func (r *Record) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// Validate checks if the record carries the minimum identifying fields
func (r *Record) Validate() error {
	if r.TenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if r.Type == "" {
		return fmt.Errorf("record type is required")
	}
	if r.Values == nil {
		return fmt.Errorf("record values are required")
	}
	return nil
}

// Name returns the record's name value if present, or ""
func (r *Record) Name() string {
	if v, ok := r.Values["name"].(string); ok {
		return v
	}
	return ""
}

// MarshalValues serializes the property values to JSON for storage
func (r *Record) MarshalValues() (string, error) {
	data, err := json.Marshal(r.Values)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record values: %w", err)
	}
	return string(data), nil
}

// UnmarshalValues deserializes the JSON string into the property values
func (r *Record) UnmarshalValues(data string) error {
	if err := json.Unmarshal([]byte(data), &r.Values); err != nil {
		return fmt.Errorf("failed to unmarshal record values: %w", err)
	}
	return nil
}
