package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mizutani/meibo/internal/entities"
	"github.com/mizutani/meibo/internal/repositories"
	"github.com/mizutani/meibo/internal/services"
	"github.com/mizutani/meibo/internal/services/validation"
)

// In-memory repositories backing the handler tests

type memSchemaRepository struct {
	mu      sync.Mutex
	schemas map[string][]*entities.Schema
}

func (m *memSchemaRepository) Create(ctx context.Context, tenantID string, schemaDSL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	version := uuid.New().String()
	m.schemas[tenantID] = append(m.schemas[tenantID], &entities.Schema{
		TenantID:  tenantID,
		Version:   version,
		DSL:       schemaDSL,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	return version, nil
}

func (m *memSchemaRepository) GetLatestVersion(ctx context.Context, tenantID string) (*entities.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	versions := m.schemas[tenantID]
	if len(versions) == 0 {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, repositories.ErrSchemaNotFound)
	}
	return versions[len(versions)-1], nil
}

func (m *memSchemaRepository) GetByVersion(ctx context.Context, tenantID string, version string) (*entities.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, schema := range m.schemas[tenantID] {
		if schema.Version == version {
			return schema, nil
		}
	}
	return nil, fmt.Errorf("tenant %s: %w", tenantID, repositories.ErrSchemaNotFound)
}

func (m *memSchemaRepository) ListVersions(ctx context.Context, tenantID string) ([]*entities.SchemaVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	versions := m.schemas[tenantID]
	out := make([]*entities.SchemaVersion, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		out = append(out, &entities.SchemaVersion{Version: versions[i].Version, CreatedAt: versions[i].CreatedAt})
	}
	return out, nil
}

func (m *memSchemaRepository) Delete(ctx context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.schemas[tenantID]) == 0 {
		return fmt.Errorf("tenant %s: %w", tenantID, repositories.ErrSchemaNotFound)
	}
	delete(m.schemas, tenantID)
	return nil
}

type memRecordRepository struct {
	mu      sync.Mutex
	records map[string]*entities.Record
}

func memKey(tenantID, recordType, id string) string {
	return tenantID + "/" + recordType + "/" + id
}

func (m *memRecordRepository) Write(ctx context.Context, record *entities.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[memKey(record.TenantID, record.Type, record.ID)] = record
	return nil
}

func (m *memRecordRepository) Get(ctx context.Context, tenantID string, recordType string, id string) (*entities.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, exists := m.records[memKey(tenantID, recordType, id)]
	if !exists {
		return nil, fmt.Errorf("%s:%s: %w", recordType, id, repositories.ErrRecordNotFound)
	}
	return record, nil
}

func (m *memRecordRepository) List(ctx context.Context, tenantID string, filter *repositories.RecordFilter) ([]*entities.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if filter == nil {
		filter = &repositories.RecordFilter{}
	}
	var out []*entities.Record
	for _, record := range m.records {
		if record.TenantID != tenantID {
			continue
		}
		if filter.Type != "" && record.Type != filter.Type {
			continue
		}
		if filter.Name != "" && record.Name() != filter.Name {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (m *memRecordRepository) Delete(ctx context.Context, tenantID string, recordType string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(tenantID, recordType, id)
	if _, exists := m.records[key]; !exists {
		return fmt.Errorf("%s:%s: %w", recordType, id, repositories.ErrRecordNotFound)
	}
	delete(m.records, key)
	return nil
}

func (m *memRecordRepository) FindByPropertyValue(ctx context.Context, tenantID string, recordTypes []string, property string, value interface{}) ([]*entities.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Record
	for _, record := range m.records {
		if record.TenantID != tenantID {
			continue
		}
		for _, recordType := range recordTypes {
			if record.Type == recordType && record.Values[property] == value {
				out = append(out, record)
				break
			}
		}
	}
	return out, nil
}

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	engine, err := validation.NewCELEngine()
	if err != nil {
		t.Fatalf("NewCELEngine() error = %v", err)
	}

	schemaService := services.NewSchemaService(&memSchemaRepository{schemas: make(map[string][]*entities.Schema)}, engine)
	recordService := services.NewRecordService(
		schemaService,
		&memRecordRepository{records: make(map[string]*entities.Record)},
		validation.NewRecordValidator(engine),
	)

	logger := zap.NewNop()
	return NewRouter(
		NewSchemaHandlers(schemaService, logger),
		NewRecordHandlers(recordService, logger),
		nil, nil, nil,
	)
}

func doRequest(t *testing.T, router http.Handler, method, path, tenant string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const handlerTestDSL = `abstract type NamedObject {\n  required property name: string {\n    constraint exclusive\n  }\n}\n\ntype Recipe extending NamedObject {\n  property description: string\n  multi property ingredients: string\n}`

func writeSchemaBody() string {
	body, _ := json.Marshal(map[string]string{"dsl": strings.ReplaceAll(handlerTestDSL, `\n`, "\n")})
	return string(body)
}

func TestSchemaEndpoints(t *testing.T) {
	router := newTestRouter(t)

	t.Run("write and read", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/v1/schemas", "t1", writeSchemaBody())
		if w.Code != http.StatusCreated {
			t.Fatalf("POST /v1/schemas = %d, body %s", w.Code, w.Body.String())
		}
		var created struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.Version == "" {
			t.Fatalf("bad create response: %s", w.Body.String())
		}

		w = doRequest(t, router, http.MethodGet, "/v1/schemas", "t1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET /v1/schemas = %d", w.Code)
		}
		var got struct {
			Version string `json:"version"`
			DSL     string `json:"dsl"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("bad read response: %v", err)
		}
		if got.Version != created.Version {
			t.Errorf("version = %s, want %s", got.Version, created.Version)
		}
		if !strings.Contains(got.DSL, "type Recipe") {
			t.Errorf("dsl missing Recipe: %s", got.DSL)
		}
	})

	t.Run("invalid DSL rejected", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/v1/schemas", "t1", `{"dsl": "type Recipe {"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("POST invalid DSL = %d, want 400", w.Code)
		}
	})

	t.Run("validate endpoint", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/v1/schemas/validate", "t1", writeSchemaBody())
		if w.Code != http.StatusOK {
			t.Errorf("POST /v1/schemas/validate = %d", w.Code)
		}

		w = doRequest(t, router, http.MethodPost, "/v1/schemas/validate", "t1", `{"dsl": "type Recipe {"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("POST invalid /v1/schemas/validate = %d, want 400", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"valid":false`) {
			t.Errorf("body = %s, want valid:false", w.Body.String())
		}
	})

	t.Run("versions listed newest first", func(t *testing.T) {
		doRequest(t, router, http.MethodPost, "/v1/schemas", "t1", writeSchemaBody())

		w := doRequest(t, router, http.MethodGet, "/v1/schemas/versions", "t1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET /v1/schemas/versions = %d", w.Code)
		}
		var versions []struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &versions); err != nil {
			t.Fatalf("bad versions response: %v", err)
		}
		if len(versions) < 2 {
			t.Errorf("versions = %d, want >= 2", len(versions))
		}
	})

	t.Run("read for unknown tenant is 404", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/v1/schemas", "nobody", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("GET /v1/schemas = %d, want 404", w.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		w := doRequest(t, router, http.MethodDelete, "/v1/schemas", "t1", "")
		if w.Code != http.StatusNoContent {
			t.Fatalf("DELETE /v1/schemas = %d", w.Code)
		}
		w = doRequest(t, router, http.MethodGet, "/v1/schemas", "t1", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("GET after delete = %d, want 404", w.Code)
		}
	})
}

func TestRecordEndpoints(t *testing.T) {
	router := newTestRouter(t)

	if w := doRequest(t, router, http.MethodPost, "/v1/schemas", "t1", writeSchemaBody()); w.Code != http.StatusCreated {
		t.Fatalf("schema setup failed: %d %s", w.Code, w.Body.String())
	}

	var curryID string

	t.Run("write record", func(t *testing.T) {
		body := `{"type": "Recipe", "values": {"name": "Curry", "ingredients": ["rice", "roux"]}}`
		w := doRequest(t, router, http.MethodPost, "/v1/records", "t1", body)
		if w.Code != http.StatusCreated {
			t.Fatalf("POST /v1/records = %d, body %s", w.Code, w.Body.String())
		}
		var created struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.ID == "" {
			t.Fatalf("bad create response: %s", w.Body.String())
		}
		curryID = created.ID
	})

	t.Run("constraint violation is 422 with details", func(t *testing.T) {
		body := `{"type": "Recipe", "values": {"description": "no name"}}`
		w := doRequest(t, router, http.MethodPost, "/v1/records", "t1", body)
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("POST invalid record = %d, want 422", w.Code)
		}
		var resp struct {
			Violations []string `json:"violations"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad error response: %v", err)
		}
		if len(resp.Violations) == 0 || !strings.Contains(resp.Violations[0], "required property is missing") {
			t.Errorf("violations = %v", resp.Violations)
		}
	})

	t.Run("duplicate name is 422", func(t *testing.T) {
		body := `{"type": "Recipe", "values": {"name": "Curry"}}`
		w := doRequest(t, router, http.MethodPost, "/v1/records", "t1", body)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("POST duplicate name = %d, want 422", w.Code)
		}
	})

	t.Run("validate endpoint does not store", func(t *testing.T) {
		body := `{"type": "Recipe", "values": {"name": "Stew"}}`
		w := doRequest(t, router, http.MethodPost, "/v1/records/validate", "t1", body)
		if w.Code != http.StatusOK {
			t.Fatalf("POST /v1/records/validate = %d", w.Code)
		}

		w = doRequest(t, router, http.MethodGet, "/v1/records/Recipe", "t1", "")
		var records []struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
			t.Fatalf("bad list response: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("records = %d, want 1 (validate must not store)", len(records))
		}
	})

	t.Run("get and list", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/v1/records/Recipe/"+curryID, "t1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET record = %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "Curry") {
			t.Errorf("body = %s", w.Body.String())
		}

		w = doRequest(t, router, http.MethodGet, "/v1/records/Recipe?name=Curry", "t1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET list = %d", w.Code)
		}
	})

	t.Run("bad paging params are 400", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/v1/records/Recipe?page_size=lots", "t1", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("GET bad page_size = %d, want 400", w.Code)
		}
	})

	t.Run("tenant isolation", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/v1/records/Recipe/"+curryID, "t2", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("GET cross-tenant = %d, want 404", w.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		w := doRequest(t, router, http.MethodDelete, "/v1/records/Recipe/"+curryID, "t1", "")
		if w.Code != http.StatusNoContent {
			t.Fatalf("DELETE record = %d", w.Code)
		}
		w = doRequest(t, router, http.MethodGet, "/v1/records/Recipe/"+curryID, "t1", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("GET after delete = %d, want 404", w.Code)
		}
	})
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d", w.Code)
	}
}

func TestDefaultTenant(t *testing.T) {
	router := newTestRouter(t)

	// No X-Tenant-ID header falls back to "default"
	w := doRequest(t, router, http.MethodPost, "/v1/schemas", "", writeSchemaBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /v1/schemas = %d", w.Code)
	}
	w = doRequest(t, router, http.MethodGet, "/v1/schemas", "default", "")
	if w.Code != http.StatusOK {
		t.Errorf("GET with explicit default tenant = %d, want 200", w.Code)
	}
}
