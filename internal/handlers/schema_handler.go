package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mizutani/meibo/internal/services"
)

// SchemaHandlers provides HTTP handlers for schema management.
type SchemaHandlers struct {
	schemaService services.SchemaServiceInterface
	logger        *zap.Logger
}

// NewSchemaHandlers creates a new SchemaHandlers instance.
func NewSchemaHandlers(schemaService services.SchemaServiceInterface, logger *zap.Logger) *SchemaHandlers {
	return &SchemaHandlers{
		schemaService: schemaService,
		logger:        logger,
	}
}

type writeSchemaRequest struct {
	DSL string `json:"dsl"`
}

type writeSchemaResponse struct {
	Version string `json:"version"`
}

type schemaResponse struct {
	Version   string    `json:"version"`
	DSL       string    `json:"dsl"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type schemaVersionResponse struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// WriteSchema handles POST /v1/schemas
func (h *SchemaHandlers) WriteSchema(w http.ResponseWriter, r *http.Request) {
	var req writeSchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tenant := tenantID(r)
	version, err := h.schemaService.WriteSchema(r.Context(), tenant, req.DSL)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.logger.Info("schema written",
		zap.String("tenant_id", tenant),
		zap.String("version", version))

	respondJSON(w, http.StatusCreated, &writeSchemaResponse{Version: version})
}

// ReadSchema handles GET /v1/schemas
func (h *SchemaHandlers) ReadSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.schemaService.ReadSchema(r.Context(), tenantID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &schemaResponse{
		Version:   schema.Version,
		DSL:       schema.DSL,
		CreatedAt: schema.CreatedAt,
		UpdatedAt: schema.UpdatedAt,
	})
}

// ValidateSchema handles POST /v1/schemas/validate
func (h *SchemaHandlers) ValidateSchema(w http.ResponseWriter, r *http.Request) {
	var req writeSchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.schemaService.ValidateSchema(r.Context(), req.DSL); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"valid": true})
}

// ListVersions handles GET /v1/schemas/versions
func (h *SchemaHandlers) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.schemaService.ListVersions(r.Context(), tenantID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]*schemaVersionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, &schemaVersionResponse{
			Version:   v.Version,
			CreatedAt: v.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// DeleteSchema handles DELETE /v1/schemas
func (h *SchemaHandlers) DeleteSchema(w http.ResponseWriter, r *http.Request) {
	tenant := tenantID(r)
	if err := h.schemaService.DeleteSchema(r.Context(), tenant); err != nil {
		respondServiceError(w, err)
		return
	}

	h.logger.Info("schema deleted", zap.String("tenant_id", tenant))
	w.WriteHeader(http.StatusNoContent)
}
