package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mizutani/meibo/internal/entities"
	"github.com/mizutani/meibo/internal/repositories"
	"github.com/mizutani/meibo/internal/services"
)

// RecordHandlers provides HTTP handlers for record management.
type RecordHandlers struct {
	recordService services.RecordServiceInterface
	logger        *zap.Logger
}

// NewRecordHandlers creates a new RecordHandlers instance.
func NewRecordHandlers(recordService services.RecordServiceInterface, logger *zap.Logger) *RecordHandlers {
	return &RecordHandlers{
		recordService: recordService,
		logger:        logger,
	}
}

type writeRecordRequest struct {
	Type   string                 `json:"type"`
	ID     string                 `json:"id,omitempty"`
	Values map[string]interface{} `json:"values"`
}

type recordResponse struct {
	Type      string                 `json:"type"`
	ID        string                 `json:"id"`
	Values    map[string]interface{} `json:"values"`
	CreatedAt time.Time              `json:"created_at,omitempty"`
	UpdatedAt time.Time              `json:"updated_at,omitempty"`
}

func toRecordResponse(record *entities.Record) *recordResponse {
	return &recordResponse{
		Type:      record.Type,
		ID:        record.ID,
		Values:    record.Values,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

// WriteRecord handles POST /v1/records
func (h *RecordHandlers) WriteRecord(w http.ResponseWriter, r *http.Request) {
	var req writeRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tenant := tenantID(r)
	record, err := h.recordService.WriteRecord(r.Context(), tenant, req.Type, req.ID, req.Values)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.logger.Info("record written",
		zap.String("tenant_id", tenant),
		zap.String("record", record.String()))

	respondJSON(w, http.StatusCreated, toRecordResponse(record))
}

// ValidateRecord handles POST /v1/records/validate
func (h *RecordHandlers) ValidateRecord(w http.ResponseWriter, r *http.Request) {
	var req writeRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.recordService.ValidateRecord(r.Context(), tenantID(r), req.Type, req.Values); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"valid": true})
}

// GetRecord handles GET /v1/records/{type}/{id}
func (h *RecordHandlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	recordType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	record, err := h.recordService.GetRecord(r.Context(), tenantID(r), recordType, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toRecordResponse(record))
}

// ListRecords handles GET /v1/records/{type}
func (h *RecordHandlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	filter := &repositories.RecordFilter{
		Type: chi.URLParam(r, "type"),
		Name: r.URL.Query().Get("name"),
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid page_size")
			return
		}
		filter.PageSize = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	records, err := h.recordService.ListRecords(r.Context(), tenantID(r), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]*recordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordResponse(record))
	}
	respondJSON(w, http.StatusOK, out)
}

// DeleteRecord handles DELETE /v1/records/{type}/{id}
func (h *RecordHandlers) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	recordType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	tenant := tenantID(r)
	if err := h.recordService.DeleteRecord(r.Context(), tenant, recordType, id); err != nil {
		respondServiceError(w, err)
		return
	}

	h.logger.Info("record deleted",
		zap.String("tenant_id", tenant),
		zap.String("type", recordType),
		zap.String("id", id))

	w.WriteHeader(http.StatusNoContent)
}
