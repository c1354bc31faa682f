package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/reliefworks/kioskhub/internal/api"
	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/reliefworks/kioskhub/internal/service"
)

type KBServiceInterface interface {
	CreateEntry(ctx context.Context, input service.CreateEntryInput) (*domain.KnowledgeEntry, error)
	GetEntry(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	UpdateEntry(ctx context.Context, input service.UpdateEntryInput) (*domain.KnowledgeEntry, error)
	SetEntryEnabled(ctx context.Context, id string, enabled bool) error
	DeleteEntry(ctx context.Context, id string) error
	ListEntries(ctx context.Context, input service.ListEntriesInput) (*service.ListEntriesOutput, error)
	PublishConfig(ctx context.Context, values map[string]any) error
	GetConfig(ctx context.Context) (map[string]any, error)
}

type KBHandler struct {
	svc KBServiceInterface
}

func NewKBHandler(svc KBServiceInterface) *KBHandler {
	return &KBHandler{svc: svc}
}

type CreateEntryRequest struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Provenance string   `json:"provenance"`
}

type UpdateEntryRequest struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

type EntryResponse struct {
	ID         string   `json:"id"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Category   string   `json:"category,omitempty"`
	Tags       []string `json:"tags"`
	Enabled    bool     `json:"enabled"`
	Provenance string   `json:"provenance"`
	Embedded   bool     `json:"embedded"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

func entryToResponse(e *domain.KnowledgeEntry) *EntryResponse {
	return &EntryResponse{
		ID:         e.ID,
		Question:   e.Question,
		Answer:     e.Answer,
		Category:   e.Category,
		Tags:       e.Tags,
		Enabled:    e.Enabled,
		Provenance: string(e.Provenance),
		Embedded:   len(e.Embedding) > 0,
		CreatedAt:  e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  e.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *KBHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.Answer == "" {
		api.Error(w, http.StatusBadRequest, "answer is required")
		return
	}

	entry, err := h.svc.CreateEntry(r.Context(), service.CreateEntryInput{
		Question:   req.Question,
		Answer:     req.Answer,
		Category:   req.Category,
		Tags:       req.Tags,
		Provenance: domain.EntryProvenance(req.Provenance),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, entryToResponse(entry))
}

func (h *KBHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	entry, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, entryToResponse(entry))
}

func (h *KBHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.Answer == "" {
		api.Error(w, http.StatusBadRequest, "answer is required")
		return
	}

	entry, err := h.svc.UpdateEntry(r.Context(), service.UpdateEntryInput{
		EntryID:  id,
		Question: req.Question,
		Answer:   req.Answer,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, entryToResponse(entry))
}

func (h *KBHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.SetEntryEnabled(r.Context(), id, req.Enabled); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func (h *KBHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeleteEntry(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

type EntryListResponse struct {
	Items   []*EntryResponse `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

func (h *KBHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.ListEntries(r.Context(), service.ListEntriesInput{
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*EntryResponse, len(output.Items))
	for i, e := range output.Items {
		responses[i] = entryToResponse(e)
	}

	api.Success(w, http.StatusOK, EntryListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *KBHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	values, err := h.svc.GetConfig(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, values)
}

func (h *KBHandler) PublishConfig(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(values) == 0 {
		api.Error(w, http.StatusBadRequest, "config cannot be empty")
		return
	}

	if err := h.svc.PublishConfig(r.Context(), values); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "published"})
}
