package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/reliefworks/kioskhub/internal/api"
	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/reliefworks/kioskhub/internal/service"
)

type QueryService interface {
	Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error)
	RecordFeedback(ctx context.Context, input service.FeedbackInput) error
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type AskRequest struct {
	KioskID          string   `json:"kiosk_id"`
	SessionID        string   `json:"session_id"`
	Query            string   `json:"query"`
	Language         string   `json:"language"`
	SelectedCategory string   `json:"selected_category,omitempty"`
	ExcludeIDs       []string `json:"exclude_ids,omitempty"`
}

type EntryRefResponse struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

type AskResponse struct {
	AnswerType       string            `json:"answer_type"`
	AnswerText       string            `json:"answer_text,omitempty"`
	Confidence       float64           `json:"confidence"`
	EntryID          string            `json:"entry_id,omitempty"`
	Entry            *EntryRefResponse `json:"entry,omitempty"`
	Categories       []string          `json:"categories,omitempty"`
	Intent           string            `json:"intent,omitempty"`
	IntentConfidence float64           `json:"intent_confidence"`
	QueryLogID       string            `json:"query_log_id,omitempty"`
	RewriteApplied   bool              `json:"rewrite_applied"`
}

func askToResponse(out *service.AskOutput) *AskResponse {
	result := out.Result
	resp := &AskResponse{
		AnswerType:       string(result.Type),
		AnswerText:       result.AnswerText,
		Confidence:       result.Confidence,
		EntryID:          result.EntryID,
		Categories:       result.Categories,
		Intent:           result.Intent,
		IntentConfidence: result.IntentConfidence,
		QueryLogID:       out.QueryLogID,
		RewriteApplied:   out.RewriteApplied,
	}
	if result.Entry != nil {
		resp.Entry = &EntryRefResponse{
			ID:       result.Entry.ID,
			Question: result.Entry.Question,
			Category: result.Entry.Category,
			Tags:     result.Entry.Tags,
		}
	}
	return resp
}

func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	out, err := h.svc.Ask(r.Context(), service.AskInput{
		KioskID:          req.KioskID,
		SessionID:        req.SessionID,
		Query:            req.Query,
		Language:         req.Language,
		SelectedCategory: req.SelectedCategory,
		ExcludeIDs:       req.ExcludeIDs,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, askToResponse(out))
}

type FeedbackRequest struct {
	EntryID   string `json:"entry_id"`
	KioskID   string `json:"kiosk_id"`
	SessionID string `json:"session_id"`
	Label     int    `json:"label"`
}

func (h *QueryHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.svc.RecordFeedback(r.Context(), service.FeedbackInput{
		EntryID:   req.EntryID,
		KioskID:   req.KioskID,
		SessionID: req.SessionID,
		Label:     domain.FeedbackLabel(req.Label),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}
