package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/apperrors"
	"github.com/datasage-io/datasage-engine/pkg/models"
)

// Answerer runs one question through the query pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string) (*models.Answer, error)
}

// AskRequest is the POST /api/ask body.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the answer envelope returned to the caller.
type AskResponse struct {
	Narrative string                `json:"narrative"`
	SQL       *string               `json:"sql,omitempty"`
	Columns   []string              `json:"columns,omitempty"`
	Rows      []models.Row          `json:"rows,omitempty"`
	Metadata  models.AnswerMetadata `json:"metadata"`
}

// AskHandler exposes the pipeline over HTTP.
type AskHandler struct {
	pipeline Answerer
	logger   *zap.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(pipeline Answerer, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// RegisterRoutes registers the ask handler's routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", h.Ask)
}

// Ask handles POST /api/ask requests. Pipeline outcomes other than a fully
// answered question still return 200: the envelope's metadata.outcome tells
// the caller what happened, and the narrative explains it to the user.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a question field")
		return
	}

	answer, err := h.pipeline.Answer(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, apperrors.ErrEmptyQuestion) {
			_ = ErrorResponse(w, http.StatusBadRequest, "empty_question", "question must not be empty")
			return
		}
		h.logger.Error("Pipeline failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to process the question")
		return
	}

	resp := AskResponse{
		Narrative: answer.Narrative,
		SQL:       answer.SQL,
		Columns:   answer.Columns,
		Rows:      answer.Rows,
		Metadata:  answer.Metadata,
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode ask response", zap.Error(err))
	}
}
