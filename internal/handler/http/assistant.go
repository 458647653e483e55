package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/reviewhub/internal/service"
	"github.com/utafrali/reviewhub/pkg/httputil"
)

// AssistantHandler handles HTTP requests for the review assistant.
type AssistantHandler struct {
	assistant *service.AssistantService
	logger    *slog.Logger
}

// NewAssistantHandler creates a new assistant HTTP handler.
func NewAssistantHandler(assistant *service.AssistantService, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, logger: logger}
}

// AskRequest is the JSON body for asking the assistant a question.
type AskRequest struct {
	Question string `json:"question" validate:"required,mintrim=1,max=500"`
}

// StartConversation handles POST /api/v1/products/{productId}/assistant/conversations
func (h *AssistantHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	started, err := h.assistant.StartConversation(r.Context(), productID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: started})
}

// GetConversation handles GET /api/v1/assistant/conversations/{conversationId}
func (h *AssistantHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	convID, ok := httputil.ParseUUID(w, chi.URLParam(r, "conversationId"))
	if !ok {
		return
	}

	conv, err := h.assistant.GetConversation(r.Context(), convID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: conv})
}

// Ask handles POST /api/v1/assistant/conversations/{conversationId}/messages
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	convID, ok := httputil.ParseUUID(w, chi.URLParam(r, "conversationId"))
	if !ok {
		return
	}

	var req AskRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	exchange, err := h.assistant.Ask(r.Context(), convID.String(), req.Question)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: exchange})
}

// Answer handles POST /api/v1/products/{productId}/assistant/answers
func (h *AssistantHandler) Answer(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var req AskRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	answer, err := h.assistant.Answer(r.Context(), productID.String(), req.Question)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: answer})
}
