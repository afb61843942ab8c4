package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/dispatch"
	"outbound-reply-pipeline/pkg/models"
	"outbound-reply-pipeline/pkg/pipeline"
)

type Handler struct {
	orchestrator *pipeline.Orchestrator
	producer     *dispatch.StreamProducer
	logger       *logrus.Logger
}

// NewHandler wires the orchestrator and an optional stream producer; pass a
// nil producer to skip dispatch.
func NewHandler(orchestrator *pipeline.Orchestrator, producer *dispatch.StreamProducer, logger *logrus.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		producer:     producer,
		logger:       logger,
	}
}

type processRequest struct {
	Reply          string                 `json:"reply"`
	UserMessage    string                 `json:"user_message"`
	Mode           string                 `json:"mode,omitempty"`
	Channel        string                 `json:"channel,omitempty"`
	IsFirstMessage bool                   `json:"is_first_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// ProcessTurn runs the raw candidate reply through the pipeline and returns
// the finalized response for the delivery layer.
func (h *Handler) ProcessTurn(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conversationID := vars["id"]

	if conversationID == "" {
		http.Error(w, "Missing conversation ID", http.StatusBadRequest)
		return
	}

	var request processRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if request.Reply == "" {
		http.Error(w, "Missing reply", http.StatusBadRequest)
		return
	}

	pctx := models.NewProcessingContext(
		conversationID,
		models.BotMode(request.Mode),
		models.Channel(request.Channel),
		request.UserMessage,
		request.IsFirstMessage,
	)
	for key, value := range request.Metadata {
		pctx.Metadata[key] = value
	}

	resp := h.orchestrator.Process(r.Context(), request.Reply, pctx)

	if h.producer != nil {
		if err := h.producer.Publish(r.Context(), pctx, resp); err != nil {
			// Dispatch is best-effort from the API's point of view; the
			// processed response still goes back to the caller.
			h.logger.WithError(err).WithField("conversation_id", conversationID).Error("Failed to dispatch reply")
		}
	}

	response := map[string]interface{}{
		"response_id":       resp.ResponseID,
		"conversation_id":   conversationID,
		"message":           resp.Message,
		"action":            resp.Action,
		"detected_language": pctx.DetectedLanguage,
		"is_opt_out":        pctx.IsOptOut,
		"compliance_flags":  resp.ComplianceFlags,
		"side_effects":      resp.SideEffects,
		"audit_log":         resp.AuditLog,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	h.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"action":          resp.Action,
	}).Debug("Processed outbound reply")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"stages":    h.orchestrator.StageNames(),
		"dispatch":  h.producer != nil,
		"timestamp": time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
