package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/gateway"
	"github.com/hireloop/hireloop-api/internal/repository"
)

type MessageHandler struct {
	gateway  *gateway.MessageGateway
	messages repository.MessageRepository
	logger   zerolog.Logger
}

func NewMessageHandler(gw *gateway.MessageGateway, messages repository.MessageRepository, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		gateway:  gw,
		messages: messages,
		logger:   logger.With().Str("component", "message_handler").Logger(),
	}
}

// GenerateMessage asks the generator for an outreach draft and returns the
// stored result. A generation failure persists nothing.
func (h *MessageHandler) GenerateMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ContactID string `json:"contact_id"`
		JobID     string `json:"job_id"`
		Tone      string `json:"tone"`
		Channel   string `json:"channel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.ContactID == "" || payload.JobID == "" {
		writeError(w, http.StatusBadRequest, "contact_id and job_id are required")
		return
	}

	msg, err := h.gateway.Generate(r.Context(), payload.ContactID, payload.JobID, payload.Tone, payload.Channel)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "Contact or job not found")
		case errors.Is(err, gateway.ErrMalformedResponse):
			writeError(w, http.StatusBadGateway, "Generator returned a malformed response")
		default:
			h.logger.Error().Err(err).Str("contact_id", payload.ContactID).Msg("Message generation failed")
			writeError(w, http.StatusBadGateway, "Message generation failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// LatestMessage returns the most recent draft for a contact/job pair.
// Generation is not idempotent, so the newest row is the display row.
func (h *MessageHandler) LatestMessage(w http.ResponseWriter, r *http.Request) {
	contactID := r.URL.Query().Get("contact_id")
	jobID := r.URL.Query().Get("job_id")
	if contactID == "" || jobID == "" {
		writeError(w, http.StatusBadRequest, "contact_id and job_id are required")
		return
	}

	msg, err := h.messages.LatestForPair(r.Context(), contactID, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No message for this contact and job")
			return
		}
		h.logger.Error().Err(err).Str("contact_id", contactID).Str("job_id", jobID).Msg("Failed to fetch message")
		writeError(w, http.StatusInternalServerError, "Failed to fetch message")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
