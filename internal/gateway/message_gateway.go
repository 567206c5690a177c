// Package gateway bridges outreach message generation to an external
// generator service and persists the results.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
)

// ErrMalformedResponse marks a generator reply that was not valid JSON even
// after one retry. Nothing is persisted when generation fails.
var ErrMalformedResponse = errors.New("generator returned a malformed response")

const maxResponseBytes = 1 << 20

// MessageGateway generates an outreach draft for a contact/job pair and
// stores it. Failures leave the store untouched.
type MessageGateway struct {
	webhookURL string
	http       *http.Client
	contacts   repository.ContactRepository
	jobs       repository.JobRepository
	messages   repository.MessageRepository
	logger     zerolog.Logger
}

func NewMessageGateway(webhookURL string, timeout time.Duration, contacts repository.ContactRepository, jobs repository.JobRepository, messages repository.MessageRepository, logger zerolog.Logger) *MessageGateway {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &MessageGateway{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: timeout},
		contacts:   contacts,
		jobs:       jobs,
		messages:   messages,
		logger:     logger.With().Str("component", "message_gateway").Logger(),
	}
}

type generateRequest struct {
	Contact models.Contact `json:"contact"`
	Job     models.Job     `json:"job"`
	Tone    string         `json:"tone,omitempty"`
	Channel string         `json:"channel"`
}

type generateResponse struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Generate loads the contact and job, asks the generator for a draft and
// persists it. The returned message carries the stored identifiers.
func (g *MessageGateway) Generate(ctx context.Context, contactID, jobID, tone, channel string) (models.OutreachMessage, error) {
	contact, err := g.contacts.GetContact(ctx, contactID)
	if err != nil {
		return models.OutreachMessage{}, errors.Wrap(err, "load contact")
	}
	job, err := g.jobs.GetJob(ctx, jobID)
	if err != nil {
		return models.OutreachMessage{}, errors.Wrap(err, "load job")
	}
	if channel == "" {
		channel = "email"
	}

	payload, err := json.Marshal(generateRequest{Contact: contact, Job: job, Tone: tone, Channel: channel})
	if err != nil {
		return models.OutreachMessage{}, errors.Wrap(err, "encode generate request")
	}

	draft, err := g.call(ctx, payload)
	if err != nil {
		return models.OutreachMessage{}, err
	}

	msg := models.OutreachMessage{
		MessageID: uuid.NewString(),
		ContactID: contactID,
		JobID:     jobID,
		CompanyID: job.CompanyID,
		Channel:   channel,
		Subject:   draft.Subject,
		Body:      draft.Body,
		Status:    models.MessageDraft,
	}
	if tone != "" {
		msg.Tone = &tone
	}
	stored, err := g.messages.CreateMessage(ctx, msg)
	if err != nil {
		return models.OutreachMessage{}, errors.Wrap(err, "store message")
	}
	return stored, nil
}

// call posts the payload and decodes the JSON reply, retrying once on a
// non-JSON body before giving up with ErrMalformedResponse.
func (g *MessageGateway) call(ctx context.Context, payload []byte) (generateResponse, error) {
	var out generateResponse
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			g.logger.Warn().Msg("Retrying after malformed generator response")
		}
		raw, err := g.post(ctx, payload)
		if err != nil {
			return generateResponse{}, err
		}
		if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
			return out, nil
		}
		lastErr = ErrMalformedResponse
	}
	return generateResponse{}, lastErr
}

func (g *MessageGateway) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build generator request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call generator")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read generator response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("generator returned status %d", resp.StatusCode)
	}
	return raw, nil
}
