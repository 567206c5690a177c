package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
)

type stubMessageRepo struct {
	latest map[string]models.OutreachMessage
}

func (s *stubMessageRepo) CreateMessage(ctx context.Context, msg models.OutreachMessage) (models.OutreachMessage, error) {
	if s.latest == nil {
		s.latest = map[string]models.OutreachMessage{}
	}
	msg.CreatedAt = time.Now()
	msg.UpdatedAt = msg.CreatedAt
	s.latest[msg.ContactID+"/"+msg.JobID] = msg
	return msg, nil
}

func (s *stubMessageRepo) LatestForPair(ctx context.Context, contactID, jobID string) (models.OutreachMessage, error) {
	msg, ok := s.latest[contactID+"/"+jobID]
	if !ok {
		return models.OutreachMessage{}, repository.ErrNotFound
	}
	return msg, nil
}

func newMessageHandler(messages repository.MessageRepository) *MessageHandler {
	return NewMessageHandler(nil, messages, zerolog.Nop())
}

func TestLatestMessageReturnsNewestDraft(t *testing.T) {
	messages := &stubMessageRepo{}
	messages.CreateMessage(context.Background(), models.OutreachMessage{
		MessageID: "m1", ContactID: "ct1", JobID: "j1",
		Subject: "Old draft", Body: "first", Status: models.MessageDraft,
	})
	messages.CreateMessage(context.Background(), models.OutreachMessage{
		MessageID: "m2", ContactID: "ct1", JobID: "j1",
		Subject: "New draft", Body: "second", Status: models.MessageDraft,
	})
	h := newMessageHandler(messages)

	req := httptest.NewRequest(http.MethodGet, "/api/messages/latest?contact_id=ct1&job_id=j1", nil)
	rec := httptest.NewRecorder()
	h.LatestMessage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var msg models.OutreachMessage
	if err := json.NewDecoder(rec.Body).Decode(&msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.MessageID != "m2" {
		t.Fatalf("expected the newest draft, got %s", msg.MessageID)
	}
	if msg.Status != models.MessageDraft {
		t.Fatalf("unexpected status %s", msg.Status)
	}
}

func TestLatestMessageNotFound(t *testing.T) {
	h := newMessageHandler(&stubMessageRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/messages/latest?contact_id=ct1&job_id=j1", nil)
	rec := httptest.NewRecorder()
	h.LatestMessage(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("pair without a draft should be 404, got %d", rec.Code)
	}
}

func TestLatestMessageRequiresPair(t *testing.T) {
	h := newMessageHandler(&stubMessageRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/messages/latest?contact_id=ct1", nil)
	rec := httptest.NewRecorder()
	h.LatestMessage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing job_id should be 400, got %d", rec.Code)
	}
}
