package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/authz"
	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
	syncpkg "github.com/hireloop/hireloop-api/internal/sync"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamHandler serves the live view of an active run over a websocket.
// Each connection gets its own synchronizer and contact resolver; closing
// the socket tears both down.
type StreamHandler struct {
	runs     repository.RunRepository
	jobs     repository.JobRepository
	contacts repository.ContactRepository
	feed     syncpkg.Feed
	syncOpts syncpkg.Options
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewStreamHandler(runs repository.RunRepository, jobs repository.JobRepository, contacts repository.ContactRepository, feed syncpkg.Feed, syncOpts syncpkg.Options, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		runs:     runs,
		jobs:     jobs,
		contacts: contacts,
		feed:     feed,
		syncOpts: syncOpts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "stream_handler").Logger(),
	}
}

type inboundMessage struct {
	Type   string `json:"type"`
	JobID  string `json:"job_id,omitempty"`
	Filter string `json:"filter,omitempty"` // query-string encoded
}

type outboundMessage struct {
	Type       string           `json:"type"`
	Phase      models.RunStatus `json:"phase,omitempty"`
	Jobs       []models.Job     `json:"jobs,omitempty"`
	Stats      json.RawMessage  `json:"stats,omitempty"`
	StopReason string           `json:"stop_reason,omitempty"`
	Job        *models.Job      `json:"job,omitempty"`
	Contacts   []models.Contact `json:"contacts,omitempty"`
	Data       []models.Job     `json:"data,omitempty"`
	Total      int              `json:"total,omitempty"`
	Page       int              `json:"page,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Stream upgrades the connection and streams snapshots until the run ends
// or the client disconnects.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	claims, ok := authz.RunClaimsFromRequest(r)
	if !ok || claims.RunID != runID {
		writeError(w, http.StatusUnauthorized, "run access requires a matching credential")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := &streamSession{
		handler:  h,
		conn:     conn,
		runID:    runID,
		sync:     syncpkg.New(claims, h.runs, h.jobs, h.feed, h.syncOpts, h.logger),
		resolver: syncpkg.NewContactResolver(h.contacts, h.logger),
		outbound: make(chan outboundMessage, 16),
		logger:   h.logger.With().Str("run_id", runID).Logger(),
	}
	defer session.resolver.Close()

	session.run(ctx, cancel)
}

type streamSession struct {
	handler  *StreamHandler
	conn     *websocket.Conn
	runID    string
	sync     *syncpkg.Synchronizer
	resolver *syncpkg.ContactResolver
	outbound chan outboundMessage
	logger   zerolog.Logger

	// latest filter the client applied, used for page resets
	filter    repository.JobFilter
	hasFilter bool
}

func (s *streamSession) run(ctx context.Context, cancel context.CancelFunc) {
	syncDone := make(chan error, 1)
	go func() {
		syncDone <- s.sync.Run(ctx)
	}()

	go s.writePump(ctx, cancel)
	go s.forward(ctx, syncDone)

	s.readPump(ctx, cancel)
}

// readPump handles client messages until the connection drops. It is the
// goroutine that owns the session's filter state.
func (s *streamSession) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	s.conn.SetReadLimit(4096)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("Websocket closed unexpectedly")
			}
			return
		}
		switch msg.Type {
		case "select_job":
			s.selectJob(ctx, msg.JobID)
		case "filter":
			s.applyFilter(ctx, msg.Filter)
		default:
			s.send(ctx, outboundMessage{Type: "error", Error: "unknown message type"})
		}
	}
}

func (s *streamSession) selectJob(ctx context.Context, jobID string) {
	if jobID == "" {
		s.send(ctx, outboundMessage{Type: "error", Error: "job_id is required"})
		return
	}
	job, err := s.handler.jobs.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.send(ctx, outboundMessage{Type: "error", Error: "job not found"})
		} else {
			s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to fetch selected job")
			s.send(ctx, outboundMessage{Type: "error", Error: "failed to fetch job"})
		}
		return
	}
	s.resolver.Select(ctx, job)
}

// applyFilter parses a query-string encoded filter, resets the page when
// the criteria changed and replies with the matching page.
func (s *streamSession) applyFilter(ctx context.Context, raw string) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		s.send(ctx, outboundMessage{Type: "error", Error: "malformed filter"})
		return
	}
	next, err := repository.ParseJobFilter(values)
	if err != nil {
		s.send(ctx, outboundMessage{Type: "error", Error: err.Error()})
		return
	}
	next.RunID = &s.runID
	if s.hasFilter {
		next = repository.ResetPageOnChange(s.filter, next)
	}
	s.filter = next
	s.hasFilter = true

	jobs, total, err := s.handler.jobs.List(ctx, next)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list filtered jobs")
		s.send(ctx, outboundMessage{Type: "error", Error: "failed to list jobs"})
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	s.send(ctx, outboundMessage{
		Type:  "page",
		Data:  jobs,
		Total: total,
		Page:  next.Page,
		Limit: next.PageSize,
	})
}

// forward moves synchronizer snapshots and contact resolutions onto the
// socket, and closes the session once the sync loop ends.
func (s *streamSession) forward(ctx context.Context, syncDone <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-s.sync.Updates():
			msg := outboundMessage{
				Type:       "snapshot",
				Phase:      snap.Phase,
				Jobs:       snap.Jobs,
				Stats:      snap.Stats,
				StopReason: snap.StopReason,
			}
			if snap.Err != nil {
				msg.Error = snap.Err.Error()
			}
			s.send(ctx, msg)
		case sel := <-s.resolver.Results():
			msg := outboundMessage{
				Type:     "contacts",
				Job:      &sel.Job,
				Contacts: sel.Contacts,
			}
			if sel.Err != nil {
				msg.Error = sel.Err.Error()
			}
			s.send(ctx, msg)
		case err := <-syncDone:
			// Drain the final snapshot before reporting the end.
			select {
			case snap := <-s.sync.Updates():
				msg := outboundMessage{
					Type:       "snapshot",
					Phase:      snap.Phase,
					Jobs:       snap.Jobs,
					Stats:      snap.Stats,
					StopReason: snap.StopReason,
				}
				if snap.Err != nil {
					msg.Error = snap.Err.Error()
				}
				s.send(ctx, msg)
			default:
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				s.send(ctx, outboundMessage{Type: "error", Error: err.Error()})
			}
			return
		}
	}
}

func (s *streamSession) send(ctx context.Context, msg outboundMessage) {
	select {
	case s.outbound <- msg:
	case <-ctx.Done():
	}
}

// writePump is the only goroutine writing to the connection.
func (s *streamSession) writePump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-s.outbound:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
