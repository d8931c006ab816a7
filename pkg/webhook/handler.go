// Package webhook receives channel callbacks: inbound participant messages
// on /inbound and delivery status updates on /status.
//
// Both endpoints always answer 200. The channel retries anything else,
// and a retried command would be applied twice.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/txn2/chessline/pkg/game"
)

// DefaultMaxBodyBytes caps webhook request bodies.
const DefaultMaxBodyBytes int64 = 64 << 10

// Game is the game service driven by webhook events.
type Game interface {
	Create(ctx context.Context, identity string) error
	Join(ctx context.Context, identity, code string) error
	Leave(ctx context.Context, identity string) error
	SubmitMove(ctx context.Context, identity, text string, submittedAt time.Time) error
	SendBoard(ctx context.Context, identity string) error
	Help(ctx context.Context, identity string) error
	RecordReceipt(ctx context.Context, r game.Receipt) error
}

// Config configures the webhook handler.
type Config struct {
	// Verifier checks request signatures. Nil accepts unsigned requests.
	Verifier *Verifier

	Logger       *slog.Logger
	MaxBodyBytes int64

	// Now stamps events that arrive without a usable timestamp.
	Now func() time.Time
}

// Handler serves the channel webhooks.
type Handler struct {
	mux      *http.ServeMux
	game     Game
	verifier *Verifier
	logger   *slog.Logger
	maxBody  int64
	now      func() time.Time
}

// NewHandler creates a webhook handler.
func NewHandler(g Game, cfg Config) *Handler {
	h := &Handler{
		mux:      http.NewServeMux(),
		game:     g,
		verifier: cfg.Verifier,
		logger:   cfg.Logger,
		maxBody:  cfg.MaxBodyBytes,
		now:      cfg.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}
	if h.now == nil {
		h.now = time.Now
	}
	h.mux.HandleFunc("POST /inbound", h.handleInbound)
	h.mux.HandleFunc("POST /status", h.handleStatus)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// handleInbound handles POST /inbound.
func (h *Handler) handleInbound(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	var p inboundPayload
	if !h.decode(w, r, "inbound", &p) {
		return
	}
	identity := string(p.From)
	if identity == "" {
		h.logger.Warn("inbound message without sender", "message_uuid", p.MessageUUID)
		return
	}
	submittedAt, ok := parseTimestamp(p.Timestamp, h.now())
	if !ok {
		h.logger.Debug("inbound message without usable timestamp", "message_uuid", p.MessageUUID, "timestamp", p.Timestamp)
	}

	if err := h.dispatch(r.Context(), identity, ParseCommand(p.text()), submittedAt); err != nil {
		h.logger.Error("inbound command failed",
			"identity", identity,
			"message_uuid", p.MessageUUID,
			"code", game.CodeOf(err),
			"error", err)
	}
}

func (h *Handler) dispatch(ctx context.Context, identity string, cmd Command, submittedAt time.Time) error {
	switch cmd.Kind {
	case CmdStart:
		return h.game.Create(ctx, identity)
	case CmdJoin:
		return h.game.Join(ctx, identity, cmd.Arg)
	case CmdLeave:
		return h.game.Leave(ctx, identity)
	case CmdMove:
		return h.game.SubmitMove(ctx, identity, cmd.Arg, submittedAt)
	case CmdBoard:
		return h.game.SendBoard(ctx, identity)
	default:
		return h.game.Help(ctx, identity)
	}
}

// handleStatus handles POST /status.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	var p statusPayload
	if !h.decode(w, r, "status", &p) {
		return
	}
	ts, _ := parseTimestamp(p.Timestamp, h.now())

	err := h.game.RecordReceipt(r.Context(), game.Receipt{
		MessageID: p.MessageUUID,
		Status:    p.Status,
		Recipient: string(p.To),
		Timestamp: ts,
	})
	if err != nil {
		h.logger.Error("status update failed",
			"message_uuid", p.MessageUUID,
			"status", p.Status,
			"error", err)
	}
}

// decode reads, verifies and unmarshals the request body. Problems are
// logged and reported as false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, endpoint string, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("webhook body too large", "endpoint", endpoint, "limit", tooLarge.Limit)
		} else {
			h.logger.Warn("reading webhook body", "endpoint", endpoint, "error", err)
		}
		return false
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(r, body); err != nil {
			h.logger.Warn("rejected webhook signature", "endpoint", endpoint, "error", err)
			return false
		}
	}

	if err := json.Unmarshal(body, v); err != nil {
		h.logger.Warn("malformed webhook payload", "endpoint", endpoint, "error", err)
		return false
	}
	return true
}
