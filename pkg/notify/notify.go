// Package notify turns game events into outbound channel messages.
// Texts go out as plain messages; board snapshots go out as images
// rendered by an external service addressed through a URI template.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// DefaultBoardTemplate renders a board from the FEN piece placement.
const DefaultBoardTemplate = "http://www.fen-to-image.com/image/36/single/coords/{+placement}"

// ErrEmptyRecipient is returned when a message has no recipient.
var ErrEmptyRecipient = errors.New("empty recipient")

// Transport sends messages over the channel and returns the channel's
// message id.
type Transport interface {
	SendText(ctx context.Context, to, text string) (string, error)
	SendImage(ctx context.Context, to, imageURL string) (string, error)
}

// Config configures the dispatcher.
type Config struct {
	// BoardTemplate is an RFC 6570 template with a "placement" variable.
	BoardTemplate string

	Logger *slog.Logger
}

// Dispatcher sends texts and board images through a Transport.
type Dispatcher struct {
	transport Transport
	board     *uritemplate.Template
	logger    *slog.Logger
}

// New creates a dispatcher.
func New(transport Transport, cfg Config) (*Dispatcher, error) {
	if cfg.BoardTemplate == "" {
		cfg.BoardTemplate = DefaultBoardTemplate
	}
	tmpl, err := uritemplate.New(cfg.BoardTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid board template %q: %w", cfg.BoardTemplate, err)
	}
	if !hasVar(tmpl, "placement") {
		return nil, fmt.Errorf("board template %q has no placement variable", cfg.BoardTemplate)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{transport: transport, board: tmpl, logger: cfg.Logger}, nil
}

// Text sends a plain text message.
func (d *Dispatcher) Text(ctx context.Context, to, body string) error {
	if to == "" {
		return ErrEmptyRecipient
	}
	id, err := d.transport.SendText(ctx, to, body)
	if err != nil {
		return fmt.Errorf("sending text: %w", err)
	}
	d.logger.Debug("text sent", "to", to, "message_id", id)
	return nil
}

// Board sends the board image for position and returns the message id.
func (d *Dispatcher) Board(ctx context.Context, to, position string) (string, error) {
	if to == "" {
		return "", ErrEmptyRecipient
	}
	url, err := d.BoardURL(position)
	if err != nil {
		return "", err
	}
	id, err := d.transport.SendImage(ctx, to, url)
	if err != nil {
		return "", fmt.Errorf("sending board: %w", err)
	}
	d.logger.Debug("board sent", "to", to, "message_id", id)
	return id, nil
}

// BoardURL expands the board template for position.
func (d *Dispatcher) BoardURL(position string) (string, error) {
	vals := uritemplate.Values{}
	vals.Set("placement", uritemplate.String(Placement(position)))
	url, err := d.board.Expand(vals)
	if err != nil {
		return "", fmt.Errorf("expanding board template: %w", err)
	}
	return url, nil
}

// Placement returns the piece placement field of a FEN position.
func Placement(position string) string {
	fields := strings.Fields(position)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func hasVar(tmpl *uritemplate.Template, name string) bool {
	for _, v := range tmpl.Varnames() {
		if v == name {
			return true
		}
	}
	return false
}
