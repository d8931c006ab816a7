// Package messaging is a client for the Vonage Messages API, used to send
// text and image messages to players over the Messenger channel.
package messaging

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the Vonage API host.
	DefaultBaseURL = "https://api.nexmo.com"

	// DefaultChannel is the channel messages are sent on.
	DefaultChannel = "messenger"

	defaultTokenTTL = 15 * time.Minute
	defaultTimeout  = 10 * time.Second

	messagesPath = "/v1/messages"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Message types accepted by the Messages API.
const (
	TypeText  = "text"
	TypeImage = "image"
)

// Config configures the client.
type Config struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string

	// ApplicationID identifies the Vonage application that signs requests.
	ApplicationID string

	// PrivateKey is the application's PEM-encoded RSA private key.
	PrivateKey []byte

	// From is the sender id on the channel, for Messenger the page id.
	From string

	// Channel defaults to DefaultChannel.
	Channel string

	// TokenTTL is the lifetime of each request JWT.
	TokenTTL time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Client sends messages through the Messages API.
type Client struct {
	baseURL       string
	applicationID string
	key           *rsa.PrivateKey
	from          string
	channel       string
	tokenTTL      time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
	now           func() time.Time
}

// NewClient creates a client, parsing the private key up front.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ApplicationID == "" {
		return nil, errors.New("messaging: application id is required")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, errors.New("messaging: private key is required")
	}
	if cfg.From == "" {
		return nil, errors.New("messaging: sender id is required")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("messaging: parsing private key: %w", err)
	}

	c := &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		applicationID: cfg.ApplicationID,
		key:           key,
		from:          cfg.From,
		channel:       cfg.Channel,
		tokenTTL:      cfg.TokenTTL,
		httpClient:    cfg.HTTPClient,
		logger:        cfg.Logger,
		now:           cfg.Now,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.channel == "" {
		c.channel = DefaultChannel
	}
	if c.tokenTTL <= 0 {
		c.tokenTTL = defaultTokenTTL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

type image struct {
	URL string `json:"url"`
}

type outbound struct {
	MessageType string `json:"message_type"`
	To          string `json:"to"`
	From        string `json:"from"`
	Channel     string `json:"channel"`
	Text        string `json:"text,omitempty"`
	Image       *image `json:"image,omitempty"`
}

type sendResponse struct {
	MessageUUID string `json:"message_uuid"`
}

// SendText sends a text message and returns its message uuid.
func (c *Client) SendText(ctx context.Context, to, text string) (string, error) {
	return c.send(ctx, outbound{MessageType: TypeText, To: to, Text: text})
}

// SendImage sends an image by URL and returns its message uuid.
func (c *Client) SendImage(ctx context.Context, to, imageURL string) (string, error) {
	return c.send(ctx, outbound{MessageType: TypeImage, To: to, Image: &image{URL: imageURL}})
}

func (c *Client) send(ctx context.Context, msg outbound) (string, error) {
	msg.From = c.from
	msg.Channel = c.channel

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("messaging: marshaling message: %w", err)
	}

	token, err := c.token()
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("messaging: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("messaging: sending %s message: %w", msg.MessageType, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", parseError(resp)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("messaging: decoding response: %w", err)
	}
	if out.MessageUUID == "" {
		return "", errors.New("messaging: response has no message_uuid")
	}

	c.logger.Debug("message sent",
		"type", msg.MessageType,
		"to", msg.To,
		"message_uuid", out.MessageUUID,
	)
	return out.MessageUUID, nil
}

// token signs a short-lived application JWT.
func (c *Client) token() (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"application_id": c.applicationID,
		"iat":            now.Unix(),
		"exp":            now.Add(c.tokenTTL).Unix(),
		"jti":            uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("messaging: signing token: %w", err)
	}
	return signed, nil
}

func parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(raw) > 0 && json.Unmarshal(raw, apiErr) != nil {
		apiErr.Detail = strings.TrimSpace(string(raw))
	}
	return apiErr
}
