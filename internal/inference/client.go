// Package inference is the HTTP client for the remote DermaSense model
// service. It implements the assistant.ReplyProvider capability for chat and
// exposes file analysis for uploaded attachments.
//
// The client never interprets model output beyond unwrapping the transport
// envelope; structuring the text (confidence, recommendations) is the
// assistant.Parser's job. Failures are returned as typed errors so callers
// can degrade to the offline heuristics instead of surfacing a crash.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dermasense/assistant-backend/internal/assistant"
)

// ErrUnavailable wraps transport-level failures (connection refused, timeout,
// non-2xx status). Callers should treat it as "use the offline path".
var ErrUnavailable = errors.New("inference service unavailable")

// ErrEmptyResponse is returned when the service answered 2xx with nothing
// usable in the body.
var ErrEmptyResponse = errors.New("inference service returned an empty response")

// DefaultTimeout bounds a single remote exchange. The upstream service can
// take tens of seconds on a cold model, so this is generous but finite.
const DefaultTimeout = 60 * time.Second

// Client talks to the remote inference service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Client for baseURL. A timeout <= 0 uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message string     `json:"message"`
	History []chatTurn `json:"history,omitempty"`
}

// responseEnvelope covers both shapes the service emits: chat responses carry
// "reply", analysis responses carry "analysis".
type responseEnvelope struct {
	Reply    string `json:"reply"`
	Analysis string `json:"analysis"`
}

// Reply implements assistant.ReplyProvider against POST {base}/chat.
//
// The history slice is forwarded as-is; the caller decides how many recent
// turns to include. Suggestions are not produced by the remote model.
func (c *Client) Reply(ctx context.Context, prompt string, history []assistant.Turn) (assistant.Reply, error) {
	tr := otel.Tracer("inference/Client")
	ctx, span := tr.Start(ctx, "Reply",
		trace.WithAttributes(attribute.Int("history.len", len(history))),
	)
	defer span.End()

	turns := make([]chatTurn, 0, len(history))
	for _, t := range history {
		turns = append(turns, chatTurn{Role: t.Role, Content: t.Content})
	}
	payload, err := json.Marshal(chatRequest{Message: prompt, History: turns})
	if err != nil {
		return assistant.Reply{}, fmt.Errorf("encode chat request: %w", err)
	}

	body, err := c.post(ctx, c.baseURL+"/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		return assistant.Reply{}, err
	}

	text := unwrap(body)
	if text == "" {
		return assistant.Reply{}, ErrEmptyResponse
	}
	return assistant.Reply{Text: text}, nil
}

// AnalyzeFile sends the attachment bytes to POST {base}/analyze-image as
// multipart form data and returns the raw analysis text for parsing.
func (c *Client) AnalyzeFile(ctx context.Context, filename string, data []byte) (string, error) {
	tr := otel.Tracer("inference/Client")
	ctx, span := tr.Start(ctx, "AnalyzeFile",
		trace.WithAttributes(attribute.Int("file.bytes", len(data))),
	)
	defer span.End()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}

	body, err := c.post(ctx, c.baseURL+"/analyze-image", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}

	text := unwrap(body)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// post issues the request and returns the raw body, mapping transport and
// status failures to ErrUnavailable.
func (c *Client) post(ctx context.Context, url, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return raw, nil
}

// unwrap extracts usable text from a response body: the JSON envelope fields
// when they decode, otherwise the body itself as free text.
func unwrap(body []byte) string {
	var env responseEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Analysis != "" {
			return env.Analysis
		}
		if env.Reply != "" {
			return env.Reply
		}
		return ""
	}
	return strings.TrimSpace(string(body))
}
