package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

const (
	defaultMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion   = "2023-06-01"
	defaultMaxTokens   = 1024
)

// Model identifies a Claude model available through the Messages API.
type Model string

const (
	ModelHaiku3    Model = "claude-3-haiku-20240307"
	ModelSonnet3   Model = "claude-3-sonnet-20240229"
	ModelSonnet3P5 Model = "claude-3-5-sonnet-20241022"
)

// HTTPClient abstracts HTTP calls for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SendError is returned when the Messages API answers with a non-200 status.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("claude send failed (status=%d): %s", e.StatusCode, e.Body)
}

// ClaudeClient talks to the Anthropic Messages API. It keeps a rolling
// conversation history of user/assistant turn pairs that is replayed on
// every send, optionally limited to the most recent pairs.
type ClaudeClient struct {
	apiKey       string
	model        Model
	systemPrompt string
	url          string
	maxTokens    int
	historyLimit int // 0 means unlimited
	httpClient   HTTPClient
	logger       *slog.Logger

	mu      sync.Mutex
	history [][]Message // pairs of (user, assistant) turns
}

// ClaudeOption configures a ClaudeClient.
type ClaudeOption func(*ClaudeClient)

// WithModel sets the model.
func WithModel(m Model) ClaudeOption {
	return func(c *ClaudeClient) { c.model = m }
}

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(prompt string) ClaudeOption {
	return func(c *ClaudeClient) { c.systemPrompt = prompt }
}

// WithMessagesURL overrides the Messages API endpoint (for testing).
func WithMessagesURL(url string) ClaudeOption {
	return func(c *ClaudeClient) { c.url = url }
}

// WithMaxTokens sets the completion token budget.
func WithMaxTokens(n int) ClaudeOption {
	return func(c *ClaudeClient) { c.maxTokens = n }
}

// WithHistoryLimit caps how many recent turn pairs are replayed per request.
func WithHistoryLimit(n int) ClaudeOption {
	return func(c *ClaudeClient) { c.historyLimit = n }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc HTTPClient) ClaudeOption {
	return func(c *ClaudeClient) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClaudeOption {
	return func(c *ClaudeClient) { c.logger = l }
}

// NewClaudeClient creates a Claude Messages API client.
func NewClaudeClient(apiKey string, opts ...ClaudeOption) *ClaudeClient {
	c := &ClaudeClient{
		apiKey:     apiKey,
		model:      ModelSonnet3P5,
		url:        defaultMessagesURL,
		maxTokens:  defaultMaxTokens,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messagesRequest struct {
	Model     Model     `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
	System    string    `json:"system,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Send posts the message with the replayed history and returns the complete
// answer.
func (c *ClaudeClient) Send(ctx context.Context, message string) (string, error) {
	resp, err := c.post(ctx, message, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("claude decode response: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("claude response has no content blocks")
	}

	answer := result.Content[0].Text
	c.recordTurn(message, answer)
	return answer, nil
}

// SendStream posts the message with streaming enabled, invoking onDelta for
// each text fragment as it arrives, and returns the assembled answer. The
// stream ends at the message_stop event.
func (c *ClaudeClient) SendStream(ctx context.Context, message string, onDelta func(text string)) (string, error) {
	resp, err := c.post(ctx, message, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	answer, err := readEventStream(resp.Body, onDelta)
	if err != nil {
		return "", err
	}

	c.recordTurn(message, answer)
	return answer, nil
}

func (c *ClaudeClient) post(ctx context.Context, message string, stream bool) (*http.Response, error) {
	payload := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  append(c.recentHistory(), Message{Role: "user", Content: message}),
		System:    c.systemPrompt,
		Stream:    stream,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("claude marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("claude create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("claude send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &SendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return resp, nil
}

// recentHistory flattens the replayable history, applying the limit.
func (c *ClaudeClient) recentHistory() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	pairs := c.history
	if c.historyLimit > 0 && len(pairs) > c.historyLimit {
		pairs = pairs[len(pairs)-c.historyLimit:]
	}

	var out []Message
	for _, pair := range pairs {
		out = append(out, pair...)
	}
	return out
}

func (c *ClaudeClient) recordTurn(message, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, []Message{
		{Role: "user", Content: message},
		{Role: "assistant", Content: answer},
	})
}

// ResetHistory drops the conversation history.
func (c *ClaudeClient) ResetHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

type streamDelta struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
}

// readEventStream consumes a Messages API SSE body, accumulating
// content_block_delta text until the message_stop event.
func readEventStream(r io.Reader, onDelta func(text string)) (string, error) {
	var answer strings.Builder
	currentEvent := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if after, ok := strings.CutPrefix(line, "event: "); ok {
			currentEvent = after
			if currentEvent == "message_stop" {
				break
			}
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok || currentEvent != "content_block_delta" {
			continue
		}

		var delta streamDelta
		if err := json.Unmarshal([]byte(data), &delta); err != nil {
			return "", fmt.Errorf("claude decode stream event: %w", err)
		}
		if delta.Type != "content_block_delta" {
			continue
		}
		answer.WriteString(delta.Delta.Text)
		if onDelta != nil {
			onDelta(delta.Delta.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("claude read stream: %w", err)
	}

	return answer.String(), nil
}
