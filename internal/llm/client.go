// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is a small client for an OpenAI-compatible language model
// service: chat completions for drafting and duplicate judgement, and image
// generation for covers. Every failure wraps ErrUnavailable so callers can
// degrade instead of failing the run.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/daily-digest/internal/httputil"
	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// ErrUnavailable marks any failure of the model service.
var ErrUnavailable = errors.New("language model unavailable")

const (
	chatPath  = "/v1/chat/completions"
	imagePath = "/v1/images/generations"

	// maxImageBytes caps a downloaded image.
	maxImageBytes = 20 << 20
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System and User build messages with the matching role.
func System(content string) Message { return Message{Role: "system", Content: content} }
func User(content string) Message   { return Message{Role: "user", Content: content} }

// ChatOptions tunes one completion.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// Chatter is the chat capability consumers depend on.
type Chatter interface {
	Chat(ctx context.Context, msgs []Message, opts ChatOptions) (string, error)
}

// Client calls the chat and image endpoints with bearer auth.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	imageModel string
	maxRetries int
	http       *http.Client
	ua         string
	logger     *log.Logger
}

// New returns a client for cfg. A nil http client gets one with the
// configured timeout.
func New(cfg types.AIConfig, httpCfg types.HTTPConfig, client *http.Client, logger *log.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: httpCfg.Timeout}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com"
	}
	ua := httpCfg.UserAgent
	if ua == "" {
		ua = httputil.DefaultUserAgent
	}
	return &Client{
		baseURL:    strings.TrimSuffix(base, "/v1"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		maxRetries: cfg.MaxRetries,
		http:       client,
		ua:         ua,
		logger:     logging.Component(logger, "llm"),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Chat returns the content of the first completion choice.
func (c *Client) Chat(ctx context.Context, msgs []Message, opts ChatOptions) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("%w: no API key", ErrUnavailable)
	}
	var out chatResponse
	err := c.post(ctx, chatPath, chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrUnavailable)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

// Image generates one image and returns its encoded bytes. Inline base64 is
// preferred; a URL answer is downloaded.
func (c *Client) Image(ctx context.Context, prompt, size string) ([]byte, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: no API key", ErrUnavailable)
	}
	var out imageResponse
	err := c.post(ctx, imagePath, imageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		Size:           size,
		N:              1,
		ResponseFormat: "b64_json",
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%w: no image data", ErrUnavailable)
	}
	if b64 := out.Data[0].B64JSON; b64 != "" {
		img, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding image: %w", ErrUnavailable, err)
		}
		return img, nil
	}
	if out.Data[0].URL == "" {
		return nil, fmt.Errorf("%w: image without payload", ErrUnavailable)
	}
	return c.download(ctx, out.Data[0].URL)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.ua)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		c.logger.Warn("model API error", "path", path, "err", err)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", c.ua)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: downloading image: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("%w: downloading image: %w", ErrUnavailable, err)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading image: %w", ErrUnavailable, err)
	}
	return data, nil
}
