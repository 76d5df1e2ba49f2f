package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const DefaultModel = goopenai.GPT4oMini

var ErrEmptyResponse = errors.New("empty response")

// Client es el generador alternativo (GEN_PROVIDER=openai), contra la API de
// OpenAI o cualquier endpoint compatible.
type Client struct {
	api     *goopenai.Client
	model   string
	limiter *rate.Limiter
}

type Option func(*options)

type options struct {
	baseURL string
	model   string
	http    *http.Client
	rps     float64
}

func WithBaseURL(u string) Option          { return func(o *options) { o.baseURL = u } }
func WithModel(m string) Option            { return func(o *options) { o.model = m } }
func WithHTTPClient(h *http.Client) Option { return func(o *options) { o.http = h } }
func WithRateLimit(rps float64) Option     { return func(o *options) { o.rps = rps } }

func New(token string, opts ...Option) *Client {
	o := options{model: DefaultModel, http: &http.Client{Timeout: 90 * time.Second}}
	for _, fn := range opts {
		fn(&o)
	}

	cfg := goopenai.DefaultConfig(token)
	cfg.HTTPClient = o.http
	if o.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(o.baseURL, "/")
	}

	c := &Client{api: goopenai.NewClientWithConfig(cfg), model: o.model}
	if c.model == "" {
		c.model = DefaultModel
	}
	if o.rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(o.rps), 1)
	}
	return c
}

func (c *Client) Model() string { return c.model }

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
