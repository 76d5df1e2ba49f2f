package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBase  = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel = "gemini-2.5-flash"
)

type Client struct {
	apiKey  string
	model   string
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   DefaultModel,
		http:    &http.Client{Timeout: 90 * time.Second},
		baseURL: defaultBase,
	}
	for _, o := range opts {
		o(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

func (c *Client) Model() string { return c.model }

// doJSON: serializa in, agrega x-goog-api-key, maneja 404 y 429 con Retry-After (un solo reintento).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	return c.do(ctx, method, path, in, out, false)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, retried bool) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gemini encode: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("gemini request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gemini http: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests && !retried {
		// backoff básico leyendo Retry-After (segundos)
		if ra := res.Header.Get("Retry-After"); ra != "" {
			if sec, _ := strconv.Atoi(ra); sec > 0 {
				select {
				case <-time.After(time.Duration(sec) * time.Second):
				case <-ctx.Done():
					return ctx.Err()
				}
				return c.do(ctx, method, path, in, out, true)
			}
		}
	}

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		apiErr := &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
		var dto apiErrorDTO
		if json.Unmarshal(b, &dto) == nil && dto.Error.Message != "" {
			apiErr.Code = dto.Error.Status
			apiErr.Message = dto.Error.Message
		}
		return apiErr
	}

	return json.NewDecoder(res.Body).Decode(out)
}
