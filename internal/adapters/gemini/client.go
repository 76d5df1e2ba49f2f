package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Generate manda un único turno de usuario y devuelve el texto del primer candidato.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents: []contentDTO{{Role: "user", Parts: []partDTO{{Text: prompt}}}},
	}

	var dto generateResponse
	path := "/models/" + url.PathEscape(c.model) + ":generateContent"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &dto); err != nil {
		return "", err
	}

	if dto.PromptFeedback != nil && dto.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ErrBlocked, dto.PromptFeedback.BlockReason)
	}
	if len(dto.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	cand := dto.Candidates[0]
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		if cand.FinishReason == "SAFETY" {
			return "", fmt.Errorf("%w: %s", ErrBlocked, cand.FinishReason)
		}
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
