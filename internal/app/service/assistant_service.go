package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const summarizePrefix = "Summarize this:\n "

var (
	ErrEmptyPrompt     = errors.New("empty prompt")
	ErrEmptyCompletion = errors.New("model returned no text")
)

type AssistantService struct {
	gen  Generator
	msgs MessageSource
}

func NewAssistantService(gen Generator, msgs MessageSource) *AssistantService {
	return &AssistantService{gen: gen, msgs: msgs}
}

// Ask manda el prompt tal cual al modelo y devuelve el texto sin tocar.
func (s *AssistantService) Ask(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}

// Summarize busca el mensaje en el canal actual y pide el resumen.
// Igual que el resto de los services: rechazos de usuario van en msg con err nil.
func (s *AssistantService) Summarize(ctx context.Context, channelID, messageID string) (string, error) {
	messageID = strings.TrimSpace(messageID)
	if !isSnowflake(messageID) {
		return "", ErrUsage
	}

	content, err := s.msgs.MessageContent(ctx, channelID, messageID)
	if errors.Is(err, ErrMessageNotFound) {
		return "Message not found.", nil
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "That message has no text to summarize.", nil
	}

	return s.Ask(ctx, summarizePrefix+content)
}

func isSnowflake(id string) bool {
	if id == "" || len(id) > 20 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
