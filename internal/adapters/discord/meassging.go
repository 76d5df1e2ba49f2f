package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"

	"github.com/jose-valero/gemini-discord-bot/internal/app/service"
)

// Messenger es el lado "salida" hacia Discord que usan los services:
// MessageSource (summarize), DirectMessenger (recordatorios) y Notifier (voz).
type Messenger struct {
	s   Session
	log *slog.Logger
}

func NewMessenger(s Session, log *slog.Logger) *Messenger {
	if log == nil {
		log = slog.Default()
	}
	return &Messenger{s: s, log: log}
}

// Send manda content partido en mensajes de hasta 2000 caracteres.
func (m *Messenger) Send(channelID, content string, options ...discordgo.RequestOption) error {
	for _, part := range chunkText(content, maxMessageLen) {
		if _, err := m.s.ChannelMessageSend(channelID, part, options...); err != nil {
			return fmt.Errorf("send to %s: %w", channelID, err)
		}
	}
	return nil
}

// Notify es fire-and-forget: si falla sólo se loguea.
func (m *Messenger) Notify(channelID, content string) {
	if channelID == "" {
		return
	}
	if err := m.Send(channelID, content); err != nil {
		m.log.Warn("notify failed", "channel", channelID, tint.Err(err))
	}
}

func (m *Messenger) MessageContent(ctx context.Context, channelID, messageID string) (string, error) {
	msg, err := m.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownResource(err) {
			return "", service.ErrMessageNotFound
		}
		return "", err
	}
	return msg.Content, nil
}

func (m *Messenger) SendDM(ctx context.Context, userID, content string) error {
	ch, err := m.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	return m.Send(ch.ID, content, discordgo.WithContext(ctx))
}

func isUnknownResource(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
