// acá sólo parseamos lo que escribió el usuario y despachamos a los services;
// la lógica vive en internal/app/service
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"

	"github.com/jose-valero/gemini-discord-bot/internal/app/service"
)

const pollColor = 0x4285F4

func (r *Router) handleCommand(m *discordgo.MessageCreate, name, rest string) {
	cmd, ok := lookupCommand(name)
	if !ok {
		return // comando desconocido: no-op
	}

	log := r.log.With("cmd", name, "user", m.Author.ID, "guild", m.GuildID)
	log.Debug("command")

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic in command", "panic", rec)
			r.reply(m.ChannelID, "⚠️ Unexpected error while running the command.")
		}
	}()

	if cmd.GuildOnly && m.GuildID == "" {
		r.reply(m.ChannelID, "This command only works in a server.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.CommandTimeout)
	defer cancel()
	defer step(log, r.opts.Prefix+name)()

	c := &Ctx{
		Log:       log,
		Msg:       m,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		Args:      splitArgs(rest),
		Rest:      rest,
	}

	var (
		msg  string
		err  error
		fail string
	)
	switch name {
	case "ping":
		msg = "Pong!"

	case "hello":
		msg = "Hello " + m.Author.Mention() + "!"

	case "help":
		msg = helpText(r.opts.Prefix)

	//--> recordatorios
	case "remind":
		msg, err = r.cmdRemind(ctx, c)
		fail = "Could not set the reminder"
	case "reminders":
		msg, err = r.reminders.List(ctx, c.UserID)
		fail = "Could not list your reminders"
	case "unremind":
		msg, err = r.reminders.Cancel(ctx, c.UserID, firstArg(c))
		fail = "Could not cancel the reminder"

	case "poll":
		msg, err = r.cmdPoll(ctx, c)
		fail = "Could not create the poll"

	case "summarize":
		// mismo presupuesto que una mención: no lo acota CommandTimeout
		_ = r.s.ChannelTyping(c.ChannelID)
		gctx, gcancel := context.WithTimeout(context.Background(), r.opts.GenTimeout)
		msg, err = r.assistant.Summarize(gctx, c.ChannelID, firstArg(c))
		gcancel()
		fail = "Could not summarize"

	//--> voz
	case "join":
		msg, err = r.voice.Join(ctx, c.GuildID, c.UserID, c.ChannelID)
		fail = "Could not join"
	case "leave":
		msg, err = r.voice.Leave(ctx, c.GuildID)
		fail = "Could not leave"
	case "play":
		msg, err = r.voice.Play(ctx, c.GuildID, c.UserID, c.ChannelID, c.Rest)
		fail = "Error"
	case "skip":
		msg, err = r.voice.Skip(ctx, c.GuildID)
		fail = "Could not skip"
	case "queue":
		msg, err = r.voice.Queue(ctx, c.GuildID)
		fail = "Could not read the queue"
	}

	if errors.Is(err, service.ErrUsage) {
		msg, err = usageText(r.opts.Prefix, cmd), nil
	}
	if err != nil {
		log.Error("command failed", tint.Err(err))
		msg = "⚠️ " + fail + ": " + err.Error()
	}
	r.reply(m.ChannelID, msg)
}

// cmdRemind acepta la hora entre comillas ("2025-01-01 10:00") o como dos
// argumentos sueltos (2025-01-01 10:00). El resto crudo es el mensaje.
func (r *Router) cmdRemind(ctx context.Context, c *Ctx) (string, error) {
	when, after := cutToken(c.Rest)
	if when == "" {
		return "", service.ErrUsage
	}
	if !strings.ContainsRune(when, ' ') {
		if clock, rest := cutToken(after); clock != "" {
			when, after = when+" "+clock, rest
		}
	}
	return r.reminders.Set(ctx, c.UserID, c.ChannelID, c.GuildID, when, after)
}

func (r *Router) cmdPoll(ctx context.Context, c *Ctx) (string, error) {
	if len(c.Args) == 0 {
		return "", service.ErrUsage
	}
	p, err := service.BuildPoll(c.Args[0], c.Args[1:])
	if err != nil {
		return service.PollRejection(err)
	}

	embed := &discordgo.MessageEmbed{
		Title:       truncate(p.Question, 256),
		Description: service.PollDescription(p),
		Color:       pollColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Poll by " + c.Msg.Author.Username},
	}
	sent, err := r.s.ChannelMessageSendEmbed(c.ChannelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	for _, emoji := range p.Reactions {
		if err := r.s.MessageReactionAdd(c.ChannelID, sent.ID, emoji, discordgo.WithContext(ctx)); err != nil {
			return "", fmt.Errorf("reaction %s: %w", emoji, err)
		}
	}
	c.Log.Debug("poll sent", "message", sent.ID, "options", len(p.Options))
	return "", nil
}

// usageText arma "Usage: `<prefix><name> <usage>`" desde la tabla de comandos.
func usageText(prefix string, cmd Command) string {
	line := prefix + cmd.Name
	if cmd.Usage != "" {
		line += " " + cmd.Usage
	}
	return "Usage: `" + line + "`"
}

func firstArg(c *Ctx) string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}
