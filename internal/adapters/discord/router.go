package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"

	"github.com/jose-valero/gemini-discord-bot/internal/app/service"
)

type Options struct {
	Prefix            string
	CommandTimeout    time.Duration
	GenTimeout        time.Duration
	MentionRatePerMin int
}

type Router struct {
	s     Session
	state *discordgo.State
	log   *slog.Logger
	opts  Options

	out       *Messenger
	assistant *service.AssistantService
	reminders *service.ReminderService
	voice     *service.VoiceService
	mentions  *userLimiter
}

func NewRouter(
	s Session,
	state *discordgo.State,
	log *slog.Logger,
	out *Messenger,
	assistant *service.AssistantService,
	reminders *service.ReminderService,
	voice *service.VoiceService,
	opts Options,
) *Router {
	if opts.Prefix == "" {
		opts.Prefix = "!"
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 45 * time.Second
	}
	if opts.GenTimeout <= 0 {
		opts.GenTimeout = 60 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		s:         s,
		state:     state,
		log:       log,
		opts:      opts,
		out:       out,
		assistant: assistant,
		reminders: reminders,
		voice:     voice,
		mentions:  newUserLimiter(opts.MentionRatePerMin),
	}
}

func (r *Router) Handlers() {
	r.s.AddHandler(r.onReady)
	r.s.AddHandler(r.onMessageCreate)
	r.s.AddHandler(r.onGuildMemberAdd)
	r.s.AddHandler(r.onVoiceStateUpdate)
}

func (r *Router) botID() string {
	if r.state == nil {
		return ""
	}
	r.state.RLock()
	defer r.state.RUnlock()
	if r.state.User == nil {
		return ""
	}
	return r.state.User.ID
}

func (r *Router) onReady(_ *discordgo.Session, ev *discordgo.Ready) {
	if ev.User == nil {
		return
	}
	r.log.Info("✅ conectado", "user", ev.User.Username, "id", ev.User.ID, "guilds", len(ev.Guilds))
}

func (r *Router) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return
	}
	botID := r.botID()
	if m.Author.ID == botID {
		return
	}

	if mentionsUser(m.Message, botID) {
		r.handleMention(m, botID)
	}
	if name, rest, ok := parseCommand(m.Content, r.opts.Prefix); ok {
		r.handleCommand(m, name, rest)
	}
}

func (r *Router) handleMention(m *discordgo.MessageCreate, botID string) {
	log := r.log.With("user", m.Author.ID, "channel", m.ChannelID)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic in mention", "panic", rec)
		}
	}()

	prompt := stripMention(m.Content, botID)
	if prompt == "" {
		return
	}
	if !r.mentions.Allow(m.Author.ID) {
		r.reply(m.ChannelID, "Slow down a little, I can only answer so many questions per minute.")
		return
	}

	_ = r.s.ChannelTyping(m.ChannelID)
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.GenTimeout)
	defer cancel()
	defer step(log, "mention")()

	answer, err := r.assistant.Ask(ctx, prompt)
	if err != nil {
		log.Error("generate failed", tint.Err(err))
		answer = "⚠️ I couldn't get an answer right now: " + err.Error()
	}
	r.reply(m.ChannelID, answer)
}

func (r *Router) onGuildMemberAdd(_ *discordgo.Session, ev *discordgo.GuildMemberAdd) {
	if ev == nil || ev.Member == nil || ev.User == nil {
		return
	}
	chID := r.systemChannel(ev.GuildID)
	if chID == "" {
		return
	}
	r.reply(chID, "Welcome, "+ev.User.Mention()+"!")
}

// systemChannel: primero el State, después REST (como safeGetChannel).
func (r *Router) systemChannel(guildID string) string {
	if r.state != nil {
		if g, err := r.state.Guild(guildID); err == nil && g != nil {
			return g.SystemChannelID
		}
	}
	g, err := r.s.Guild(guildID)
	if err != nil {
		r.log.Warn("guild lookup", "guild", guildID, tint.Err(err))
		return ""
	}
	return g.SystemChannelID
}

func (r *Router) reply(channelID, content string) {
	if content == "" {
		return
	}
	if err := r.out.Send(channelID, content); err != nil {
		r.log.Warn("reply failed", "channel", channelID, tint.Err(err))
	}
}
