package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/lmittmann/tint"

	"github.com/jose-valero/gemini-discord-bot/internal/domain"
)

var ErrVoiceClosed = errors.New("voice service closed")

// VoiceService maneja una sesión de voz por guild.
// Cada guild tiene su propio loop (guildVoice.run) y todo cambio de estado
// pasa por ahí, incluido el fin de un track que llega desde la goroutine de playback.
// El loop se crea recién cuando el guild intenta conectarse; queda vivo hasta Close,
// así que hay como mucho uno por guild que alguna vez usó voz.
type VoiceService struct {
	connector VoiceConnector
	presence  VoicePresence
	resolver  TrackResolver
	streamer  TrackStreamer
	notify    Notifier
	log       *slog.Logger

	mu     sync.Mutex
	guilds map[string]*guildVoice
	closed bool

	connected atomic.Int64
}

func NewVoiceService(
	connector VoiceConnector,
	presence VoicePresence,
	resolver TrackResolver,
	streamer TrackStreamer,
	notify Notifier,
	log *slog.Logger,
) *VoiceService {
	if log == nil {
		log = slog.Default()
	}
	return &VoiceService{
		connector: connector,
		presence:  presence,
		resolver:  resolver,
		streamer:  streamer,
		notify:    notify,
		log:       log,
		guilds:    map[string]*guildVoice{},
	}
}

// VoiceSnapshot es una foto del estado de un guild (para /status y tests).
type VoiceSnapshot struct {
	Connected bool
	ChannelID string
	Playing   bool
	Queue     []domain.QueueEntry
}

type guildVoice struct {
	id     string
	svc    *VoiceService
	events chan func()
	done   chan struct{}

	// de acá para abajo sólo se toca desde run()
	conn    VoiceConn
	queue   []domain.QueueEntry // queue[0] es lo que está sonando
	playing bool
	gen     uint64
	stop    context.CancelFunc

	// cuántas conexiones se abrieron; se lee afuera del loop en Forget
	epoch atomic.Uint64
}

// lookup devuelve el loop del guild si ya existe (nil si nunca se conectó).
func (s *VoiceService) lookup(guildID string) (*guildVoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrVoiceClosed
	}
	return s.guilds[guildID], nil
}

// guild devuelve el loop del guild y lo crea si hace falta. Sólo lo usan
// las operaciones que pueden terminar conectando.
func (s *VoiceService) guild(guildID string) (*guildVoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrVoiceClosed
	}
	g, ok := s.guilds[guildID]
	if !ok {
		g = &guildVoice{
			id:     guildID,
			svc:    s,
			events: make(chan func(), 16),
			done:   make(chan struct{}),
		}
		s.guilds[guildID] = g
		go g.run()
	}
	return g, nil
}

func (g *guildVoice) run() {
	for {
		select {
		case fn := <-g.events:
			fn()
		case <-g.done:
			return
		}
	}
}

// post encola sin esperar resultado. Lo usa la goroutine de playback.
func (g *guildVoice) post(fn func()) {
	select {
	case g.events <- fn:
	case <-g.done:
	}
}

// call corre fn en el loop del guild y espera el resultado.
func (g *guildVoice) call(ctx context.Context, fn func() (string, error)) (string, error) {
	type result struct {
		msg string
		err error
	}
	ch := make(chan result, 1)
	job := func() {
		msg, err := fn()
		ch <- result{msg, err}
	}

	select {
	case g.events <- job:
	case <-g.done:
		return "", ErrVoiceClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case r := <-ch:
		return r.msg, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Join conecta al canal de voz donde está el usuario.
func (s *VoiceService) Join(ctx context.Context, guildID, userID, textChannelID string) (string, error) {
	channelID, ok := s.presence.UserVoiceChannel(guildID, userID)
	if !ok {
		return "You are not in a voice channel.", nil
	}
	g, err := s.guild(guildID)
	if err != nil {
		return "", err
	}
	return g.call(ctx, func() (string, error) {
		if g.conn != nil {
			return "I am already in a voice channel.", nil
		}
		if err := g.connect(ctx, channelID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Joined <#%s>.", g.conn.ChannelID()), nil
	})
}

// Leave corta el playback, vacía la cola y desconecta. Idle => mensaje, sin error.
func (s *VoiceService) Leave(ctx context.Context, guildID string) (string, error) {
	g, err := s.lookup(guildID)
	if err != nil {
		return "", err
	}
	if g == nil {
		return "I am not in a voice channel.", nil
	}
	return g.call(ctx, func() (string, error) {
		if g.conn == nil {
			return "I am not in a voice channel.", nil
		}
		if err := g.reset(true); err != nil {
			s.log.WarnContext(ctx, "voice disconnect", "guild", guildID, tint.Err(err))
		}
		return "Left the voice channel.", nil
	})
}

// Play hace join implícito, resuelve el track (fuera del loop) y lo encola.
// Sólo arranca a sonar si no había nada sonando.
func (s *VoiceService) Play(ctx context.Context, guildID, userID, textChannelID, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrUsage
	}

	channelID, inVoice := s.presence.UserVoiceChannel(guildID, userID)
	g, err := s.lookup(guildID)
	if err != nil {
		return "", err
	}
	if g == nil {
		if !inVoice {
			return "You are not in a voice channel.", nil
		}
		if g, err = s.guild(guildID); err != nil {
			return "", err
		}
	}
	msg, err := g.call(ctx, func() (string, error) {
		if g.conn != nil {
			return "", nil
		}
		if !inVoice {
			return "You are not in a voice channel.", nil
		}
		return "", g.connect(ctx, channelID)
	})
	if err != nil || msg != "" {
		return msg, err
	}

	track, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}

	entry := domain.QueueEntry{GuildID: guildID, Track: track, RequestedBy: userID, TextChannelID: textChannelID}
	return g.call(ctx, func() (string, error) {
		// un leave pudo colarse mientras resolvíamos
		if g.conn == nil {
			return "I am not in a voice channel.", nil
		}
		g.queue = append(g.queue, entry)
		if !g.playing {
			g.startHead()
			return "Now playing: **" + track.Title + "**", nil
		}
		return fmt.Sprintf("Queued: **%s** (position %d)", track.Title, len(g.queue)-1), nil
	})
}

// Skip corta el track actual. El avance de la cola lo hace trackEnded, una sola vez.
func (s *VoiceService) Skip(ctx context.Context, guildID string) (string, error) {
	g, err := s.lookup(guildID)
	if err != nil {
		return "", err
	}
	if g == nil {
		return "Nothing to skip.", nil
	}
	return g.call(ctx, func() (string, error) {
		if !g.playing || g.stop == nil {
			return "Nothing to skip.", nil
		}
		g.stop()
		return "Skipped the current song.", nil
	})
}

func (s *VoiceService) Queue(ctx context.Context, guildID string) (string, error) {
	g, err := s.lookup(guildID)
	if err != nil {
		return "", err
	}
	if g == nil {
		return "Queue is empty.", nil
	}
	return g.call(ctx, func() (string, error) {
		if len(g.queue) == 0 {
			return "Queue is empty.", nil
		}
		var b strings.Builder
		b.WriteString("Current Queue:")
		for i, e := range g.queue {
			fmt.Fprintf(&b, "\n%d. %s", i+1, e.Track.Title)
			if i == 0 && g.playing {
				b.WriteString(" (now playing)")
			}
		}
		return b.String(), nil
	})
}

// Forget limpia el estado cuando el bot fue desconectado desde afuera
// (kick, canal borrado). No manda nada al canal de texto.
// El evento se ata a la conexión vigente al llamarlo: si mientras tanto se abrió
// otra (ej. el eco de un leave llega durante un join nuevo), se ignora.
func (s *VoiceService) Forget(guildID string) {
	s.mu.Lock()
	g, ok := s.guilds[guildID]
	s.mu.Unlock()
	if !ok {
		return
	}
	epoch := g.epoch.Load()
	g.post(func() {
		if g.conn == nil || g.epoch.Load() != epoch {
			return
		}
		s.log.Info("voice connection dropped", "guild", guildID)
		_ = g.reset(true)
	})
}

func (s *VoiceService) Snapshot(ctx context.Context, guildID string) (VoiceSnapshot, error) {
	g, err := s.lookup(guildID)
	if err != nil || g == nil {
		return VoiceSnapshot{}, err
	}
	var snap VoiceSnapshot
	_, err = g.call(ctx, func() (string, error) {
		snap.Connected = g.conn != nil
		if g.conn != nil {
			snap.ChannelID = g.conn.ChannelID()
		}
		snap.Playing = g.playing
		snap.Queue = append([]domain.QueueEntry(nil), g.queue...)
		return "", nil
	})
	return snap, err
}

// ConnectedGuilds cuenta los guilds con conexión de voz activa.
func (s *VoiceService) ConnectedGuilds() int {
	return int(s.connected.Load())
}

// Close desconecta todo y frena los loops.
func (s *VoiceService) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	guilds := make([]*guildVoice, 0, len(s.guilds))
	for _, g := range s.guilds {
		guilds = append(guilds, g)
	}
	s.mu.Unlock()

	var result *multierror.Error
	for _, g := range guilds {
		_, err := g.call(ctx, func() (string, error) {
			if g.conn == nil {
				return "", nil
			}
			return "", g.reset(true)
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("guild %s: %w", g.id, err))
		}
		close(g.done)
	}
	return result.ErrorOrNil()
}

// --- lo que sigue corre siempre dentro de run() ---

func (g *guildVoice) connect(ctx context.Context, channelID string) error {
	conn, err := g.svc.connector.Connect(ctx, g.id, channelID)
	if err != nil {
		return fmt.Errorf("voice connect: %w", err)
	}
	g.conn = conn
	g.epoch.Add(1)
	g.svc.connected.Add(1)
	g.svc.log.Info("voice connected", "guild", g.id, "channel", channelID)
	return nil
}

// reset invalida el playback en curso (gen++), vacía la cola y opcionalmente desconecta.
func (g *guildVoice) reset(disconnect bool) error {
	g.gen++
	if g.stop != nil {
		g.stop()
		g.stop = nil
	}
	g.playing = false
	g.queue = nil

	if g.conn == nil {
		return nil
	}
	var err error
	if disconnect {
		err = g.conn.Disconnect()
	}
	g.conn = nil
	g.svc.connected.Add(-1)
	return err
}

func (g *guildVoice) startHead() {
	if len(g.queue) == 0 || g.conn == nil {
		g.playing = false
		return
	}
	g.gen++
	gen := g.gen
	ctx, cancel := context.WithCancel(context.Background())
	g.stop = cancel
	g.playing = true

	head := g.queue[0]
	conn := g.conn
	go func() {
		err := g.svc.streamer.Stream(ctx, conn, head.Track)
		cancel()
		g.post(func() { g.trackEnded(gen, err) })
	}()
}

// trackEnded es el único lugar que saca el head de la cola.
func (g *guildVoice) trackEnded(gen uint64, err error) {
	if gen != g.gen || !g.playing {
		return
	}
	g.playing = false
	g.stop = nil

	ended := g.queue[0]
	g.queue = g.queue[1:]

	if err != nil && !errors.Is(err, context.Canceled) {
		g.svc.log.Error("playback failed", "guild", g.id, "track", ended.Track.Title, tint.Err(err))
		g.svc.notify.Notify(ended.TextChannelID, "Player error: "+err.Error())
	}

	if len(g.queue) == 0 {
		return
	}
	g.startHead()
	next := g.queue[0]
	g.svc.notify.Notify(next.TextChannelID, "Now playing: **"+next.Track.Title+"**")
}
