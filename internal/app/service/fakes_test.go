package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jose-valero/gemini-discord-bot/internal/domain"
	"github.com/jose-valero/gemini-discord-bot/internal/infra/storage"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeMessages struct {
	content map[string]string
	err     error
}

func (f *fakeMessages) MessageContent(_ context.Context, _, messageID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	c, ok := f.content[messageID]
	if !ok {
		return "", ErrMessageNotFound
	}
	return c, nil
}

type fakeDM struct {
	mu   sync.Mutex
	sent map[string][]string
	fail map[string]bool
}

func newFakeDM() *fakeDM {
	return &fakeDM{sent: map[string][]string{}, fail: map[string]bool{}}
}

func (f *fakeDM) SendDM(_ context.Context, userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[userID] {
		return errors.New("cannot send messages to this user")
	}
	f.sent[userID] = append(f.sent[userID], content)
	return nil
}

// --- voz ---

type fakeConn struct {
	channelID string
	send      chan []byte

	mu           sync.Mutex
	disconnected int
}

func (c *fakeConn) ChannelID() string       { return c.channelID }
func (c *fakeConn) Speaking(bool) error     { return nil }
func (c *fakeConn) OpusSend() chan<- []byte { return c.send }

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected++
	return nil
}

func (c *fakeConn) disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

type fakeConnector struct {
	mu    sync.Mutex
	calls int
	conns []*fakeConn
	err   error
	// si no es nil, cada Connect espera a que lo cierren
	gate chan struct{}
}

func (f *fakeConnector) Connect(_ context.Context, _, channelID string) (VoiceConn, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeConn{channelID: channelID, send: make(chan []byte, 1)}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeConnector) hold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeConnector) lastConn() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

func (f *fakeConnector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePresence map[string]string // userID -> voice channel

func (p fakePresence) UserVoiceChannel(_, userID string) (string, bool) {
	ch, ok := p[userID]
	return ch, ok
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, ref string) (domain.Track, error) {
	return domain.Track{Ref: ref, Title: ref, StreamURL: "https://cdn.example/" + ref}, nil
}

// fakeStreamer bloquea cada Stream hasta que el test llame finish(title) o se cancele ctx.
type fakeStreamer struct {
	mu      sync.Mutex
	started []string
	ends    map[string]chan error
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{ends: map[string]chan error{}}
}

func (f *fakeStreamer) end(title string) chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.ends[title]
	if !ok {
		ch = make(chan error, 1)
		f.ends[title] = ch
	}
	return ch
}

func (f *fakeStreamer) Stream(ctx context.Context, _ VoiceConn, t domain.Track) error {
	f.mu.Lock()
	f.started = append(f.started, t.Title)
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-f.end(t.Title):
		return err
	}
}

func (f *fakeStreamer) finish(title string, err error) { f.end(title) <- err }

func (f *fakeStreamer) startedTracks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Notify(_, content string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, content)
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

// helpers compartidos

func newTestReminderService(dm DirectMessenger, now time.Time) (*ReminderService, *storage.ReminderRepo) {
	repo := storage.NewReminderRepo()
	svc := NewReminderService(repo, dm, time.UTC, nil)
	svc.now = func() time.Time { return now }
	return svc, repo
}
