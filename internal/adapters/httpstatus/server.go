package httpstatus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lmittmann/tint"
)

// Lo implementa service.VoiceService
type VoiceStats interface {
	ConnectedGuilds() int
}

// Lo implementa storage.ReminderRepo
type ReminderStats interface {
	Count(ctx context.Context) int
}

type Status struct {
	ConnectedGuilds  int    `json:"connected_guilds"`
	PendingReminders int    `json:"pending_reminders"`
	Uptime           string `json:"uptime"`
}

type Server struct {
	voice     VoiceStats
	reminders ReminderStats
	log       *slog.Logger
	mux       *http.ServeMux
	started   time.Time
	now       func() time.Time
}

func New(voice VoiceStats, reminders ReminderStats, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		voice:     voice,
		reminders: reminders,
		log:       log,
		mux:       http.NewServeMux(),
		started:   time.Now(),
		now:       time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/status", s.handleStatus)
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := Status{Uptime: s.now().Sub(s.started).Truncate(time.Second).String()}
	if s.voice != nil {
		st.ConnectedGuilds = s.voice.ConnectedGuilds()
	}
	if s.reminders != nil {
		st.PendingReminders = s.reminders.Count(r.Context())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.log.Warn("status encode", tint.Err(err))
	}
}

// Start bloquea hasta que ctx se cancela; ahí hace shutdown prolijo.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("🌐 HTTP escuchando", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
