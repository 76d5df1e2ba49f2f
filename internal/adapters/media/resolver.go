package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jose-valero/gemini-discord-bot/internal/domain"
)

var ErrNoResults = errors.New("no playable results")

// ytInfo es lo que usamos del JSON de `yt-dlp -J`. Para búsquedas viene en entries.
type ytInfo struct {
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	WebpageURL string   `json:"webpage_url"`
	Duration   float64  `json:"duration"`
	Entries    []ytInfo `json:"entries"`
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Resolver convierte lo que escribió el usuario (URL o texto) en una URL directa de audio.
type Resolver struct {
	ytdlp   string
	timeout time.Duration
	run     runFunc
}

func NewResolver(ytdlpPath string, timeout time.Duration) *Resolver {
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{ytdlp: ytdlpPath, timeout: timeout, run: runOutput}
}

func (r *Resolver) Resolve(ctx context.Context, ref string) (domain.Track, error) {
	ref = strings.TrimSpace(ref)
	query := ref
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		query = "ytsearch1:" + ref
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.run(ctx, r.ytdlp,
		"-f", "bestaudio/best",
		"--no-playlist",
		"--no-warnings",
		"-J",
		query,
	)
	if err != nil {
		return domain.Track{}, err
	}
	return parseInfo(ref, out)
}

func parseInfo(ref string, raw []byte) (domain.Track, error) {
	var info ytInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return domain.Track{}, fmt.Errorf("yt-dlp output: %w", err)
	}
	if len(info.Entries) > 0 {
		info = info.Entries[0]
	}
	if info.URL == "" {
		return domain.Track{}, ErrNoResults
	}

	title := info.Title
	if title == "" {
		title = ref
	}
	return domain.Track{
		Ref:       ref,
		Title:     title,
		StreamURL: info.URL,
		Duration:  time.Duration(info.Duration * float64(time.Second)),
	}, nil
}

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, lastLine(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func lastLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
