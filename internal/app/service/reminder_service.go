package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/lmittmann/tint"

	"github.com/jose-valero/gemini-discord-bot/internal/infra/storage"
)

// ReminderLayout es el único formato aceptado: YYYY-MM-DD HH:MM
const ReminderLayout = "2006-01-02 15:04"

const invalidTimeMsg = "Invalid time format. Use YYYY-MM-DD HH:MM"

var ErrInvalidTimeFormat = errors.New("invalid time format")

type ReminderService struct {
	repo ReminderRepo
	dm   DirectMessenger
	loc  *time.Location
	log  *slog.Logger

	now func() time.Time
}

func NewReminderService(repo ReminderRepo, dm DirectMessenger, loc *time.Location, log *slog.Logger) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReminderService{repo: repo, dm: dm, loc: loc, log: log, now: time.Now}
}

// ParseWhen interpreta la hora en la zona configurada.
func (s *ReminderService) ParseWhen(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(ReminderLayout, strings.TrimSpace(raw), s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}
	return t, nil
}

func (s *ReminderService) Set(ctx context.Context, ownerID, channelID, guildID, when, message string) (string, error) {
	at, err := s.ParseWhen(when)
	if err != nil {
		return invalidTimeMsg, nil
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrUsage
	}

	rem, err := s.repo.Add(ctx, storage.Reminder{
		OwnerID:   ownerID,
		ChannelID: channelID,
		GuildID:   guildID,
		At:        at,
		Message:   message,
	})
	if err != nil {
		return "", err
	}
	s.log.InfoContext(ctx, "reminder set", "id", rem.ID, "owner", ownerID, "at", at)

	return fmt.Sprintf("Reminder set for %s (%s)", at.Format(ReminderLayout), humanize.RelTime(at, s.now(), "ago", "from now")), nil
}

// List arma el listado de pendientes del usuario (`!reminders`).
func (s *ReminderService) List(ctx context.Context, ownerID string) (string, error) {
	items, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "You have no pending reminders.", nil
	}

	now := s.now()
	var b strings.Builder
	b.WriteString("Pending reminders:\n")
	for _, r := range items {
		fmt.Fprintf(&b, "`#%d` %s (%s): %s\n", r.ID, r.At.In(s.loc).Format(ReminderLayout), humanize.RelTime(r.At, now, "ago", "from now"), r.Message)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Cancel borra un recordatorio propio por ID (`!unremind`).
func (s *ReminderService) Cancel(ctx context.Context, ownerID, rawID string) (string, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(rawID), "#"), 10, 64)
	if err != nil || id <= 0 {
		return "", ErrUsage
	}
	ok, err := s.repo.Delete(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf("No pending reminder #%d.", id), nil
	}
	return fmt.Sprintf("Reminder #%d cancelled.", id), nil
}

// Sweep entrega por DM todo lo vencido. Un DM que falla no corta el resto:
// se loguea, se acumula en el error y el recordatorio se descarta igual.
func (s *ReminderService) Sweep(ctx context.Context) (int, error) {
	due, err := s.repo.TakeDue(ctx, s.now())
	if err != nil {
		return 0, err
	}

	var result *multierror.Error
	sent := 0
	for _, r := range due {
		if err := s.dm.SendDM(ctx, r.OwnerID, "Reminder: "+r.Message); err != nil {
			s.log.WarnContext(ctx, "reminder delivery failed", "id", r.ID, "owner", r.OwnerID, tint.Err(err))
			result = multierror.Append(result, fmt.Errorf("reminder %d for %s: %w", r.ID, r.OwnerID, err))
			continue
		}
		sent++
	}
	return sent, result.ErrorOrNil()
}

// RunSweeper corre Sweep cada interval hasta que ctx se cancele.
func (s *ReminderService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.log.Info("reminder sweep disabled")
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := s.Sweep(ctx); n > 0 || err != nil {
				s.log.Info("reminder sweep", "delivered", n, "failed", errCount(err))
			}
		}
	}
}

func errCount(err error) int {
	var me *multierror.Error
	if errors.As(err, &me) {
		return me.Len()
	}
	if err != nil {
		return 1
	}
	return 0
}
