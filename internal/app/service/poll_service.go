package service

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jose-valero/gemini-discord-bot/internal/domain"
)

const MaxPollOptions = 10

var (
	ErrTooFewOptions  = errors.New("provide at least two options")
	ErrTooManyOptions = errors.New("provide at most 10 options")
	ErrEmptyQuestion  = errors.New("poll question is empty")
)

// keycaps 1..10 (dígito + VS16 + combining enclosing keycap; el 10 es su propio emoji)
var pollReactions = [MaxPollOptions]string{
	"1\uFE0F\u20E3", "2\uFE0F\u20E3", "3\uFE0F\u20E3", "4\uFE0F\u20E3", "5\uFE0F\u20E3",
	"6\uFE0F\u20E3", "7\uFE0F\u20E3", "8\uFE0F\u20E3", "9\uFE0F\u20E3", "\U0001F51F",
}

// BuildPoll arma la tarjeta. No hay conteo: votar es reaccionar.
func BuildPoll(question string, options []string) (domain.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Poll{}, ErrEmptyQuestion
	}

	opts := make([]string, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, o)
		}
	}
	if len(opts) < 2 {
		return domain.Poll{}, ErrTooFewOptions
	}
	if len(opts) > MaxPollOptions {
		return domain.Poll{}, ErrTooManyOptions
	}

	return domain.Poll{
		Question:  question,
		Options:   opts,
		Reactions: append([]string(nil), pollReactions[:len(opts)]...),
	}, nil
}

// PollDescription: "1. A\n2. B..."
func PollDescription(p domain.Poll) string {
	var b strings.Builder
	for i, o := range p.Options {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(o)
	}
	return b.String()
}

// PollRejection traduce el error de BuildPoll al texto que ve el usuario.
// Lo que no es un problema de opciones vuelve como ErrUsage.
func PollRejection(err error) (string, error) {
	switch {
	case errors.Is(err, ErrTooFewOptions):
		return "Provide at least two options.", nil
	case errors.Is(err, ErrTooManyOptions):
		return "Provide at most 10 options.", nil
	default:
		return "", ErrUsage
	}
}
