package discord

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type userEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// userLimiter: un token bucket por usuario. perMinute <= 0 lo desactiva.
type userLimiter struct {
	mu    sync.Mutex
	users map[string]*userEntry
	every rate.Limit
	burst int
}

func newUserLimiter(perMinute int) *userLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &userLimiter{
		users: map[string]*userEntry{},
		every: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: perMinute,
	}
}

func (l *userLimiter) Allow(userID string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.users[userID]
	if !ok {
		if len(l.users) > 4096 {
			l.pruneLocked(now)
		}
		e = &userEntry{lim: rate.NewLimiter(l.every, l.burst)}
		l.users[userID] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

func (l *userLimiter) pruneLocked(now time.Time) {
	for id, e := range l.users {
		if now.Sub(e.seen) > limiterIdleTTL {
			delete(l.users, id)
		}
	}
}
