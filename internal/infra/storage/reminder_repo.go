package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ReminderRepo guarda los recordatorios en memoria, agrupados por owner.
// Los handlers de discordgo corren en goroutines propias, así que todo pasa por mu.
type ReminderRepo struct {
	mu     sync.Mutex
	seq    int64
	byUser map[string][]Reminder
	now    func() time.Time
}

func NewReminderRepo() *ReminderRepo {
	return &ReminderRepo{byUser: map[string][]Reminder{}, now: time.Now}
}

// Add asigna ID y CreatedAt y lo agrega al final de la lista del owner.
func (r *ReminderRepo) Add(_ context.Context, rem Reminder) (Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	rem.ID = r.seq
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = r.now()
	}
	r.byUser[rem.OwnerID] = append(r.byUser[rem.OwnerID], rem)
	return rem, nil
}

// ListByOwner devuelve una copia ordenada por fecha de disparo.
func (r *ReminderRepo) ListByOwner(_ context.Context, ownerID string) ([]Reminder, error) {
	r.mu.Lock()
	out := append([]Reminder(nil), r.byUser[ownerID]...)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

// TakeDue saca (y devuelve) todos los recordatorios con At <= now.
// Un owner que queda sin recordatorios se elimina del mapa.
func (r *ReminderRepo) TakeDue(_ context.Context, now time.Time) ([]Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []Reminder
	for owner, list := range r.byUser {
		keep := list[:0]
		for _, rem := range list {
			if !rem.At.After(now) {
				due = append(due, rem)
				continue
			}
			keep = append(keep, rem)
		}
		if len(keep) == 0 {
			delete(r.byUser, owner)
			continue
		}
		r.byUser[owner] = keep
	}

	sort.SliceStable(due, func(i, j int) bool { return due[i].At.Before(due[j].At) })
	return due, nil
}

// Delete borra un recordatorio del owner. false si no existía.
func (r *ReminderRepo) Delete(_ context.Context, ownerID string, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.byUser[ownerID]
	for i, rem := range list {
		if rem.ID != id {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(r.byUser, ownerID)
		} else {
			r.byUser[ownerID] = list
		}
		return true, nil
	}
	return false, nil
}

func (r *ReminderRepo) Count(_ context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, list := range r.byUser {
		n += len(list)
	}
	return n
}

// Owners cuenta los usuarios con al menos un recordatorio pendiente.
func (r *ReminderRepo) Owners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}
