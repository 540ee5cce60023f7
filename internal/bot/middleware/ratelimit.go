package middleware

import (
	"context"
	"sync"
	"time"
)

// Decision — решение анти-флуда по одному апдейту.
type Decision int

const (
	// Allowed — апдейт обрабатывается.
	Allowed Decision = iota
	// Throttled — лимит только что превышен: апдейт отбрасывается,
	// пользователя стоит один раз предупредить.
	Throttled
	// Dropped — лимит превышен повторно, апдейт отбрасывается молча.
	Dropped
)

type window struct {
	hits   []time.Time
	warned bool
}

// RateLimiter ограничивает число апдейтов от одного subject.
// Использует алгоритм скользящего окна.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[int64]*window
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewRateLimiter(limit int, win time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[int64]*window),
		limit:   limit,
		window:  win,
		now:     time.Now,
	}
}

// Allow учитывает апдейт subject и решает, обрабатывать ли его.
func (rl *RateLimiter) Allow(subjectID int64) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w := rl.windows[subjectID]
	if w == nil {
		w = &window{}
		rl.windows[subjectID] = w
	}
	w.hits = recent(w.hits, now.Add(-rl.window))

	if len(w.hits) >= rl.limit {
		if w.warned {
			return Dropped
		}
		w.warned = true
		return Throttled
	}

	w.hits = append(w.hits, now)
	w.warned = false
	return Allowed
}

// Run раз в окно удаляет неактивных subject, пока не отменён ctx.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for id, w := range rl.windows {
		w.hits = recent(w.hits, cutoff)
		if len(w.hits) == 0 {
			delete(rl.windows, id)
		}
	}
}

// Tracked — сколько subject сейчас в памяти.
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

func recent(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
