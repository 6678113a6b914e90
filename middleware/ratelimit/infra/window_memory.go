package infra

import (
	"context"
	"sync"
	"time"

	"contact-gateway/middleware/ratelimit/domain"
)

// MemoryWindow é uma janela deslizante em memória (sliding log): guarda os
// instantes das tentativas aceitas por chave e descarta os que saíram da janela.
//
// Serve para uma única instância (dev, testes, exemplo). Com várias
// instâncias atrás de um balanceador use RedisWindow.
type MemoryWindow struct {
	mu           sync.Mutex
	entries      map[string]*windowEntry
	policy       domain.Policy
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type windowEntry struct {
	hits     []time.Time
	lastSeen time.Time
}

type MemoryWindowOption func(*MemoryWindow)

func WithIdleTTL(d time.Duration) MemoryWindowOption {
	return func(w *MemoryWindow) { w.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) MemoryWindowOption {
	return func(w *MemoryWindow) { w.cleanupEvery = d }
}

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) MemoryWindowOption {
	return func(w *MemoryWindow) { w.now = now }
}

func NewMemoryWindow(policy domain.Policy, opts ...MemoryWindowOption) *MemoryWindow {
	w := &MemoryWindow{
		entries:      make(map[string]*windowEntry),
		policy:       policy,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.idleTTL < policy.Window {
		w.idleTTL = policy.Window
	}
	return w
}

func (w *MemoryWindow) Policy() domain.Policy       { return w.policy }
func (w *MemoryWindow) CleanupEvery() time.Duration { return w.cleanupEvery }

// Take implementa domain.Window.
func (w *MemoryWindow) Take(_ context.Context, key domain.Key) (domain.Decision, error) {
	now := w.now()
	cutoff := now.Add(-w.policy.Window)

	w.mu.Lock()
	defer w.mu.Unlock()

	ent, ok := w.entries[string(key)]
	if !ok {
		ent = &windowEntry{}
		w.entries[string(key)] = ent
	}
	ent.lastSeen = now

	// hits está ordenado; remove o prefixo expirado
	i := 0
	for i < len(ent.hits) && !ent.hits[i].After(cutoff) {
		i++
	}
	ent.hits = ent.hits[i:]

	dec := domain.Decision{Limit: w.policy.Limit}
	if len(ent.hits) < w.policy.Limit {
		ent.hits = append(ent.hits, now)
		dec.Allowed = true
	}
	dec.Remaining = w.policy.Limit - len(ent.hits)
	if len(ent.hits) > 0 {
		dec.ResetAt = ent.hits[0].Add(w.policy.Window)
	} else {
		dec.ResetAt = now.Add(w.policy.Window)
	}
	return dec, nil
}

func (w *MemoryWindow) Cleanup() {
	cutoff := w.now().Add(-w.idleTTL)

	w.mu.Lock()
	defer w.mu.Unlock()

	for k, ent := range w.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(w.entries, k)
		}
	}
}

// Len devolve quantas chaves estão em memória.
func (w *MemoryWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (w *MemoryWindow) StartJanitor(ctx DoneContext) {
	if w.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(w.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				w.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
// (Permite reuso em libs sem acoplar.)
type DoneContext interface {
	Done() <-chan struct{}
}
