package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// Policy descreve uma janela deslizante: no máximo Limit ações por chave
// dentro de qualquer intervalo de duração Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Window representa um contador de janela deslizante por chave.
//
// Take registra uma tentativa para a chave e devolve a decisão. Tentativas
// negadas não consomem vaga na janela.
// A implementação pode ser em memória ou num store compartilhado (Redis);
// neste caso a atomicidade é responsabilidade do store.
type Window interface {
	Take(ctx context.Context, key Key) (Decision, error)
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt é quando a tentativa mais antiga da janela expira
	// (a partir daí há ao menos uma vaga livre).
	ResetAt time.Time
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// ResetMillis devolve ResetAt em epoch millis (formato do header X-RateLimit-Reset).
func (d Decision) ResetMillis() int64 {
	if d.ResetAt.IsZero() {
		return 0
	}
	return d.ResetAt.UnixMilli()
}
