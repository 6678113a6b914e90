package infra

import (
	"context"
)

// ChanPool é um semáforo baseado em channel com capacidade fixa.
// Implementa domain.SlotPool.
type ChanPool struct {
	sem chan struct{}
}

// NewChanPool cria um pool com capacidade `max`.
func NewChanPool(max int) *ChanPool {
	return &ChanPool{sem: make(chan struct{}, max)}
}

func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

// InUse devolve quantas vagas estão ocupadas agora (usado no gauge de métricas).
func (p *ChanPool) InUse() int { return len(p.sem) }

// Cap devolve a capacidade total.
func (p *ChanPool) Cap() int { return cap(p.sem) }
