// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryWindow: janela deslizante por chave em memória (uma instância)
//   - RedisWindow: janela deslizante compartilhada (sorted set + Lua)
//   - MemoryStatsStore, RedisStatsStore, PrometheusStatsStore: estatísticas
//   - ChanPool: semáforo simples para limite de concorrência
package infra
