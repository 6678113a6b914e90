// Package ratelimit fornece adapters HTTP (net/http) para rate limit por janela
// deslizante e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela em memória/Redis, semáforo, stats)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo no gateway:
//
//   1) Extrai a chave do cliente (IP/header/XFF)
//   2) Chama a camada application para obter a decisão
//   3) Se bloqueado, responde 429 (rate limit) ou 503 (concorrência)
//   4) Se permitido, chama o próximo handler (ex: endpoint de contato)
//
// O endpoint de contato não usa Middleware para a política de envio: ele chama
// application.Service diretamente (ver pacote contact) e reaproveita
// DefaultKeyFunc, SetHeaders e RetryAfterSeconds.
package ratelimit
