// Package infra contém as implementações concretas dos contratos de
// contact/domain: validação (validator/v10), sanitização (bluemonday),
// provedores de e-mail (Resend, log) e métricas (Prometheus).
package infra
