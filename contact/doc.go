// Package contact expõe o envio do formulário de contato via HTTP
// (POST com JSON {name, email, message}).
//
// Camadas, no mesmo formato de middleware/ratelimit:
//
//   - domain: Submission, Email, erros e contratos
//   - application: Submitter (rate limit → validação → sanitização → envio)
//   - infra: validator/v10, bluemonday, Resend, Prometheus
//   - contact (este pacote): Handler HTTP + tradução de erros para status/headers
package contact
