package domain

import "time"

// Limites do formulário.
const (
	MaxNameLen    = 100
	MaxEmailLen   = 254
	MaxMessageLen = 1000
)

// Submission é o formulário já validado.
type Submission struct {
	Name    string
	Email   string
	Message string
}

// Receipt é o resultado de um envio bem-sucedido.
type Receipt struct {
	MessageID string
	Timestamp time.Time
}

// isoMillis é o formato de Date.toISOString (UTC, milissegundos).
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// TimestampISO formata Timestamp em ISO-8601 UTC.
func (r Receipt) TimestampISO() string {
	return r.Timestamp.UTC().Format(isoMillis)
}

// Email é a requisição enviada ao provedor.
type Email struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// FieldError descreve um campo inválido.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
