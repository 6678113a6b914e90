// Package application contém o caso de uso de envio do formulário de contato:
// rate limit → validação → sanitização → envio.
//
// Não conhece net/http; as dependências externas (janela de rate limit,
// provedor de e-mail) chegam por injeção.
package application
