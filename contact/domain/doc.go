// Package domain define os tipos e contratos do envio de contato
// (formulário do portfólio → e-mail transacional).
//
// Nada aqui é persistido: uma Submission existe apenas durante uma request.
package domain
