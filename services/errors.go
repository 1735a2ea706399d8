package services

import "errors"

// Erros de domínio dos engines de alocação e votação. Cada rejeição carrega
// um motivo específico para que o chamador apresente uma mensagem acionável.
var (
	ErrUserNotFound         = errors.New("investidor não encontrado")
	ErrPropertyNotFound     = errors.New("imóvel não encontrado")
	ErrProposalNotFound     = errors.New("proposta não encontrada")
	ErrAlreadyFunded        = errors.New("imóvel já atingiu a meta de captação")
	ErrExceedsRemainingGoal = errors.New("valor excede o restante da meta de captação")
	ErrProposalClosed       = errors.New("proposta não está mais ativa")
	ErrInvalidInput         = errors.New("entrada inválida")
)
