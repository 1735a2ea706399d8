package models

import "time"

// Status possíveis de uma proposta de governança.
// PASSED, REJECTED e EXECUTED são terminais; EXECUTED é atingido
// apenas por um executor externo.
const (
	ProposalStatusActive   = "ACTIVE"
	ProposalStatusPassed   = "PASSED"
	ProposalStatusRejected = "REJECTED"
	ProposalStatusExecuted = "EXECUTED"
)

// Tipos de voto aceitos.
const (
	VoteTypeFor     = "for"
	VoteTypeAgainst = "against"
)

// VotingPower agrega o poder de voto de uma proposta.
// Total é o denominador de quórum, fixado na criação.
type VotingPower struct {
	For     float64 `json:"for"`
	Against float64 `json:"against"`
	Total   float64 `json:"total"`
}

// VoteSets guarda os endereços votantes de cada lado. Um endereço
// aparece em no máximo um dos dois conjuntos.
type VoteSets struct {
	For     []string `json:"for"`
	Against []string `json:"against"`
}

// Proposal representa uma proposta de governança vinculada a um imóvel.
type Proposal struct {
	ID          string      `json:"id" db:"id"`
	PropertyID  string      `json:"property_id" db:"property_id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	Status      string      `json:"status" db:"status"`
	VotingPower VotingPower `json:"voting_power" db:"-"`
	Votes       VoteSets    `json:"votes" db:"-"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	ClosedAt    *time.Time  `json:"closed_at,omitempty" db:"closed_at"`
}

// QuorumReached indica se a soma de poder a favor e contra atingiu o quórum.
func (p Proposal) QuorumReached() bool {
	return p.VotingPower.For+p.VotingPower.Against >= p.VotingPower.Total
}

// Vote é o registro transitório de um voto individual; a persistência
// acontece somente como mutação da Proposal.
type Vote struct {
	VoterAddress string    `json:"voter_address" db:"voter_address"`
	VoteType     string    `json:"vote_type" db:"vote_type"`
	VotingPower  float64   `json:"voting_power" db:"voting_power"`
	CastAt       time.Time `json:"cast_at" db:"cast_at"`
}
