package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ferreirogomes/fraciona/models"

	"github.com/google/uuid"
)

// VotingStore é o gateway de persistência do engine de votação.
// MutateProposal executa fn sobre o agregado da proposta com a sequência
// ler-modificar-gravar atômica por proposta; um erro de fn desfaz tudo e é
// propagado intacto. found=false quando a proposta não existe.
type VotingStore interface {
	GetProperty(ctx context.Context, id string) (models.Property, bool, error)
	SaveProposal(ctx context.Context, p models.Proposal) error
	GetProposal(ctx context.Context, id string) (models.Proposal, bool, error)
	ListProposalsByProperty(ctx context.Context, propertyID string) ([]models.Proposal, error)
	MutateProposal(ctx context.Context, id string, fn func(p *models.Proposal, votes *[]models.Vote) error) (models.Proposal, bool, error)
}

// VotingService é o engine de votação: substitui o voto anterior de cada
// votante, recalcula o poder agregado e avalia a condição de quórum que fecha
// a proposta.
type VotingService struct {
	store VotingStore
}

// NewVotingService cria uma nova instância do engine de votação.
func NewVotingService(store VotingStore) *VotingService {
	return &VotingService{store: store}
}

// CreateProposal cria uma proposta ativa para um imóvel, com o denominador de
// quórum fixado na criação.
func (s *VotingService) CreateProposal(ctx context.Context, propertyID, title, description string, quorum float64) (models.Proposal, error) {
	if title == "" {
		return models.Proposal{}, fmt.Errorf("%w: título é obrigatório", ErrInvalidInput)
	}
	if quorum <= 0 {
		return models.Proposal{}, fmt.Errorf("%w: quórum deve ser positivo", ErrInvalidInput)
	}

	if _, found, err := s.store.GetProperty(ctx, propertyID); err != nil {
		return models.Proposal{}, err
	} else if !found {
		return models.Proposal{}, ErrPropertyNotFound
	}

	p := models.Proposal{
		ID:          uuid.New().String(),
		PropertyID:  propertyID,
		Title:       title,
		Description: description,
		Status:      models.ProposalStatusActive,
		VotingPower: models.VotingPower{Total: quorum},
		Votes:       models.VoteSets{For: []string{}, Against: []string{}},
		CreatedAt:   time.Now(),
	}
	if err := s.store.SaveProposal(ctx, p); err != nil {
		return models.Proposal{}, err
	}

	log.Printf("Proposta %s criada para o imóvel %s (quórum %.2f).", p.ID, propertyID, quorum)
	return p, nil
}

// GetProposal obtém uma proposta com seus votos.
func (s *VotingService) GetProposal(ctx context.Context, id string) (models.Proposal, error) {
	p, found, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return models.Proposal{}, err
	}
	if !found {
		return models.Proposal{}, ErrProposalNotFound
	}
	return p, nil
}

// ListProposalsByProperty retorna as propostas de um imóvel.
func (s *VotingService) ListProposalsByProperty(ctx context.Context, propertyID string) ([]models.Proposal, error) {
	return s.store.ListProposalsByProperty(ctx, propertyID)
}

// CastVote registra um voto em uma proposta ativa. Um voto anterior do mesmo
// endereço é substituído (só o último voto conta para os conjuntos), o poder
// informado é somado ao lado escolhido e o quórum é avaliado de forma
// síncrona antes do retorno, exatamente uma vez por voto.
//
// O modelo de poder é aditivo por chamada, não recalculado a partir dos
// conjuntos: votos repetidos do mesmo endereço com poderes diferentes
// acumulam poder. O caminho de retratação usa contagem (ver RetractVote).
func (s *VotingService) CastVote(ctx context.Context, proposalID, voterAddress, voteType string, votingPower float64) (models.Proposal, error) {
	if voterAddress == "" {
		return models.Proposal{}, fmt.Errorf("%w: endereço do votante é obrigatório", ErrInvalidInput)
	}
	if voteType != models.VoteTypeFor && voteType != models.VoteTypeAgainst {
		return models.Proposal{}, fmt.Errorf("%w: vote_type deve ser 'for' ou 'against'", ErrInvalidInput)
	}
	if votingPower <= 0 {
		return models.Proposal{}, fmt.Errorf("%w: voting_power deve ser positivo", ErrInvalidInput)
	}

	updated, found, err := s.store.MutateProposal(ctx, proposalID, func(p *models.Proposal, votes *[]models.Vote) error {
		if p.Status != models.ProposalStatusActive {
			return ErrProposalClosed
		}

		removeVoter(votes, voterAddress)
		*votes = append(*votes, models.Vote{
			VoterAddress: voterAddress,
			VoteType:     voteType,
			VotingPower:  votingPower,
			CastAt:       time.Now(),
		})

		if voteType == models.VoteTypeFor {
			p.VotingPower.For += votingPower
		} else {
			p.VotingPower.Against += votingPower
		}

		if p.QuorumReached() {
			now := time.Now()
			p.ClosedAt = &now
			if p.VotingPower.For > p.VotingPower.Against {
				p.Status = models.ProposalStatusPassed
			} else {
				p.Status = models.ProposalStatusRejected
			}
			log.Printf("Proposta %s atingiu quórum (%.2f/%.2f): %s.",
				p.ID, p.VotingPower.For+p.VotingPower.Against, p.VotingPower.Total, p.Status)
		}
		return nil
	})
	if err != nil {
		return models.Proposal{}, err
	}
	if !found {
		return models.Proposal{}, ErrProposalNotFound
	}
	return updated, nil
}

// RetractVote remove o voto de um endereço e recalcula os marcadores de poder
// como a CONTAGEM de votantes restantes de cada lado, não a soma dos poderes,
// diferente do modelo aditivo do CastVote. A retratação é permitida em
// qualquer status e nunca reavalia o quórum: uma proposta fechada não reabre.
func (s *VotingService) RetractVote(ctx context.Context, proposalID, voterAddress string) (models.Proposal, error) {
	if voterAddress == "" {
		return models.Proposal{}, fmt.Errorf("%w: endereço do votante é obrigatório", ErrInvalidInput)
	}

	updated, found, err := s.store.MutateProposal(ctx, proposalID, func(p *models.Proposal, votes *[]models.Vote) error {
		removeVoter(votes, voterAddress)

		var countFor, countAgainst float64
		for _, v := range *votes {
			if v.VoteType == models.VoteTypeFor {
				countFor++
			} else {
				countAgainst++
			}
		}
		p.VotingPower.For = countFor
		p.VotingPower.Against = countAgainst
		return nil
	})
	if err != nil {
		return models.Proposal{}, err
	}
	if !found {
		return models.Proposal{}, ErrProposalNotFound
	}

	log.Printf("Voto de %s retirado da proposta %s.", voterAddress, proposalID)
	return updated, nil
}

// removeVoter tira o endereço de ambos os lados; um endereço vota em no
// máximo um conjunto por vez.
func removeVoter(votes *[]models.Vote, voterAddress string) {
	kept := (*votes)[:0]
	for _, v := range *votes {
		if v.VoterAddress != voterAddress {
			kept = append(kept, v)
		}
	}
	*votes = kept
}
