package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ferreirogomes/fraciona/models"
)

// proposalRow espelha as colunas escalares da tabela proposals.
type proposalRow struct {
	ID           string         `db:"id"`
	PropertyID   string         `db:"property_id"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Status       string         `db:"status"`
	PowerFor     float64        `db:"power_for"`
	PowerAgainst float64        `db:"power_against"`
	PowerTotal   float64        `db:"power_total"`
	CreatedAt    sql.NullTime   `db:"created_at"`
	ClosedAt     sql.NullTime   `db:"closed_at"`
}

func (r proposalRow) toModel(votes []models.Vote) models.Proposal {
	p := models.Proposal{
		ID:          r.ID,
		PropertyID:  r.PropertyID,
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		VotingPower: models.VotingPower{
			For:     r.PowerFor,
			Against: r.PowerAgainst,
			Total:   r.PowerTotal,
		},
		Votes: models.VoteSets{For: []string{}, Against: []string{}},
	}
	if r.CreatedAt.Valid {
		p.CreatedAt = r.CreatedAt.Time
	}
	if r.ClosedAt.Valid {
		t := r.ClosedAt.Time
		p.ClosedAt = &t
	}
	for _, v := range votes {
		if v.VoteType == models.VoteTypeFor {
			p.Votes.For = append(p.Votes.For, v.VoterAddress)
		} else {
			p.Votes.Against = append(p.Votes.Against, v.VoterAddress)
		}
	}
	return p
}

// SaveProposal insere uma nova proposta de governança.
func (d *DB) SaveProposal(ctx context.Context, p models.Proposal) error {
	query := `INSERT INTO proposals
		(id, property_id, title, description, status, power_for, power_against, power_total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := d.ExecContext(ctx, query,
		p.ID, p.PropertyID, p.Title, p.Description, p.Status,
		p.VotingPower.For, p.VotingPower.Against, p.VotingPower.Total, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar proposta: %w", err)
	}
	return nil
}

// GetProposal obtém uma proposta com seus conjuntos de votos montados.
func (d *DB) GetProposal(ctx context.Context, id string) (models.Proposal, bool, error) {
	var row proposalRow
	err := d.GetContext(ctx, &row, `SELECT * FROM proposals WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Proposal{}, false, nil
	}
	if err != nil {
		return models.Proposal{}, false, fmt.Errorf("falha ao buscar proposta: %w", err)
	}

	var votes []models.Vote
	err = d.SelectContext(ctx, &votes,
		`SELECT voter_address, vote_type, voting_power, cast_at FROM proposal_votes WHERE proposal_id = $1 ORDER BY cast_at`, id)
	if err != nil {
		return models.Proposal{}, false, fmt.Errorf("falha ao buscar votos da proposta: %w", err)
	}

	return row.toModel(votes), true, nil
}

// ListProposalsByProperty retorna as propostas de um imóvel (sem os votos).
func (d *DB) ListProposalsByProperty(ctx context.Context, propertyID string) ([]models.Proposal, error) {
	var rows []proposalRow
	err := d.SelectContext(ctx, &rows,
		`SELECT * FROM proposals WHERE property_id = $1 ORDER BY created_at DESC`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar propostas: %w", err)
	}
	out := make([]models.Proposal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel(nil))
	}
	return out, nil
}

// MutateProposal executa fn sobre o agregado da proposta dentro de uma
// transação que trava a linha da proposta (FOR UPDATE). A sequência
// ler-modificar-gravar-verificar fica atômica por proposta: fn recebe a
// proposta e seus votos, muda o que precisar, e o resultado é persistido
// antes do commit. Um erro de fn desfaz a transação e é propagado intacto.
func (d *DB) MutateProposal(ctx context.Context, id string, fn func(p *models.Proposal, votes *[]models.Vote) error) (models.Proposal, bool, error) {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return models.Proposal{}, false, fmt.Errorf("falha ao abrir transação: %w", err)
	}
	defer tx.Rollback()

	var row proposalRow
	err = tx.GetContext(ctx, &row, `SELECT * FROM proposals WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Proposal{}, false, nil
	}
	if err != nil {
		return models.Proposal{}, false, fmt.Errorf("falha ao travar proposta: %w", err)
	}

	var votes []models.Vote
	err = tx.SelectContext(ctx, &votes,
		`SELECT voter_address, vote_type, voting_power, cast_at FROM proposal_votes WHERE proposal_id = $1 ORDER BY cast_at`, id)
	if err != nil {
		return models.Proposal{}, false, fmt.Errorf("falha ao buscar votos da proposta: %w", err)
	}

	p := row.toModel(votes)
	if err := fn(&p, &votes); err != nil {
		return models.Proposal{}, true, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE proposals
		SET status = $1, power_for = $2, power_against = $3, closed_at = $4
		WHERE id = $5`,
		p.Status, p.VotingPower.For, p.VotingPower.Against, p.ClosedAt, p.ID)
	if err != nil {
		return models.Proposal{}, true, fmt.Errorf("falha ao atualizar proposta: %w", err)
	}

	// Regrava os votos a partir do estado mutado; o volume por proposta é
	// pequeno e a chave primária (proposal_id, voter_address) garante o
	// invariante de um voto por endereço.
	if _, err := tx.ExecContext(ctx, `DELETE FROM proposal_votes WHERE proposal_id = $1`, p.ID); err != nil {
		return models.Proposal{}, true, fmt.Errorf("falha ao limpar votos da proposta: %w", err)
	}
	for _, v := range votes {
		_, err := tx.ExecContext(ctx, `INSERT INTO proposal_votes
			(proposal_id, voter_address, vote_type, voting_power, cast_at)
			VALUES ($1, $2, $3, $4, $5)`,
			p.ID, v.VoterAddress, v.VoteType, v.VotingPower, v.CastAt)
		if err != nil {
			return models.Proposal{}, true, fmt.Errorf("falha ao gravar voto: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Proposal{}, true, fmt.Errorf("falha ao confirmar mutação da proposta: %w", err)
	}

	// Conjuntos de votos refletem o estado final persistido.
	p.Votes = models.VoteSets{For: []string{}, Against: []string{}}
	for _, v := range votes {
		if v.VoteType == models.VoteTypeFor {
			p.Votes.For = append(p.Votes.For, v.VoterAddress)
		} else {
			p.Votes.Against = append(p.Votes.Against, v.VoterAddress)
		}
	}

	return p, true, nil
}
