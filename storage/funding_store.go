package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/ferreirogomes/fraciona/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// SaveProperty insere um novo imóvel listado.
func (d *DB) SaveProperty(ctx context.Context, p models.Property) error {
	query := `INSERT INTO properties
		(id, title, location, description, funding_goal, current_funding, funded, price_per_fraction, total_fractions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := d.ExecContext(ctx, query,
		p.ID, p.Title, p.Location, p.Description, p.FundingGoal,
		p.CurrentFunding, p.Funded, p.PricePerFraction, p.TotalFractions, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar imóvel: %w", err)
	}
	return nil
}

// GetProperty obtém um imóvel pelo ID.
func (d *DB) GetProperty(ctx context.Context, id string) (models.Property, bool, error) {
	var p models.Property
	err := d.GetContext(ctx, &p, `SELECT * FROM properties WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Property{}, false, nil
	}
	if err != nil {
		return models.Property{}, false, fmt.Errorf("falha ao buscar imóvel: %w", err)
	}
	return p, true, nil
}

// ListProperties retorna todos os imóveis listados, mais recentes primeiro.
func (d *DB) ListProperties(ctx context.Context) ([]models.Property, error) {
	var props []models.Property
	err := d.SelectContext(ctx, &props, `SELECT * FROM properties ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar imóveis: %w", err)
	}
	return props, nil
}

// GetInvestment obtém um investimento pelo ID.
func (d *DB) GetInvestment(ctx context.Context, id string) (models.Investment, bool, error) {
	var inv models.Investment
	err := d.GetContext(ctx, &inv, `SELECT * FROM investments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Investment{}, false, nil
	}
	if err != nil {
		return models.Investment{}, false, fmt.Errorf("falha ao buscar investimento: %w", err)
	}
	return inv, true, nil
}

// GetInvestmentByRequestID obtém um investimento pela chave de idempotência.
func (d *DB) GetInvestmentByRequestID(ctx context.Context, requestID string) (models.Investment, bool, error) {
	var inv models.Investment
	err := d.GetContext(ctx, &inv, `SELECT * FROM investments WHERE request_id = $1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Investment{}, false, nil
	}
	if err != nil {
		return models.Investment{}, false, fmt.Errorf("falha ao buscar investimento por request_id: %w", err)
	}
	return inv, true, nil
}

// GetInvestmentsByProperty retorna os investimentos de um imóvel.
func (d *DB) GetInvestmentsByProperty(ctx context.Context, propertyID string) ([]models.Investment, error) {
	var invs []models.Investment
	err := d.SelectContext(ctx, &invs,
		`SELECT * FROM investments WHERE property_id = $1 ORDER BY purchase_date`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar investimentos do imóvel: %w", err)
	}
	return invs, nil
}

// ApplyAllocation aplica uma alocação como unidade atômica: incremento
// condicional da captação (teto verificado no próprio UPDATE) e inserção do
// investimento na mesma transação. Retorna applied=false quando a atualização
// condicional não se aplica (imóvel já captado ou valor acima do restante),
// sem distinguir a causa; o engine relê o imóvel para decidir o erro.
func (d *DB) ApplyAllocation(ctx context.Context, inv models.Investment) (models.Property, bool, error) {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return models.Property{}, false, fmt.Errorf("falha ao abrir transação: %w", err)
	}
	defer tx.Rollback()

	p, applied, err := applyAllocationTx(ctx, tx, inv)
	if err != nil || !applied {
		return models.Property{}, applied, err
	}

	if err := tx.Commit(); err != nil {
		return models.Property{}, false, fmt.Errorf("falha ao confirmar alocação: %w", err)
	}
	return p, true, nil
}

// ApplyAllocationBatch aplica várias alocações em uma única transação,
// tudo-ou-nada. Os itens são aplicados em ordem de imóvel para manter a
// ordem de travamento determinística; se qualquer incremento condicional
// falhar, a transação inteira é desfeita e applied=false é retornado.
func (d *DB) ApplyAllocationBatch(ctx context.Context, invs []models.Investment) ([]models.Property, bool, error) {
	ordered := make([]models.Investment, len(invs))
	copy(ordered, invs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PropertyID < ordered[j].PropertyID
	})

	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("falha ao abrir transação: %w", err)
	}
	defer tx.Rollback()

	updated := make(map[string]models.Property, len(ordered))
	for _, inv := range ordered {
		p, applied, err := applyAllocationTx(ctx, tx, inv)
		if err != nil || !applied {
			return nil, applied, err
		}
		updated[p.ID] = p
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("falha ao confirmar lote de alocações: %w", err)
	}

	props := make([]models.Property, 0, len(updated))
	for _, p := range updated {
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].ID < props[j].ID })
	return props, true, nil
}

// applyAllocationTx executa o par UPDATE condicional + INSERT dentro de tx.
func applyAllocationTx(ctx context.Context, tx *sqlx.Tx, inv models.Investment) (models.Property, bool, error) {
	var p models.Property
	err := tx.GetContext(ctx, &p, `
		UPDATE properties
		SET current_funding = current_funding + $1,
		    funded = current_funding + $1 >= funding_goal
		WHERE id = $2
		  AND NOT funded
		  AND current_funding + $1 <= funding_goal
		RETURNING *`, inv.Amount, inv.PropertyID)
	if errors.Is(err, sql.ErrNoRows) {
		// Corrida perdida: captado por outra requisição ou valor acima do restante.
		return models.Property{}, false, nil
	}
	if err != nil {
		return models.Property{}, false, fmt.Errorf("falha ao atualizar captação: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO investments
		(id, property_id, investor_address, amount, fraction_count, status, transaction_signature, request_id, purchase_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.PropertyID, inv.InvestorAddress, inv.Amount, inv.FractionCount,
		inv.Status, inv.TransactionSignature, inv.RequestID, inv.PurchaseDate)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return models.Property{}, false, ErrDuplicateRequest
		}
		return models.Property{}, false, fmt.Errorf("falha ao registrar investimento: %w", err)
	}

	return p, true, nil
}
