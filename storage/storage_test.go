package storage_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ferreirogomes/fraciona/models"
	"github.com/ferreirogomes/fraciona/services"
	"github.com/ferreirogomes/fraciona/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Testes de integração contra um PostgreSQL real, habilitados por
// TEST_DATABASE_URL. Exemplo:
//
//	TEST_DATABASE_URL="host=localhost port=5433 user=test password=test dbname=fraciona_test sslmode=disable" go test ./storage
func testDB(t *testing.T) *storage.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL não definido; pulando testes de integração.")
	}
	db, err := storage.NewDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec(`DELETE FROM proposal_votes; DELETE FROM proposals; DELETE FROM investments; DELETE FROM properties; DELETE FROM users;`)
		db.Close()
	})
	db.Exec(`DELETE FROM proposal_votes; DELETE FROM proposals; DELETE FROM investments; DELETE FROM properties; DELETE FROM users;`)
	return db
}

func seedProperty(t *testing.T, db *storage.DB, goal float64) models.Property {
	t.Helper()
	p := models.Property{
		ID:          uuid.New().String(),
		Title:       "Edifício Teste",
		FundingGoal: goal,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, db.SaveProperty(context.Background(), p))
	return p
}

func seedUser(t *testing.T, db *storage.DB) models.User {
	t.Helper()
	u := models.User{
		ID:            uuid.New().String(),
		Name:          "Investidor Teste",
		Email:         "teste@example.com",
		WalletAddress: uuid.New().String(),
		CreatedAt:     time.Now(),
	}
	require.NoError(t, db.SaveUser(context.Background(), u))
	return u
}

func newInvestment(propertyID, wallet string, amount float64) models.Investment {
	return models.Investment{
		ID:                   uuid.New().String(),
		PropertyID:           propertyID,
		InvestorAddress:      wallet,
		Amount:               amount,
		FractionCount:        1,
		Status:               models.InvestmentStatusActive,
		TransactionSignature: uuid.New().String(),
		PurchaseDate:         time.Now(),
	}
}

// TestApplyAllocationCeiling verifica o teto no próprio UPDATE condicional:
// acima do restante nada é aplicado e a captação fica intacta.
func TestApplyAllocationCeiling(t *testing.T) {
	db := testDB(t)
	p := seedProperty(t, db, 10000)
	u := seedUser(t, db)

	_, applied, err := db.ApplyAllocation(context.Background(), newInvestment(p.ID, u.WalletAddress, 9000))
	require.NoError(t, err)
	require.True(t, applied)

	_, applied, err = db.ApplyAllocation(context.Background(), newInvestment(p.ID, u.WalletAddress, 1500))
	require.NoError(t, err)
	assert.False(t, applied)

	got, found, err := db.GetProperty(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 9000.0, got.CurrentFunding)
	assert.False(t, got.Funded)

	updated, applied, err := db.ApplyAllocation(context.Background(), newInvestment(p.ID, u.WalletAddress, 1000))
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, 10000.0, updated.CurrentFunding)
	assert.True(t, updated.Funded)
}

// TestParallelAllocationsNoLostUpdates é a propriedade de concorrência do
// engine: N alocações paralelas com meta = N * valor terminam com a captação
// exatamente na meta e N investimentos, nenhuma atualização perdida.
func TestParallelAllocationsNoLostUpdates(t *testing.T) {
	db := testDB(t)

	const n = 10
	const amount = 100.0
	p := seedProperty(t, db, n*amount)
	u := seedUser(t, db)

	service := services.NewFundingService(db)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Allocate(context.Background(), services.AllocationRequest{
				PropertyID:      p.ID,
				InvestorAddress: u.WalletAddress,
				FractionCount:   1,
				TotalAmount:     amount,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, fmt.Sprintf("alocação %d falhou", i))
	}

	got, _, err := db.GetProperty(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, n*amount, got.CurrentFunding)
	assert.True(t, got.Funded)

	invs, err := db.GetInvestmentsByProperty(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, invs, n)
}

// TestApplyAllocationDuplicateRequestID verifica que o índice único de
// request_id segura o replay concorrente.
func TestApplyAllocationDuplicateRequestID(t *testing.T) {
	db := testDB(t)
	p := seedProperty(t, db, 10000)
	u := seedUser(t, db)

	rid := uuid.New().String()
	inv1 := newInvestment(p.ID, u.WalletAddress, 500)
	inv1.RequestID = &rid
	inv2 := newInvestment(p.ID, u.WalletAddress, 500)
	inv2.RequestID = &rid

	_, applied, err := db.ApplyAllocation(context.Background(), inv1)
	require.NoError(t, err)
	require.True(t, applied)

	_, _, err = db.ApplyAllocation(context.Background(), inv2)
	assert.ErrorIs(t, err, storage.ErrDuplicateRequest)

	// O UPDATE da segunda tentativa foi desfeito junto com a transação.
	got, _, err := db.GetProperty(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, got.CurrentFunding)
}

// TestApplyAllocationBatchAllOrNothing verifica o lote: um item acima do teto
// desfaz o lote inteiro.
func TestApplyAllocationBatchAllOrNothing(t *testing.T) {
	db := testDB(t)
	p := seedProperty(t, db, 1000)
	u := seedUser(t, db)

	_, applied, err := db.ApplyAllocationBatch(context.Background(), []models.Investment{
		newInvestment(p.ID, u.WalletAddress, 600),
		newInvestment(p.ID, u.WalletAddress, 600),
	})
	require.NoError(t, err)
	assert.False(t, applied)

	got, _, err := db.GetProperty(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.CurrentFunding)

	invs, err := db.GetInvestmentsByProperty(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, invs)
}

// TestMutateProposalConcurrentCasts verifica a serialização por proposta:
// votos paralelos não perdem atualização de poder nem de pertencimento.
func TestMutateProposalConcurrentCasts(t *testing.T) {
	db := testDB(t)
	p := seedProperty(t, db, 10000)

	service := services.NewVotingService(db)
	proposal, err := service.CreateProposal(context.Background(), p.ID, "Trocar administradora", "", 1000)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := fmt.Sprintf("voter-%d", i)
			_, err := service.CastVote(context.Background(), proposal.ID, voter, models.VoteTypeFor, 10)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := service.GetProposal(context.Background(), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(n*10), got.VotingPower.For)
	assert.Len(t, got.Votes.For, n)
	assert.Equal(t, models.ProposalStatusActive, got.Status)
}
