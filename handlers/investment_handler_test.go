package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"context"

	"github.com/ferreirogomes/fraciona/handlers"
	"github.com/ferreirogomes/fraciona/models"
	"github.com/ferreirogomes/fraciona/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFundingStore é uma implementação mock do services.FundingStore.
type MockFundingStore struct {
	mock.Mock
}

func (m *MockFundingStore) GetProperty(ctx context.Context, id string) (models.Property, bool, error) {
	args := m.Called(id)
	return args.Get(0).(models.Property), args.Bool(1), args.Error(2)
}

func (m *MockFundingStore) GetUserByWalletAddress(ctx context.Context, wallet string) (models.User, bool, error) {
	args := m.Called(wallet)
	return args.Get(0).(models.User), args.Bool(1), args.Error(2)
}

func (m *MockFundingStore) GetInvestmentByRequestID(ctx context.Context, requestID string) (models.Investment, bool, error) {
	args := m.Called(requestID)
	return args.Get(0).(models.Investment), args.Bool(1), args.Error(2)
}

func (m *MockFundingStore) ApplyAllocation(ctx context.Context, inv models.Investment) (models.Property, bool, error) {
	args := m.Called(inv)
	return args.Get(0).(models.Property), args.Bool(1), args.Error(2)
}

func (m *MockFundingStore) ApplyAllocationBatch(ctx context.Context, invs []models.Investment) ([]models.Property, bool, error) {
	args := m.Called(invs)
	return args.Get(0).([]models.Property), args.Bool(1), args.Error(2)
}

func (m *MockFundingStore) GetInvestment(ctx context.Context, id string) (models.Investment, bool, error) {
	args := m.Called(id)
	return args.Get(0).(models.Investment), args.Bool(1), args.Error(2)
}

func (m *MockFundingStore) GetInvestmentsByProperty(ctx context.Context, propertyID string) ([]models.Investment, error) {
	args := m.Called(propertyID)
	return args.Get(0).([]models.Investment), args.Error(1)
}

const testWallet = "GnL5gP5tK25fN4W32L54wN92p24fJ84tJ62dK2s8S7b"

func newInvestmentRouter(mockStore *MockFundingStore) *chi.Mux {
	service := services.NewFundingService(mockStore)
	handler := handlers.NewInvestmentHandler(service, mockStore, 100)

	r := chi.NewRouter()
	r.Post("/investments", handler.CreateInvestment)
	r.Post("/investments/batch", handler.CreateInvestmentBatch)
	r.Get("/investments/{id}", handler.GetInvestmentByID)
	return r
}

func postJSON(t *testing.T, r *chi.Mux, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// TestCreateInvestment testa o caminho feliz da compra de frações.
func TestCreateInvestment(t *testing.T) {
	mockStore := new(MockFundingStore)
	r := newInvestmentRouter(mockStore)

	property := models.Property{ID: "prop-1", FundingGoal: 10000, CurrentFunding: 9000}
	funded := property
	funded.CurrentFunding = 10000
	funded.Funded = true

	mockStore.On("GetUserByWalletAddress", testWallet).
		Return(models.User{ID: "user-1"}, true, nil).Once()
	mockStore.On("GetProperty", "prop-1").Return(property, true, nil).Once()
	mockStore.On("ApplyAllocation", mock.AnythingOfType("models.Investment")).
		Return(funded, true, nil).Once()

	rr := postJSON(t, r, "/investments", services.AllocationRequest{
		PropertyID:      "prop-1",
		InvestorAddress: testWallet,
		FractionCount:   2,
		TotalAmount:     1000,
	})

	assert.Equal(t, http.StatusCreated, rr.Code)

	var receipt services.AllocationReceipt
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &receipt))
	assert.Equal(t, 10000.0, receipt.NewCurrentFunding)
	assert.True(t, receipt.Funded)

	mockStore.AssertExpectations(t)
}

// TestCreateInvestmentBelowMinimum testa o valor mínimo aplicado na borda,
// antes do engine.
func TestCreateInvestmentBelowMinimum(t *testing.T) {
	mockStore := new(MockFundingStore)
	r := newInvestmentRouter(mockStore)

	rr := postJSON(t, r, "/investments", services.AllocationRequest{
		PropertyID:      "prop-1",
		InvestorAddress: testWallet,
		FractionCount:   1,
		TotalAmount:     50, // Abaixo do mínimo de 100
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mockStore.AssertNotCalled(t, "GetUserByWalletAddress", mock.Anything)
}

// TestCreateInvestmentExceedsGoal testa o mapeamento de
// ExceedsRemainingGoal para 422 com o motivo no corpo.
func TestCreateInvestmentExceedsGoal(t *testing.T) {
	mockStore := new(MockFundingStore)
	r := newInvestmentRouter(mockStore)

	mockStore.On("GetUserByWalletAddress", testWallet).
		Return(models.User{ID: "user-1"}, true, nil).Once()
	mockStore.On("GetProperty", "prop-1").
		Return(models.Property{ID: "prop-1", FundingGoal: 10000, CurrentFunding: 9000}, true, nil).Once()

	rr := postJSON(t, r, "/investments", services.AllocationRequest{
		PropertyID:      "prop-1",
		InvestorAddress: testWallet,
		FractionCount:   1,
		TotalAmount:     1500,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "excede o restante")
}

// TestCreateInvestmentAlreadyFunded testa o mapeamento para 409.
func TestCreateInvestmentAlreadyFunded(t *testing.T) {
	mockStore := new(MockFundingStore)
	r := newInvestmentRouter(mockStore)

	mockStore.On("GetUserByWalletAddress", testWallet).
		Return(models.User{ID: "user-1"}, true, nil).Once()
	mockStore.On("GetProperty", "prop-1").
		Return(models.Property{ID: "prop-1", FundingGoal: 10000, CurrentFunding: 10000, Funded: true}, true, nil).Once()

	rr := postJSON(t, r, "/investments", services.AllocationRequest{
		PropertyID:      "prop-1",
		InvestorAddress: testWallet,
		FractionCount:   1,
		TotalAmount:     500,
	})

	assert.Equal(t, http.StatusConflict, rr.Code)
}

// TestCreateInvestmentUnknownProperty testa o mapeamento para 404.
func TestCreateInvestmentUnknownProperty(t *testing.T) {
	mockStore := new(MockFundingStore)
	r := newInvestmentRouter(mockStore)

	mockStore.On("GetUserByWalletAddress", testWallet).
		Return(models.User{ID: "user-1"}, true, nil).Once()
	mockStore.On("GetProperty", "prop-x").Return(models.Property{}, false, nil).Once()

	rr := postJSON(t, r, "/investments", services.AllocationRequest{
		PropertyID:      "prop-x",
		InvestorAddress: testWallet,
		FractionCount:   1,
		TotalAmount:     500,
	})

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// TestCreateInvestmentBatchRejectsWholeLot testa que um item inválido no lote
// rejeita tudo antes de qualquer chamada ao engine.
func TestCreateInvestmentBatchRejectsWholeLot(t *testing.T) {
	mockStore := new(MockFundingStore)
	r := newInvestmentRouter(mockStore)

	rr := postJSON(t, r, "/investments/batch", []services.AllocationRequest{
		{PropertyID: "prop-1", InvestorAddress: testWallet, FractionCount: 1, TotalAmount: 500},
		{PropertyID: "prop-1", InvestorAddress: testWallet, FractionCount: 0, TotalAmount: 500},
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mockStore.AssertNotCalled(t, "ApplyAllocationBatch", mock.Anything)
}

// TestGetInvestmentByID testa a leitura de um investimento.
func TestGetInvestmentByID(t *testing.T) {
	mockStore := new(MockFundingStore)
	r := newInvestmentRouter(mockStore)

	mockStore.On("GetInvestment", "inv-1").
		Return(models.Investment{ID: "inv-1", PropertyID: "prop-1", Amount: 500}, true, nil).Once()

	req := httptest.NewRequest("GET", "/investments/inv-1", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var inv models.Investment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &inv))
	assert.Equal(t, "inv-1", inv.ID)
}
