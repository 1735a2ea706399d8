package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ferreirogomes/fraciona/models"
	"github.com/ferreirogomes/fraciona/services"

	"github.com/go-chi/chi/v5"
)

// InvestmentReader é a visão de leitura de investimentos usada pelo handler.
type InvestmentReader interface {
	GetInvestment(ctx context.Context, id string) (models.Investment, bool, error)
	GetInvestmentsByProperty(ctx context.Context, propertyID string) ([]models.Investment, error)
}

// InvestmentHandler lida com requisições HTTP de compra de frações.
type InvestmentHandler struct {
	Service       *services.FundingService
	Reader        InvestmentReader
	MinInvestment float64 // Valor mínimo por compra, aplicado aqui, não no engine
}

// NewInvestmentHandler cria uma nova instância do handler de investimentos.
func NewInvestmentHandler(s *services.FundingService, reader InvestmentReader, minInvestment float64) *InvestmentHandler {
	return &InvestmentHandler{Service: s, Reader: reader, MinInvestment: minInvestment}
}

// CreateInvestment aplica uma alocação individual (commit por chamada).
// POST /investments
func (h *InvestmentHandler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req services.AllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.validateRequest(req); err != nil {
		writeError(w, err)
		return
	}

	receipt, err := h.Service.Allocate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// CreateInvestmentBatch aplica um lote de alocações tudo-ou-nada: todos os
// itens são validados contra um snapshot antes de qualquer commit e um único
// item inválido rejeita o lote inteiro.
// POST /investments/batch
func (h *InvestmentHandler) CreateInvestmentBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []services.AllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for i, req := range reqs {
		if err := h.validateRequest(req); err != nil {
			writeError(w, fmt.Errorf("item %d: %w", i, err))
			return
		}
	}

	receipts, err := h.Service.AllocateBatch(r.Context(), reqs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, receipts)
}

// GetInvestmentByID obtém um investimento pelo ID.
// GET /investments/{id}
func (h *InvestmentHandler) GetInvestmentByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "ID do investimento é obrigatório", http.StatusBadRequest)
		return
	}

	inv, found, err := h.Reader.GetInvestment(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Investimento não encontrado", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, inv)
}

// GetInvestmentsByProperty lista os investimentos de um imóvel.
// GET /properties/{id}/investments
func (h *InvestmentHandler) GetInvestmentsByProperty(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "id")
	if propertyID == "" {
		http.Error(w, "ID do imóvel é obrigatório", http.StatusBadRequest)
		return
	}

	invs, err := h.Reader.GetInvestmentsByProperty(r.Context(), propertyID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, invs)
}

// validateRequest aplica as checagens de payload que pertencem à borda:
// faixas e o valor mínimo configurado.
func (h *InvestmentHandler) validateRequest(req services.AllocationRequest) error {
	if req.PropertyID == "" {
		return fmt.Errorf("%w: property_id é obrigatório", services.ErrInvalidInput)
	}
	if req.InvestorAddress == "" {
		return fmt.Errorf("%w: wallet é obrigatório", services.ErrInvalidInput)
	}
	if req.FractionCount < 1 {
		return fmt.Errorf("%w: fraction_count deve ser >= 1", services.ErrInvalidInput)
	}
	if req.PricePerFraction < 0 {
		return fmt.Errorf("%w: price_per_fraction não pode ser negativo", services.ErrInvalidInput)
	}
	if req.TotalAmount < h.MinInvestment {
		return fmt.Errorf("%w: valor mínimo de investimento é %.2f", services.ErrInvalidInput, h.MinInvestment)
	}
	return nil
}
