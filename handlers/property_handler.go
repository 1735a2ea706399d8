package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ferreirogomes/fraciona/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PropertyStore é a visão de persistência de imóveis usada pelo handler.
type PropertyStore interface {
	SaveProperty(ctx context.Context, p models.Property) error
	GetProperty(ctx context.Context, id string) (models.Property, bool, error)
	ListProperties(ctx context.Context) ([]models.Property, error)
}

// PropertyHandler lida com requisições HTTP de listagem de imóveis.
type PropertyHandler struct {
	Store PropertyStore
}

// NewPropertyHandler cria uma nova instância do handler de imóveis.
func NewPropertyHandler(store PropertyStore) *PropertyHandler {
	return &PropertyHandler{Store: store}
}

// CreateProperty lista um novo imóvel para investimento fracionado.
// POST /properties
func (h *PropertyHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title            string  `json:"title"`
		Location         string  `json:"location"`
		Description      string  `json:"description"`
		FundingGoal      float64 `json:"funding_goal"`
		PricePerFraction float64 `json:"price_per_fraction"`
		TotalFractions   int     `json:"total_fractions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		http.Error(w, "Título é obrigatório", http.StatusBadRequest)
		return
	}
	if req.FundingGoal <= 0 {
		http.Error(w, "Meta de captação deve ser positiva", http.StatusBadRequest)
		return
	}

	property := models.Property{
		ID:               uuid.New().String(),
		Title:            req.Title,
		Location:         req.Location,
		Description:      req.Description,
		FundingGoal:      req.FundingGoal,
		PricePerFraction: req.PricePerFraction,
		TotalFractions:   req.TotalFractions,
		CreatedAt:        time.Now(),
	}
	if err := h.Store.SaveProperty(r.Context(), property); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, property)
}

// GetPropertyByID obtém um imóvel pelo ID.
// GET /properties/{id}
func (h *PropertyHandler) GetPropertyByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "ID do imóvel é obrigatório", http.StatusBadRequest)
		return
	}

	property, found, err := h.Store.GetProperty(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Imóvel não encontrado", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, property)
}

// ListProperties lista todos os imóveis.
// GET /properties
func (h *PropertyHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.Store.ListProperties(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, properties)
}
