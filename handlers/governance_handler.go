package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ferreirogomes/fraciona/services"

	"github.com/go-chi/chi/v5"
)

// GovernanceHandler lida com requisições HTTP de propostas e votos.
type GovernanceHandler struct {
	Service *services.VotingService
}

// NewGovernanceHandler cria uma nova instância do handler de governança.
func NewGovernanceHandler(s *services.VotingService) *GovernanceHandler {
	return &GovernanceHandler{Service: s}
}

// CreateProposal cria uma proposta de governança para um imóvel.
// POST /proposals
func (h *GovernanceHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID  string  `json:"property_id"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Quorum      float64 `json:"quorum"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	proposal, err := h.Service.CreateProposal(r.Context(), req.PropertyID, req.Title, req.Description, req.Quorum)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, proposal)
}

// GetProposalByID obtém uma proposta com seus votos.
// GET /proposals/{id}
func (h *GovernanceHandler) GetProposalByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "ID da proposta é obrigatório", http.StatusBadRequest)
		return
	}

	proposal, err := h.Service.GetProposal(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, proposal)
}

// GetProposalsByProperty lista as propostas de um imóvel.
// GET /properties/{id}/proposals
func (h *GovernanceHandler) GetProposalsByProperty(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "id")
	if propertyID == "" {
		http.Error(w, "ID do imóvel é obrigatório", http.StatusBadRequest)
		return
	}

	proposals, err := h.Service.ListProposalsByProperty(r.Context(), propertyID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, proposals)
}

// CastVote registra (ou substitui) o voto de um endereço.
// POST /proposals/{id}/votes
func (h *GovernanceHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "id")
	if proposalID == "" {
		http.Error(w, "ID da proposta é obrigatório", http.StatusBadRequest)
		return
	}

	var req struct {
		UserAddress string  `json:"user_address"`
		VoteType    string  `json:"vote_type"`
		VotingPower float64 `json:"voting_power"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	proposal, err := h.Service.CastVote(r.Context(), proposalID, req.UserAddress, req.VoteType, req.VotingPower)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, proposal)
}

// RetractVote remove o voto de um endereço.
// DELETE /proposals/{id}/votes/{address}
func (h *GovernanceHandler) RetractVote(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "id")
	address := chi.URLParam(r, "address")
	if proposalID == "" || address == "" {
		http.Error(w, "ID da proposta e endereço do votante são obrigatórios", http.StatusBadRequest)
		return
	}

	proposal, err := h.Service.RetractVote(r.Context(), proposalID, address)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, proposal)
}
