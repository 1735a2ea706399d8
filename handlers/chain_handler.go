package handlers

import (
	"net/http"

	"github.com/ferreirogomes/fraciona/services"

	"github.com/go-chi/chi/v5"
)

// ChainHandler expõe as leituras on-chain feitas através do pool de
// endpoints. Resultado vazio vira 404 "sem dados no momento", nunca 5xx:
// indisponibilidade transitória do upstream não é erro do serviço.
type ChainHandler struct {
	Service *services.ChainReadService
}

// NewChainHandler cria uma nova instância do handler de leituras on-chain.
func NewChainHandler(s *services.ChainReadService) *ChainHandler {
	return &ChainHandler{Service: s}
}

// GetWalletBalance busca o saldo on-chain de uma carteira.
// GET /chain/wallets/{address}/balance
func (h *ChainHandler) GetWalletBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if address == "" {
		http.Error(w, "Endereço de carteira é obrigatório", http.StatusBadRequest)
		return
	}

	balance, err := h.Service.WalletBalance(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	if balance == nil {
		http.Error(w, "Sem dados disponíveis no momento", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

// GetFractionBalance busca o saldo de frações de uma conta de token.
// GET /chain/accounts/{account}/fractions
func (h *ChainHandler) GetFractionBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if account == "" {
		http.Error(w, "Conta de token é obrigatória", http.StatusBadRequest)
		return
	}

	amount, err := h.Service.FractionBalance(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	if amount == nil {
		http.Error(w, "Sem dados disponíveis no momento", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, amount)
}

// GetSignatureStatus consulta o status de uma assinatura de transação.
// GET /chain/signatures/{signature}
func (h *ChainHandler) GetSignatureStatus(w http.ResponseWriter, r *http.Request) {
	signature := chi.URLParam(r, "signature")
	if signature == "" {
		http.Error(w, "Assinatura é obrigatória", http.StatusBadRequest)
		return
	}

	status, err := h.Service.SignatureStatus(r.Context(), signature)
	if err != nil {
		writeError(w, err)
		return
	}
	if status == "" {
		http.Error(w, "Sem dados disponíveis no momento", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"signature": signature, "status": status})
}

// GetEndpointStatus devolve o snapshot do pool de endpoints RPC.
// GET /chain/endpoints
func (h *ChainHandler) GetEndpointStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.PoolStatus())
}
