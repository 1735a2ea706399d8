package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ferreirogomes/fraciona/models"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// UserStore é a visão de persistência de usuários usada pelo handler.
type UserStore interface {
	SaveUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, id string) (models.User, bool, error)
	GetUserByWalletAddress(ctx context.Context, wallet string) (models.User, bool, error)
}

// UserHandler lida com requisições HTTP relacionadas a usuários.
type UserHandler struct {
	Store UserStore
}

// NewUserHandler cria uma nova instância do handler de usuários.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{Store: store}
}

// CreateUser cria um novo usuário investidor.
// POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string `json:"name"`
		Email         string `json:"email"`
		WalletAddress string `json:"wallet_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Email == "" {
		http.Error(w, "Nome e email são obrigatórios", http.StatusBadRequest)
		return
	}
	if _, err := solana.PublicKeyFromBase58(req.WalletAddress); err != nil {
		http.Error(w, fmt.Sprintf("Endereço de carteira inválido: %v", err), http.StatusBadRequest)
		return
	}

	user := models.User{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Email:         req.Email,
		WalletAddress: req.WalletAddress,
		CreatedAt:     time.Now(),
	}
	if err := h.Store.SaveUser(r.Context(), user); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// GetUserByID obtém um usuário pelo ID.
// GET /users/{id}
func (h *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "ID do usuário é obrigatório", http.StatusBadRequest)
		return
	}

	user, found, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Usuário não encontrado", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GetUserByWallet obtém um usuário pelo endereço de carteira.
// GET /users/by-wallet/{address}
func (h *UserHandler) GetUserByWallet(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if address == "" {
		http.Error(w, "Endereço de carteira é obrigatório", http.StatusBadRequest)
		return
	}

	user, found, err := h.Store.GetUserByWalletAddress(r.Context(), address)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Usuário não encontrado", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
