package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ferreirogomes/fraciona/services"
)

// writeError mapeia os erros de domínio para códigos HTTP. Toda rejeição
// devolve o motivo específico no corpo, nunca uma falha genérica.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrPropertyNotFound),
		errors.Is(err, services.ErrProposalNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrAlreadyFunded),
		errors.Is(err, services.ErrProposalClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrExceedsRemainingGoal):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSON serializa a resposta com o código informado.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
