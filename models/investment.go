package models

import "time"

// Status possíveis de um investimento.
const (
	InvestmentStatusPending   = "pending"
	InvestmentStatusActive    = "active"
	InvestmentStatusCompleted = "completed"
)

// Investment representa a compra de frações de um imóvel por um investidor.
// Imutável depois de ativo, exceto transições de status feitas pela liquidação.
type Investment struct {
	ID                   string    `json:"id" db:"id"`
	PropertyID           string    `json:"property_id" db:"property_id"`
	InvestorAddress      string    `json:"investor_address" db:"investor_address"` // Endereço de carteira do investidor
	Amount               float64   `json:"amount" db:"amount"`
	FractionCount        int       `json:"fraction_count" db:"fraction_count"`
	Status               string    `json:"status" db:"status"`
	TransactionSignature string    `json:"transaction_signature" db:"transaction_signature"` // Token opaco de referência
	RequestID            *string   `json:"request_id,omitempty" db:"request_id"`             // Chave de idempotência fornecida pelo cliente
	PurchaseDate         time.Time `json:"purchase_date" db:"purchase_date"`
}
