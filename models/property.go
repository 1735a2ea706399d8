package models

import "time"

// Property representa um imóvel listado para investimento fracionado.
type Property struct {
	ID               string    `json:"id" db:"id"`
	Title            string    `json:"title" db:"title"`
	Location         string    `json:"location" db:"location"`
	Description      string    `json:"description" db:"description"`
	FundingGoal      float64   `json:"funding_goal" db:"funding_goal"`         // Meta de captação (moeda corrente)
	CurrentFunding   float64   `json:"current_funding" db:"current_funding"`   // Captado até agora; nunca ultrapassa a meta
	Funded           bool      `json:"funded" db:"funded"`                     // Derivado: current_funding >= funding_goal
	PricePerFraction float64   `json:"price_per_fraction" db:"price_per_fraction"`
	TotalFractions   int       `json:"total_fractions" db:"total_fractions"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// RemainingGoal retorna quanto ainda falta para atingir a meta de captação.
func (p Property) RemainingGoal() float64 {
	remaining := p.FundingGoal - p.CurrentFunding
	if remaining < 0 {
		return 0
	}
	return remaining
}
