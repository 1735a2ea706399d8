package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ferreirogomes/fraciona/models"
	"github.com/ferreirogomes/fraciona/storage"

	"github.com/google/uuid"
)

// FundingStore é o gateway de persistência do engine de alocação.
// ApplyAllocation e ApplyAllocationBatch são unidades atômicas: incremento
// condicional da captação (teto verificado no banco) e inserção dos
// investimentos na mesma transação. applied=false indica que a atualização
// condicional não se aplicou, sem efeito algum persistido.
type FundingStore interface {
	GetProperty(ctx context.Context, id string) (models.Property, bool, error)
	GetUserByWalletAddress(ctx context.Context, wallet string) (models.User, bool, error)
	GetInvestmentByRequestID(ctx context.Context, requestID string) (models.Investment, bool, error)
	ApplyAllocation(ctx context.Context, inv models.Investment) (models.Property, bool, error)
	ApplyAllocationBatch(ctx context.Context, invs []models.Investment) ([]models.Property, bool, error)
}

// AllocationRequest é o pedido de compra de frações de um imóvel.
type AllocationRequest struct {
	PropertyID       string  `json:"property_id"`
	InvestorAddress  string  `json:"wallet"`
	FractionCount    int     `json:"fraction_count"`
	PricePerFraction float64 `json:"price_per_fraction"`
	TotalAmount      float64 `json:"total_amount"`
	RequestID        string  `json:"request_id,omitempty"` // Chave de idempotência gerada pelo cliente
}

// AllocationReceipt é o recibo retornado por uma alocação bem-sucedida.
type AllocationReceipt struct {
	TransactionID      string    `json:"transaction_id"`
	Timestamp          time.Time `json:"timestamp"`
	PropertyID         string    `json:"property_id"`
	FractionsPurchased int       `json:"fractions_purchased"`
	TotalAmount        float64   `json:"total_amount"`
	NewCurrentFunding  float64   `json:"new_current_funding"`
	Funded             bool      `json:"funded"`
}

// FundingService é o engine de alocação de captação: valida pedidos de compra
// contra o estado de captação do imóvel e os aplica atomicamente, sem nunca
// permitir captação acima da meta.
type FundingService struct {
	store FundingStore
}

// NewFundingService cria uma nova instância do engine de alocação.
func NewFundingService(store FundingStore) *FundingService {
	return &FundingService{store: store}
}

// Allocate valida e aplica uma alocação. Ordem de validação (a primeira
// falha vence): investidor existe, imóvel existe, imóvel ainda não captado,
// valor cabe no restante da meta. O efeito é uma unidade atômica: captação
// incrementada, derivação de funded e um novo investimento ativo.
func (s *FundingService) Allocate(ctx context.Context, req AllocationRequest) (*AllocationReceipt, error) {
	if req.FractionCount < 1 {
		return nil, fmt.Errorf("%w: fraction_count deve ser >= 1", ErrInvalidInput)
	}
	if req.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: total_amount deve ser positivo", ErrInvalidInput)
	}

	if _, found, err := s.store.GetUserByWalletAddress(ctx, req.InvestorAddress); err != nil {
		return nil, err
	} else if !found {
		return nil, ErrUserNotFound
	}

	// Replay idempotente: um request_id já visto devolve o recibo gravado em
	// vez de debitar de novo.
	if req.RequestID != "" {
		if receipt, found, err := s.replayReceipt(ctx, req.RequestID); err != nil {
			return nil, err
		} else if found {
			log.Printf("Alocação com request_id %s repetida; devolvendo recibo existente.", req.RequestID)
			return receipt, nil
		}
	}

	property, found, err := s.store.GetProperty(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrPropertyNotFound
	}
	if err := validateAgainstProperty(property, req.TotalAmount); err != nil {
		return nil, err
	}

	inv := s.buildInvestment(req)
	updated, applied, err := s.store.ApplyAllocation(ctx, inv)
	if err != nil {
		// Replay concorrente do mesmo request_id: o índice único segura a
		// corrida que a checagem inicial não viu.
		if req.RequestID != "" && errorsIsDuplicate(err) {
			if receipt, found, rerr := s.replayReceipt(ctx, req.RequestID); rerr == nil && found {
				return receipt, nil
			}
		}
		return nil, err
	}
	if !applied {
		// Corrida perdida depois da validação otimista: relê para devolver o
		// motivo correto.
		return nil, s.rejectionReason(ctx, req.PropertyID, req.TotalAmount)
	}

	log.Printf("Alocação aplicada: imóvel %s, investidor %s, valor %.2f (captado %.2f/%.2f).",
		updated.ID, req.InvestorAddress, req.TotalAmount, updated.CurrentFunding, updated.FundingGoal)

	return &AllocationReceipt{
		TransactionID:      inv.TransactionSignature,
		Timestamp:          inv.PurchaseDate,
		PropertyID:         updated.ID,
		FractionsPurchased: inv.FractionCount,
		TotalAmount:        inv.Amount,
		NewCurrentFunding:  updated.CurrentFunding,
		Funded:             updated.Funded,
	}, nil
}

// AllocateBatch aplica vários itens de compra como um lote tudo-ou-nada:
// cada item é validado contra um snapshot em memória dos imóveis afetados
// (acumulando os valores do próprio lote) antes de qualquer gravação; se
// qualquer item falhar, o lote inteiro é rejeitado sem mudança de estado.
func (s *FundingService) AllocateBatch(ctx context.Context, reqs []AllocationRequest) ([]*AllocationReceipt, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: lote vazio", ErrInvalidInput)
	}

	snapshot := make(map[string]models.Property)
	invs := make([]models.Investment, 0, len(reqs))

	for i, req := range reqs {
		if req.FractionCount < 1 {
			return nil, fmt.Errorf("%w: item %d: fraction_count deve ser >= 1", ErrInvalidInput, i)
		}
		if req.TotalAmount <= 0 {
			return nil, fmt.Errorf("%w: item %d: total_amount deve ser positivo", ErrInvalidInput, i)
		}

		if _, found, err := s.store.GetUserByWalletAddress(ctx, req.InvestorAddress); err != nil {
			return nil, err
		} else if !found {
			return nil, fmt.Errorf("item %d: %w", i, ErrUserNotFound)
		}

		property, ok := snapshot[req.PropertyID]
		if !ok {
			var found bool
			var err error
			property, found, err = s.store.GetProperty(ctx, req.PropertyID)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, fmt.Errorf("item %d: %w", i, ErrPropertyNotFound)
			}
		}

		if err := validateAgainstProperty(property, req.TotalAmount); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		// Acumula o efeito do item no snapshot para validar os próximos.
		property.CurrentFunding += req.TotalAmount
		property.Funded = property.CurrentFunding >= property.FundingGoal
		snapshot[req.PropertyID] = property

		invs = append(invs, s.buildInvestment(req))
	}

	updated, applied, err := s.store.ApplyAllocationBatch(ctx, invs)
	if err != nil {
		return nil, err
	}
	if !applied {
		// O estado mudou entre o snapshot e o commit; nada foi aplicado.
		return nil, fmt.Errorf("%w: estado de captação mudou durante o lote", ErrExceedsRemainingGoal)
	}

	byID := make(map[string]models.Property, len(updated))
	for _, p := range updated {
		byID[p.ID] = p
	}

	receipts := make([]*AllocationReceipt, 0, len(invs))
	for _, inv := range invs {
		p := byID[inv.PropertyID]
		receipts = append(receipts, &AllocationReceipt{
			TransactionID:      inv.TransactionSignature,
			Timestamp:          inv.PurchaseDate,
			PropertyID:         inv.PropertyID,
			FractionsPurchased: inv.FractionCount,
			TotalAmount:        inv.Amount,
			NewCurrentFunding:  p.CurrentFunding,
			Funded:             p.Funded,
		})
	}

	log.Printf("Lote de %d alocações aplicado em %d imóveis.", len(invs), len(updated))
	return receipts, nil
}

// buildInvestment monta o registro de investimento de um pedido validado.
func (s *FundingService) buildInvestment(req AllocationRequest) models.Investment {
	var requestID *string
	if req.RequestID != "" {
		rid := req.RequestID
		requestID = &rid
	}
	return models.Investment{
		ID:                   uuid.New().String(),
		PropertyID:           req.PropertyID,
		InvestorAddress:      req.InvestorAddress,
		Amount:               req.TotalAmount,
		FractionCount:        req.FractionCount,
		Status:               models.InvestmentStatusActive,
		TransactionSignature: uuid.New().String(),
		RequestID:            requestID,
		PurchaseDate:         time.Now(),
	}
}

// replayReceipt reconstrói o recibo de um investimento já gravado com o
// mesmo request_id.
func (s *FundingService) replayReceipt(ctx context.Context, requestID string) (*AllocationReceipt, bool, error) {
	inv, found, err := s.store.GetInvestmentByRequestID(ctx, requestID)
	if err != nil || !found {
		return nil, false, err
	}
	property, _, err := s.store.GetProperty(ctx, inv.PropertyID)
	if err != nil {
		return nil, false, err
	}
	return &AllocationReceipt{
		TransactionID:      inv.TransactionSignature,
		Timestamp:          inv.PurchaseDate,
		PropertyID:         inv.PropertyID,
		FractionsPurchased: inv.FractionCount,
		TotalAmount:        inv.Amount,
		NewCurrentFunding:  property.CurrentFunding,
		Funded:             property.Funded,
	}, true, nil
}

// rejectionReason decide entre AlreadyFunded e ExceedsRemainingGoal depois de
// uma corrida perdida na atualização condicional.
func (s *FundingService) rejectionReason(ctx context.Context, propertyID string, amount float64) error {
	property, found, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return err
	}
	if !found {
		return ErrPropertyNotFound
	}
	if verr := validateAgainstProperty(property, amount); verr != nil {
		return verr
	}
	// O estado voltou a caber entre a rejeição e a releitura; a alocação não
	// foi aplicada, então rejeita mesmo assim.
	return fmt.Errorf("%w: estado de captação mudou durante a alocação", ErrExceedsRemainingGoal)
}

// validateAgainstProperty aplica as checagens de captação na ordem do
// contrato: já captado primeiro, depois o teto do restante.
func validateAgainstProperty(p models.Property, amount float64) error {
	if p.Funded {
		return ErrAlreadyFunded
	}
	if amount > p.RemainingGoal() {
		return fmt.Errorf("%w: valor %.2f, restante %.2f", ErrExceedsRemainingGoal, amount, p.RemainingGoal())
	}
	return nil
}

func errorsIsDuplicate(err error) bool {
	return errors.Is(err, storage.ErrDuplicateRequest)
}
