package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ferreirogomes/fraciona/rpc_manager"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// EndpointPool é a visão que o serviço de leitura tem do pool de endpoints.
type EndpointPool interface {
	FetchWithRetry(ctx context.Context, op rpc_manager.Operation, maxRetries int) (interface{}, error)
	MarkUnhealthy(url string)
	Status() []rpc_manager.EndpointStatus
}

// WalletBalance é o saldo on-chain de uma carteira.
type WalletBalance struct {
	Wallet   string  `json:"wallet"`
	Lamports uint64  `json:"lamports"`
	Sol      float64 `json:"sol"`
}

// ChainReadService faz as leituras contra a chain através do pool de
// endpoints. Resultado nil significa "sem dados no momento", nunca um erro
// duro: falhas transitórias já foram retentadas pelo pool. É aqui, no lado do
// chamador, que uma falha de conectividade vira quarentena do endpoint.
type ChainReadService struct {
	pool       EndpointPool
	maxRetries int
}

// NewChainReadService cria o serviço de leitura on-chain.
func NewChainReadService(pool EndpointPool, maxRetries int) *ChainReadService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ChainReadService{pool: pool, maxRetries: maxRetries}
}

// WalletBalance busca o saldo de uma carteira. Retorna nil quando não há
// dados disponíveis no momento.
func (s *ChainReadService) WalletBalance(ctx context.Context, wallet string) (*WalletBalance, error) {
	pubKey, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("%w: endereço de carteira inválido: %v", ErrInvalidInput, err)
	}

	result, err := s.pool.FetchWithRetry(ctx, func(ctx context.Context, client *rpc.Client) (interface{}, error) {
		return client.GetBalance(ctx, pubKey, rpc.CommitmentFinalized)
	}, s.maxRetries)
	if s.handleFetchFailure("saldo da carteira "+wallet, err) || result == nil {
		return nil, nil
	}

	out := result.(*rpc.GetBalanceResult)
	return &WalletBalance{
		Wallet:   wallet,
		Lamports: out.Value,
		Sol:      float64(out.Value) / float64(solana.LAMPORTS_PER_SOL),
	}, nil
}

// FractionBalance busca o saldo de frações de uma conta de token. Retorna a
// quantidade em unidades atômicas, ou nil quando não há dados.
func (s *ChainReadService) FractionBalance(ctx context.Context, tokenAccount string) (*rpc.UiTokenAmount, error) {
	account, err := solana.PublicKeyFromBase58(tokenAccount)
	if err != nil {
		return nil, fmt.Errorf("%w: conta de token inválida: %v", ErrInvalidInput, err)
	}

	result, err := s.pool.FetchWithRetry(ctx, func(ctx context.Context, client *rpc.Client) (interface{}, error) {
		return client.GetTokenAccountBalance(ctx, account, rpc.CommitmentFinalized)
	}, s.maxRetries)
	if s.handleFetchFailure("saldo da conta "+tokenAccount, err) || result == nil {
		return nil, nil
	}

	return result.(*rpc.GetTokenAccountBalanceResult).Value, nil
}

// SignatureStatus consulta o status de confirmação de uma assinatura de
// transação. Retorna string vazia quando não há dados.
func (s *ChainReadService) SignatureStatus(ctx context.Context, signature string) (string, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return "", fmt.Errorf("%w: assinatura inválida: %v", ErrInvalidInput, err)
	}

	result, err := s.pool.FetchWithRetry(ctx, func(ctx context.Context, client *rpc.Client) (interface{}, error) {
		return client.GetSignatureStatuses(ctx, true, sig)
	}, s.maxRetries)
	if s.handleFetchFailure("status da assinatura "+signature, err) || result == nil {
		return "", nil
	}

	statuses := result.(*rpc.GetSignatureStatusesResult)
	if len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return "", nil
	}
	return string(statuses.Value[0].ConfirmationStatus), nil
}

// PoolStatus expõe o snapshot do pool de endpoints.
func (s *ChainReadService) PoolStatus() []rpc_manager.EndpointStatus {
	return s.pool.Status()
}

// handleFetchFailure traduz falhas do pool na política do serviço: erros de
// endpoint colocam o endpoint em quarentena; qualquer falha vira "sem dados".
// Retorna true quando o chamador deve devolver resultado vazio.
func (s *ChainReadService) handleFetchFailure(what string, err error) bool {
	if err == nil {
		return false
	}
	var epErr *rpc_manager.EndpointError
	if errors.As(err, &epErr) {
		log.Printf("Falha ao buscar %s em %s: %v. Endpoint em quarentena.", what, epErr.URL, epErr.Err)
		s.pool.MarkUnhealthy(epErr.URL)
		return true
	}
	log.Printf("Falha ao buscar %s: %v. Devolvendo sem dados.", what, err)
	return true
}
