package rpc_manager

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// Valores padrão do pool: janela de rotação dos contadores, quarentena de
// endpoints com falha e limites do backoff exponencial.
const (
	DefaultRotationInterval = 1 * time.Second
	DefaultQuarantinePeriod = 60 * time.Second
	DefaultBaseBackoff      = 1 * time.Second
	DefaultMaxBackoff       = 10 * time.Second
)

// ErrNoEndpoints indica um pool configurado sem endpoints.
var ErrNoEndpoints = errors.New("nenhum endpoint RPC configurado")

// EndpointConfig descreve um endpoint de acesso remoto e seu peso relativo.
type EndpointConfig struct {
	URL    string
	Weight float64 // Capacidade relativa; <= 0 vira 1
}

// Config parametriza o pool. Campos zerados assumem os padrões acima;
// os testes reduzem os intervalos.
type Config struct {
	Endpoints        []EndpointConfig
	RotationInterval time.Duration
	QuarantinePeriod time.Duration
	BaseBackoff      time.Duration
	MaxBackoff       time.Duration
}

// endpoint é o estado mutável de um endpoint do pool. Todo acesso passa pelo
// mutex do Manager.
type endpoint struct {
	url          string
	weight       float64
	currentCalls int
	lastUsed     time.Time
	healthy      bool
	client       *rpc.Client
}

// EndpointStatus é um snapshot imutável de um endpoint, para inspeção.
type EndpointStatus struct {
	URL          string    `json:"url"`
	Weight       float64   `json:"weight"`
	CurrentCalls int       `json:"current_calls"`
	LastUsed     time.Time `json:"last_used"`
	Healthy      bool      `json:"healthy"`
}

// Operation é uma leitura executada contra um endpoint selecionado do pool.
type Operation func(ctx context.Context, client *rpc.Client) (interface{}, error)

// Manager mantém o pool de endpoints RPC com seleção menos-carregada
// ponderada, quarentena com recuperação automática e busca com retry para
// erros de rate limit. O estado inteiro fica atrás de um único mutex.
type Manager struct {
	mu           sync.Mutex
	endpoints    []*endpoint
	lastRotation time.Time

	rotationInterval time.Duration
	quarantinePeriod time.Duration
	baseBackoff      time.Duration
	maxBackoff       time.Duration
}

// NewManager cria o pool a partir da configuração, um cliente RPC por
// endpoint, todos saudáveis.
func NewManager(cfg Config) *Manager {
	if cfg.RotationInterval <= 0 {
		cfg.RotationInterval = DefaultRotationInterval
	}
	if cfg.QuarantinePeriod <= 0 {
		cfg.QuarantinePeriod = DefaultQuarantinePeriod
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}

	m := &Manager{
		lastRotation:     time.Now(),
		rotationInterval: cfg.RotationInterval,
		quarantinePeriod: cfg.QuarantinePeriod,
		baseBackoff:      cfg.BaseBackoff,
		maxBackoff:       cfg.MaxBackoff,
	}
	for _, ec := range cfg.Endpoints {
		weight := ec.Weight
		if weight <= 0 {
			weight = 1
		}
		m.endpoints = append(m.endpoints, &endpoint{
			url:     ec.URL,
			weight:  weight,
			healthy: true,
			client:  rpc.New(ec.URL),
		})
	}
	return m
}

// SelectEndpoint escolhe o endpoint saudável menos carregado pelo critério
// currentCalls/weight (empate fica com o primeiro encontrado), incrementa seu
// contador e devolve o cliente RPC correspondente. Se nenhum endpoint estiver
// saudável, todos voltam a ser considerados saudáveis (fail-open) e a seleção
// é repetida uma vez.
func (m *Manager) SelectEndpoint() (*rpc.Client, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.endpoints) == 0 {
		return nil, "", ErrNoEndpoints
	}

	// Janela rolante: zera os contadores a cada intervalo de rotação.
	if time.Since(m.lastRotation) >= m.rotationInterval {
		for _, ep := range m.endpoints {
			ep.currentCalls = 0
		}
		m.lastRotation = time.Now()
	}

	chosen := m.pickLeastLoaded()
	if chosen == nil {
		// Fail-open: pool inteiro em quarentena, melhor arriscar do que negar.
		log.Println("Nenhum endpoint RPC saudável; reabilitando todos (fail-open).")
		for _, ep := range m.endpoints {
			ep.healthy = true
		}
		chosen = m.pickLeastLoaded()
	}

	chosen.currentCalls++
	chosen.lastUsed = time.Now()
	return chosen.client, chosen.url, nil
}

// pickLeastLoaded percorre os endpoints saudáveis minimizando
// currentCalls/weight. Chamado com o mutex já adquirido.
func (m *Manager) pickLeastLoaded() *endpoint {
	var chosen *endpoint
	var best float64
	for _, ep := range m.endpoints {
		if !ep.healthy {
			continue
		}
		load := float64(ep.currentCalls) / ep.weight
		if chosen == nil || load < best {
			chosen = ep
			best = load
		}
	}
	return chosen
}

// MarkUnhealthy tira um endpoint do pool imediatamente e agenda sua volta
// após o período de quarentena, independente de seleções futuras.
func (m *Manager) MarkUnhealthy(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ep := range m.endpoints {
		if ep.url != url || !ep.healthy {
			continue
		}
		ep.healthy = false
		log.Printf("Endpoint RPC %s em quarentena por %s.", url, m.quarantinePeriod)

		target := ep
		time.AfterFunc(m.quarantinePeriod, func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			target.healthy = true
			log.Printf("Endpoint RPC %s saiu da quarentena.", target.url)
		})
	}
}

// Status devolve um snapshot do pool para inspeção.
func (m *Manager) Status() []EndpointStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]EndpointStatus, 0, len(m.endpoints))
	for _, ep := range m.endpoints {
		out = append(out, EndpointStatus{
			URL:          ep.url,
			Weight:       ep.weight,
			CurrentCalls: ep.currentCalls,
			LastUsed:     ep.lastUsed,
			Healthy:      ep.healthy,
		})
	}
	return out
}

// FetchWithRetry executa op contra um endpoint selecionado por tentativa.
// Falhas de rate limit (HTTP 429 ou equivalente) são retentadas até
// maxRetries vezes com backoff exponencial; esgotadas as tentativas, o
// resultado é (nil, nil): "sem dados no momento", não um erro duro.
// Qualquer outra falha interrompe e volta ao chamador, que decide se marca o
// endpoint como não saudável; este método nunca chama MarkUnhealthy.
func (m *Manager) FetchWithRetry(ctx context.Context, op Operation, maxRetries int) (interface{}, error) {
	for attempt := 0; ; attempt++ {
		client, url, err := m.SelectEndpoint()
		if err != nil {
			return nil, err
		}

		result, err := op(ctx, client)
		if err == nil {
			return result, nil
		}

		if !isRateLimitErr(err) {
			return nil, &EndpointError{URL: url, Err: err}
		}

		if attempt >= maxRetries {
			log.Printf("Rate limit persistente após %d tentativas; devolvendo sem dados.", attempt+1)
			return nil, nil
		}

		delay := backoffDelay(attempt, m.baseBackoff, m.maxBackoff)
		log.Printf("Rate limit em %s (tentativa %d); aguardando %s.", url, attempt+1, delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// EndpointError associa uma falha ao endpoint que a produziu, para que o
// chamador possa decidir sobre a quarentena.
type EndpointError struct {
	URL string
	Err error
}

func (e *EndpointError) Error() string { return e.Err.Error() }
func (e *EndpointError) Unwrap() error { return e.Err }

// backoffDelay é a função pura tentativa → espera:
// min(base * 2^attempt, max). Nenhum estado de retry compartilhado além do
// contador local da chamada.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := base << uint(attempt)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// isRateLimitErr classifica uma falha como rate limit (HTTP 429 ou
// equivalente textual do provedor).
func isRateLimitErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit")
}
