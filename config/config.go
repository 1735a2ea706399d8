package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ferreirogomes/fraciona/rpc_manager"

	"github.com/kelseyhightower/envconfig"
)

// Config agrega a configuração do processo, lida do ambiente.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	// RPCEndpoints no formato "url=peso,url=peso"; peso omitido vale 1.
	RPCEndpoints  string  `envconfig:"RPC_ENDPOINTS" default:"https://api.mainnet-beta.solana.com=1"`
	RPCMaxRetries int     `envconfig:"RPC_MAX_RETRIES" default:"3"`
	MinInvestment float64 `envconfig:"MIN_INVESTMENT" default:"100"`
}

// Load popula a configuração a partir das variáveis de ambiente.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("falha ao carregar configuração: %w", err)
	}
	return cfg, nil
}

// ParseRPCEndpoints converte a lista "url=peso,url=peso" nos endpoints do pool.
func (c Config) ParseRPCEndpoints() ([]rpc_manager.EndpointConfig, error) {
	var out []rpc_manager.EndpointConfig
	for _, entry := range strings.Split(c.RPCEndpoints, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		url := entry
		weight := 1.0
		if i := strings.LastIndex(entry, "="); i > 0 {
			parsed, err := strconv.ParseFloat(entry[i+1:], 64)
			if err != nil {
				return nil, fmt.Errorf("peso inválido em %q: %w", entry, err)
			}
			url = entry[:i]
			weight = parsed
		}
		out = append(out, rpc_manager.EndpointConfig{URL: url, Weight: weight})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("RPC_ENDPOINTS vazio")
	}
	return out, nil
}
