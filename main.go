package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ferreirogomes/fraciona/config"
	"github.com/ferreirogomes/fraciona/handlers"
	"github.com/ferreirogomes/fraciona/rpc_manager"
	"github.com/ferreirogomes/fraciona/services"
	"github.com/ferreirogomes/fraciona/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Arquivo .env não encontrado; usando o ambiente do processo.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Falha fatal ao carregar configuração: %v", err)
	}

	db, err := storage.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Falha fatal ao conectar ao banco de dados e aplicar migrações: %v", err)
	}
	defer db.Close()

	rpcEndpoints, err := cfg.ParseRPCEndpoints()
	if err != nil {
		log.Fatalf("Falha ao interpretar RPC_ENDPOINTS: %v", err)
	}
	pool := rpc_manager.NewManager(rpc_manager.Config{Endpoints: rpcEndpoints})
	log.Printf("Pool RPC iniciado com %d endpoints.", len(rpcEndpoints))

	fundingService := services.NewFundingService(db)
	votingService := services.NewVotingService(db)
	chainReadService := services.NewChainReadService(pool, cfg.RPCMaxRetries)

	userHandler := handlers.NewUserHandler(db)
	propertyHandler := handlers.NewPropertyHandler(db)
	investmentHandler := handlers.NewInvestmentHandler(fundingService, db, cfg.MinInvestment)
	governanceHandler := handlers.NewGovernanceHandler(votingService)
	chainHandler := handlers.NewChainHandler(chainReadService)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.CreateUser)
		r.Get("/{id}", userHandler.GetUserByID)
		r.Get("/by-wallet/{address}", userHandler.GetUserByWallet)
	})

	r.Route("/properties", func(r chi.Router) {
		r.Post("/", propertyHandler.CreateProperty)
		r.Get("/", propertyHandler.ListProperties)
		r.Get("/{id}", propertyHandler.GetPropertyByID)
		r.Get("/{id}/investments", investmentHandler.GetInvestmentsByProperty)
		r.Get("/{id}/proposals", governanceHandler.GetProposalsByProperty)
	})

	r.Route("/investments", func(r chi.Router) {
		r.Post("/", investmentHandler.CreateInvestment)
		r.Post("/batch", investmentHandler.CreateInvestmentBatch)
		r.Get("/{id}", investmentHandler.GetInvestmentByID)
	})

	r.Route("/proposals", func(r chi.Router) {
		r.Post("/", governanceHandler.CreateProposal)
		r.Get("/{id}", governanceHandler.GetProposalByID)
		r.Post("/{id}/votes", governanceHandler.CastVote)
		r.Delete("/{id}/votes/{address}", governanceHandler.RetractVote)
	})

	r.Route("/chain", func(r chi.Router) {
		r.Get("/wallets/{address}/balance", chainHandler.GetWalletBalance)
		r.Get("/accounts/{account}/fractions", chainHandler.GetFractionBalance)
		r.Get("/signatures/{signature}", chainHandler.GetSignatureStatus)
		r.Get("/endpoints", chainHandler.GetEndpointStatus)
	})

	addr := ":" + cfg.Port
	fmt.Printf("Servidor backend rodando na porta %s...\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
