package budget

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"SalesBudgetSuite/internal/cache"
	"SalesBudgetSuite/internal/division"
	"SalesBudgetSuite/internal/serviceiface"
)

type BudgetService struct {
	config       map[string]interface{}
	registry     *division.Registry
	payloadCache *cache.Cache
	server       *http.Server
}

func NewBudgetService(cfg map[string]interface{}, registry *division.Registry, payloadCache *cache.Cache) serviceiface.Service {
	return &BudgetService{config: cfg, registry: registry, payloadCache: payloadCache}
}

func (s *BudgetService) Name() string {
	return "budget"
}

func (s *BudgetService) Start() error {
	addr := ":5143"
	if s.config != nil {
		if v, ok := s.config["listen"].(string); ok && v != "" {
			addr = v
		}
	}
	s.server = &http.Server{Addr: addr, Handler: NewRouter(s.registry, s.payloadCache)}
	go func() {
		log.Println("Budget Service started on", addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Budget Service failed: %v", err)
		}
	}()
	return nil
}

func (s *BudgetService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// NewRouter wires the budget and pricing endpoints.
func NewRouter(registry *division.Registry, payloadCache *cache.Cache) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/budget/hello", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Hello from Budget Service"))
	})

	router.Handle("/budget/divisional/info", GetDivisionalBudgetInfoHandler(registry, payloadCache)).Methods("POST")
	router.Handle("/budget/divisional/export", ExportBudgetHandler()).Methods("POST")
	router.Handle("/budget/divisional/export-excel", ExportBudgetExcelHandler()).Methods("POST")
	router.Handle("/budget/divisional/import", ImportBudgetHandler(registry, payloadCache)).Methods("POST")
	router.Handle("/budget/divisional/save", SaveDivisionalBudgetHandler(registry, payloadCache)).Methods("POST")
	router.Handle("/budget/divisional/{division}/{budgetYear}", DeleteDivisionalBudgetHandler(registry, payloadCache)).Methods("DELETE")

	router.Handle("/budget/pricing-rounding/get", GetRoundedPricesHandler(registry)).Methods("POST")
	router.Handle("/budget/pricing-rounding/save", SaveRoundedPricesHandler(registry, payloadCache)).Methods("POST")

	return router
}
