package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"SalesBudgetSuite/api/budget"
	"SalesBudgetSuite/internal/cache"
	"SalesBudgetSuite/internal/config"
	"SalesBudgetSuite/internal/division"
)

// CronService warms the per-division budget payload cache on a schedule so
// the first dashboard hit of the day does not pay the aggregation cost.
type CronService struct {
	config       map[string]interface{}
	registry     *division.Registry
	payloadCache *cache.Cache
	cron         *cron.Cron
}

func NewCronService(cfg map[string]interface{}, registry *division.Registry, payloadCache *cache.Cache) *CronService {
	return &CronService{config: cfg, registry: registry, payloadCache: payloadCache}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	schedule := config.DefaultWarmSchedule
	if s.config != nil {
		if v, ok := s.config["warm_schedule"].(string); ok && v != "" {
			schedule = v
		}
	}
	loc, err := time.LoadLocation(config.DefaultTimeZone)
	if err != nil {
		loc = time.Local
	}
	s.cron = cron.New(cron.WithLocation(loc))
	if _, err := s.cron.AddFunc(schedule, s.warmAll); err != nil {
		return fmt.Errorf("failed to schedule cache warm job: %v", err)
	}
	s.cron.Start()
	log.Println("Cron service started, cache warm scheduled at", schedule)
	return nil
}

func (s *CronService) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	return nil
}

func (s *CronService) warmAll() {
	actualYear := time.Now().Year() - 1
	budgetYear := actualYear + 1
	for _, code := range s.registry.Codes() {
		ctx, cancel := context.WithTimeout(context.Background(), config.WarmJobTimeout)
		pool, err := s.registry.Pool(code)
		if err != nil {
			log.Println("[ERROR] cache warm: no pool for", code, ":", err)
			cancel()
			continue
		}
		payload, err := budget.GetDivisionalBudgetInfo(ctx, pool, s.registry.Resolve(code), code, actualYear, budgetYear)
		if err != nil {
			log.Println("[ERROR] cache warm failed for", code, ":", err)
			cancel()
			continue
		}
		key := cache.Key(code, "info", fmt.Sprintf("%d-%d", actualYear, budgetYear))
		s.payloadCache.SetJSON(ctx, key, payload)
		cancel()
		log.Printf("[INFO] cache warmed for %s (%d groups)", code, len(payload.TableData))
	}
}
