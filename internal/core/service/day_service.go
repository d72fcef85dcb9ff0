package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

// DayConfig are the acquisition and production knobs for one simulated day.
type DayConfig struct {
	TargetStock     int
	DailyProduction int
	MinMachines     int
	MaterialsItem   string
}

// DayService sequences one simulated day: balance check, stock check,
// acquisition jobs for any deficit, then production. External calls that
// fail degrade into retry jobs instead of aborting the day, and every step
// is idempotent or queue-based so an interrupted day can be re-run.
type DayService struct {
	clock    *Clock
	ledger   *Ledger
	bank     port.BankCapability
	queue    port.JobQueue
	treasury *Treasury
	cfg      DayConfig
	log      *zap.Logger
}

func NewDayService(
	clock *Clock,
	ledger *Ledger,
	bank port.BankCapability,
	queue port.JobQueue,
	treasury *Treasury,
	cfg DayConfig,
	log *zap.Logger,
) *DayService {
	return &DayService{
		clock:    clock,
		ledger:   ledger,
		bank:     bank,
		queue:    queue,
		treasury: treasury,
		cfg:      cfg,
		log:      log,
	}
}

// RunDay executes the day sequence for the clock's current day.
func (s *DayService) RunDay(ctx context.Context) {
	day := s.clock.Day()
	log := s.log.With(zap.Int("day", day))

	balance := s.checkBalance(ctx, log)
	s.coverStockDeficit(ctx, log, balance)
	s.coverMachineDeficit(ctx, log)
	s.produce(ctx, log)
}

// checkBalance asks the bank directly and falls back to the treasury cache,
// queueing a balance fetch so the cache catches up later.
func (s *DayService) checkBalance(ctx context.Context, log *zap.Logger) int64 {
	balance, err := s.bank.Balance(ctx)
	if err == nil {
		s.treasury.SetBalance(balance)
		return balance
	}
	log.Warn("balance check failed, queueing fetch", zap.Error(err))
	s.publish(ctx, log, domain.JobBalanceFetch, domain.BalanceFetchPayload{})

	cached, known := s.treasury.Balance()
	if !known {
		return 0
	}
	return cached
}

func (s *DayService) coverStockDeficit(ctx context.Context, log *zap.Logger, balance int64) {
	available, err := s.ledger.CountAvailable(ctx)
	if err != nil {
		log.Error("stock check failed", zap.Error(err))
		return
	}
	deficit := s.cfg.TargetStock - available
	if deficit <= 0 {
		return
	}

	offer, ok := s.cheapestOffer(s.cfg.MaterialsItem)
	if !ok {
		log.Info("no cached supplier offers, queueing materials fetch",
			zap.Int("deficit", deficit))
		s.publish(ctx, log, domain.JobMaterialsFetch, domain.MaterialsFetchPayload{})
		return
	}

	quantity := deficit
	if offer.Available < quantity {
		quantity = offer.Available
	}
	if quantity <= 0 {
		return
	}

	cost := int64(quantity) * offer.UnitPrice
	if balance < cost {
		s.publish(ctx, log, domain.JobLoanRequest, domain.LoanRequestPayload{Amount: cost - balance})
	}

	// The reference survives retries unchanged so the supplier dedupes.
	job, err := domain.NewRetryJob(domain.JobSupplierOrder, domain.SupplierOrderPayload{
		Supplier:  offer.Supplier,
		Item:      offer.Item,
		Quantity:  quantity,
		Reference: uuid.NewString(),
	})
	if err != nil {
		log.Error("build supplier order job", zap.Error(err))
		return
	}
	if err := s.queue.Publish(ctx, job); err != nil {
		log.Error("queue supplier order", zap.Error(err))
		return
	}
	log.Info("supplier order queued",
		zap.String("item", offer.Item),
		zap.Int("quantity", quantity),
		zap.Int64("cost", cost))
}

func (s *DayService) coverMachineDeficit(ctx context.Context, log *zap.Logger) {
	deficit := s.cfg.MinMachines - s.treasury.Machines()
	if deficit <= 0 {
		return
	}
	job, err := domain.NewRetryJob(domain.JobSupplierOrder, domain.SupplierOrderPayload{
		Item:      "machine",
		Quantity:  deficit,
		Reference: uuid.NewString(),
	})
	if err != nil {
		log.Error("build machine order job", zap.Error(err))
		return
	}
	if err := s.queue.Publish(ctx, job); err != nil {
		log.Error("queue machine order", zap.Error(err))
		return
	}
	log.Info("machine order queued", zap.Int("quantity", deficit))
}

// produce mints the day's output, scaled down while under-equipped.
func (s *DayService) produce(ctx context.Context, log *zap.Logger) {
	quantity := s.cfg.DailyProduction
	if s.cfg.MinMachines > 0 {
		if m := s.treasury.Machines(); m < s.cfg.MinMachines {
			quantity = quantity * m / s.cfg.MinMachines
		}
	}
	if quantity <= 0 {
		log.Info("no production capacity today")
		return
	}
	if err := s.ledger.Produce(ctx, quantity, s.clock.CurrentPreciseTime(3)); err != nil {
		log.Error("production failed", zap.Error(err))
		return
	}
	log.Info("production complete", zap.Int("quantity", quantity))
}

func (s *DayService) cheapestOffer(item string) (domain.SupplierOffer, bool) {
	var best domain.SupplierOffer
	found := false
	for _, o := range s.treasury.Offers() {
		if item != "" && o.Item != item {
			continue
		}
		if o.Available <= 0 {
			continue
		}
		if !found || o.UnitPrice < best.UnitPrice {
			best = o
			found = true
		}
	}
	return best, found
}

func (s *DayService) publish(ctx context.Context, log *zap.Logger, t domain.JobType, payload any) {
	job, err := domain.NewRetryJob(t, payload)
	if err != nil {
		log.Error("build job", zap.String("job_type", string(t)), zap.Error(err))
		return
	}
	if err := s.queue.Publish(ctx, job); err != nil {
		log.Error("queue job", zap.String("job_type", string(t)), zap.Error(err))
	}
}
