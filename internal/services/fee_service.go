package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"escrow-service/internal/models"
	"escrow-service/internal/repository"
	"escrow-service/pkg/apperrors"
)

var hundred = decimal.NewFromInt(100)

type FeeBreakdown struct {
	GrossAmount       decimal.Decimal `json:"grossAmount"`
	PlatformFee       decimal.Decimal `json:"platformFee"`
	ProcessingFee     decimal.Decimal `json:"processingFee"`
	FixedFee          decimal.Decimal `json:"fixedFee"`
	TotalEmployerFees decimal.Decimal `json:"totalEmployerFees"`
	TotalEmployerCost decimal.Decimal `json:"totalEmployerCost"`
	WorkerCommission  decimal.Decimal `json:"workerCommission"`
	NetAmountToWorker decimal.Decimal `json:"netAmountToWorker"`
}

// CalculateFeeBreakdown rounds each fee half-up to cents before summing.
func CalculateFeeBreakdown(gross decimal.Decimal, cfg models.FeeConfig) FeeBreakdown {
	platformFee := percentOf(gross, cfg.PlatformFeePercentage)
	processingFee := percentOf(gross, cfg.PaymentProcessingFeePercentage)
	fixedFee := cfg.FixedTransactionFee.Round(2)
	totalFees := platformFee.Add(processingFee).Add(fixedFee)
	commission := percentOf(gross, cfg.WorkerCommissionPercentage)

	return FeeBreakdown{
		GrossAmount:       gross,
		PlatformFee:       platformFee,
		ProcessingFee:     processingFee,
		FixedFee:          fixedFee,
		TotalEmployerFees: totalFees,
		TotalEmployerCost: gross.Add(totalFees),
		WorkerCommission:  commission,
		NetAmountToWorker: gross.Sub(commission),
	}
}

func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(2)
}

// FeeService resolves the active fee configuration. Loads are coalesced and cached briefly.
type FeeService struct {
	Store  *repository.Store
	Logger *zap.Logger
	TTL    time.Duration

	group  singleflight.Group
	mu     sync.RWMutex
	cached *feeConfigEntry
	now    func() time.Time
}

type feeConfigEntry struct {
	config    models.FeeConfig
	isDefault bool
	loadedAt  time.Time
}

func NewFeeService(store *repository.Store, logger *zap.Logger) *FeeService {
	return &FeeService{Store: store, Logger: logger, TTL: time.Minute, now: time.Now}
}

// ActiveConfig never fails. Without an active row (or on a read error) the
// default configuration is returned and isDefault is true.
func (s *FeeService) ActiveConfig(ctx context.Context) (models.FeeConfig, bool) {
	s.mu.RLock()
	entry := s.cached
	s.mu.RUnlock()
	if entry != nil && s.now().Sub(entry.loadedAt) < s.TTL {
		return entry.config, entry.isDefault
	}

	v, _, _ := s.group.Do("active", func() (interface{}, error) {
		loaded := s.load(ctx)
		s.mu.Lock()
		s.cached = loaded
		s.mu.Unlock()
		return loaded, nil
	})
	loaded := v.(*feeConfigEntry)
	return loaded.config, loaded.isDefault
}

// Invalidate drops the cached configuration.
func (s *FeeService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *FeeService) load(ctx context.Context) *feeConfigEntry {
	cfg, err := s.Store.ActiveFeeConfig(ctx)
	if err != nil {
		s.Logger.Warn("failed to read fee configuration, using defaults", zap.Error(err))
		return &feeConfigEntry{config: models.DefaultFeeConfig(), isDefault: true, loadedAt: s.now()}
	}
	if cfg == nil {
		s.Logger.Warn("no active fee configuration found, using defaults")
		return &feeConfigEntry{config: models.DefaultFeeConfig(), isDefault: true, loadedAt: s.now()}
	}
	return &feeConfigEntry{config: *cfg, loadedAt: s.now()}
}

type FeeQuote struct {
	FeeBreakdown
	UsingDefaultConfig bool `json:"usingDefaultConfig"`
}

// Quote prices a gig amount for display.
func (s *FeeService) Quote(ctx context.Context, gross decimal.Decimal) (FeeQuote, error) {
	if !gross.IsPositive() {
		return FeeQuote{}, apperrors.Validation("Amount must be greater than zero")
	}
	cfg, isDefault := s.ActiveConfig(ctx)
	return FeeQuote{FeeBreakdown: CalculateFeeBreakdown(gross.Round(2), cfg), UsingDefaultConfig: isDefault}, nil
}
