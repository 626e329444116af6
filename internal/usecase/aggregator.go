package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"exchange-agent/internal/domain"
	"exchange-agent/pkg/metrics"
)

const defaultAnnounceDelay = 3 * time.Second

// ReferenceSource returns the official reference rate.
type ReferenceSource interface {
	FetchReference(ctx context.Context) (float64, error)
}

// CommercialSource returns the best buy and sell offers for a city code.
type CommercialSource interface {
	FetchBestRates(ctx context.Context, cityCode string) (buy, sell domain.Offer, err error)
}

// MarketSource returns the last exchange quote, or nil when the market has
// no last price.
type MarketSource interface {
	FetchMarketQuote(ctx context.Context) (*float64, error)
}

// BranchDirectory lists and enriches bank branches for a region.
type BranchDirectory interface {
	FindBranches(ctx context.Context, regionID, bankID string) ([]domain.Branch, error)
	Enrich(ctx context.Context, ids []string) ([]domain.Branch, error)
}

// BranchSink receives branch announcement messages in delivery order.
type BranchSink interface {
	BranchSummary(ctx context.Context, b domain.Branch) error
	BranchLocation(ctx context.Context, b domain.Branch) error
}

// Aggregator consolidates the three rate sources into one bundle and drives
// the throttled branch announcement sequence.
type Aggregator struct {
	reference  ReferenceSource
	commercial CommercialSource
	market     MarketSource
	branches   BranchDirectory

	announceDelay time.Duration
	logger        *slog.Logger
}

func NewAggregator(ref ReferenceSource, com CommercialSource, mkt MarketSource, dir BranchDirectory, announceDelay time.Duration, logger *slog.Logger) (*Aggregator, error) {
	if ref == nil {
		return nil, errors.New("usecase: reference source must not be nil")
	}
	if com == nil {
		return nil, errors.New("usecase: commercial source must not be nil")
	}
	if mkt == nil {
		return nil, errors.New("usecase: market source must not be nil")
	}
	if dir == nil {
		return nil, errors.New("usecase: branch directory must not be nil")
	}
	if announceDelay < 0 {
		announceDelay = defaultAnnounceDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		reference:     ref,
		commercial:    com,
		market:        mkt,
		branches:      dir,
		announceDelay: announceDelay,
		logger:        logger,
	}, nil
}

// GetRates fetches all three sources concurrently and fails the whole bundle
// if any one of them fails. No field of the returned bundle is populated on
// error.
func (a *Aggregator) GetRates(ctx context.Context, cityCode string) (domain.RateBundle, error) {
	if cityCode == "" {
		return domain.RateBundle{}, newError(ErrorInvalidInput, "empty_city_code", nil)
	}

	var bundle domain.RateBundle
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := a.timedFetchReference(gctx)
		if err != nil {
			return newError(ErrorSource, "reference_rate_error", err)
		}
		bundle.Reference = v
		return nil
	})
	g.Go(func() error {
		buy, sell, err := a.timedFetchBestRates(gctx, cityCode)
		if err != nil {
			return newError(ErrorSource, "best_rates_error", err)
		}
		bundle.BestBuy = buy
		bundle.BestSell = sell
		return nil
	})
	g.Go(func() error {
		q, err := a.timedFetchMarketQuote(gctx)
		if err != nil {
			return newError(ErrorSource, "market_quote_error", err)
		}
		bundle.MarketQuote = q
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.RateBundle{}, err
	}
	return bundle, nil
}

func (a *Aggregator) timedFetchReference(ctx context.Context) (float64, error) {
	start := time.Now()
	v, err := a.reference.FetchReference(ctx)
	metrics.RateFetchDuration.WithLabelValues("reference").Observe(time.Since(start).Seconds())
	return v, err
}

func (a *Aggregator) timedFetchBestRates(ctx context.Context, cityCode string) (domain.Offer, domain.Offer, error) {
	start := time.Now()
	buy, sell, err := a.commercial.FetchBestRates(ctx, cityCode)
	metrics.RateFetchDuration.WithLabelValues("commercial").Observe(time.Since(start).Seconds())
	return buy, sell, err
}

func (a *Aggregator) timedFetchMarketQuote(ctx context.Context) (*float64, error) {
	start := time.Now()
	q, err := a.market.FetchMarketQuote(ctx)
	metrics.RateFetchDuration.WithLabelValues("market").Observe(time.Since(start).Seconds())
	return q, err
}

// AnnounceBranches delivers each branch of (regionID, bankID) as a summary
// message followed by a location, serially and in directory order. The whole
// sequence is deferred by the configured delay so the transport is not hit
// with a burst right after the rate reply. A failed delivery is logged and
// the remaining branches are still sent.
func (a *Aggregator) AnnounceBranches(ctx context.Context, regionID, bankID string, sink BranchSink) error {
	if sink == nil {
		return newError(ErrorInvalidInput, "nil_branch_sink", nil)
	}

	select {
	case <-time.After(a.announceDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	branches, err := a.branches.FindBranches(ctx, regionID, bankID)
	if err != nil {
		return newError(ErrorSource, "branch_list_error", err)
	}
	if len(branches) == 0 {
		return nil
	}

	ids := make([]string, 0, len(branches))
	for _, b := range branches {
		ids = append(ids, b.ID)
	}
	enriched, err := a.branches.Enrich(ctx, ids)
	if err != nil {
		return newError(ErrorSource, "branch_enrich_error", err)
	}
	if len(enriched) > 0 {
		branches = enriched
	}

	for _, b := range branches {
		if err := sink.BranchSummary(ctx, b); err != nil {
			a.logger.Error("branch summary send failed", "branch", b.ID, "err", err)
			metrics.SendFailures.Inc()
			continue
		}
		if err := sink.BranchLocation(ctx, b); err != nil {
			a.logger.Error("branch location send failed", "branch", b.ID, "err", err)
			metrics.SendFailures.Inc()
		}
		metrics.BranchesAnnounced.Inc()
	}
	return nil
}
