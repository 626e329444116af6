package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"exchange-agent/internal/domain"
)

type fakeReference struct {
	rate float64
	err  error
}

func (f *fakeReference) FetchReference(_ context.Context) (float64, error) {
	return f.rate, f.err
}

type fakeCommercial struct {
	buy, sell domain.Offer
	err       error
	cityCode  string
}

func (f *fakeCommercial) FetchBestRates(_ context.Context, cityCode string) (domain.Offer, domain.Offer, error) {
	f.cityCode = cityCode
	return f.buy, f.sell, f.err
}

type fakeMarket struct {
	quote *float64
	err   error
}

func (f *fakeMarket) FetchMarketQuote(_ context.Context) (*float64, error) {
	return f.quote, f.err
}

type fakeDirectory struct {
	branches  []domain.Branch
	findErr   error
	enriched  []domain.Branch
	enrichErr error
	enrichIDs []string
}

func (f *fakeDirectory) FindBranches(_ context.Context, _, _ string) ([]domain.Branch, error) {
	return f.branches, f.findErr
}

func (f *fakeDirectory) Enrich(_ context.Context, ids []string) ([]domain.Branch, error) {
	f.enrichIDs = ids
	return f.enriched, f.enrichErr
}

// recordingSink captures the delivery sequence, optionally failing chosen sends.
type recordingSink struct {
	delivered   []string
	failSummary map[string]bool
}

func (s *recordingSink) BranchSummary(_ context.Context, b domain.Branch) error {
	if s.failSummary[b.ID] {
		return errors.New("send failed")
	}
	s.delivered = append(s.delivered, "text:"+b.ID)
	return nil
}

func (s *recordingSink) BranchLocation(_ context.Context, b domain.Branch) error {
	s.delivered = append(s.delivered, "location:"+b.ID)
	return nil
}

func newTestAggregator(t *testing.T, ref ReferenceSource, com CommercialSource, mkt MarketSource, dir BranchDirectory) *Aggregator {
	t.Helper()
	a, err := NewAggregator(ref, com, mkt, dir, time.Millisecond, nil)
	require.NoError(t, err)
	return a
}

func defaultSources() (*fakeReference, *fakeCommercial, *fakeMarket, *fakeDirectory) {
	quote := 79.5
	return &fakeReference{rate: 79.83},
		&fakeCommercial{
			buy:  domain.Offer{Rate: 78.5, Description: "Alpha", BankID: "alpha"},
			sell: domain.Offer{Rate: 80.1, Description: "Beta", BankID: "beta"},
		},
		&fakeMarket{quote: &quote},
		&fakeDirectory{}
}

func TestGetRates_ConsolidatesAllSources(t *testing.T) {
	ref, com, mkt, dir := defaultSources()
	a := newTestAggregator(t, ref, com, mkt, dir)

	bundle, err := a.GetRates(context.Background(), "4")
	require.NoError(t, err)
	require.Equal(t, "4", com.cityCode)
	require.Equal(t, 79.83, bundle.Reference)
	require.Equal(t, "alpha", bundle.BestBuy.BankID)
	require.Equal(t, "beta", bundle.BestSell.BankID)
	require.NotNil(t, bundle.MarketQuote)
	require.Equal(t, 79.5, *bundle.MarketQuote)
}

func TestGetRates_AllOrNothing(t *testing.T) {
	cases := []struct {
		name   string
		induce func(*fakeReference, *fakeCommercial, *fakeMarket)
	}{
		{"reference fails", func(r *fakeReference, _ *fakeCommercial, _ *fakeMarket) { r.err = errors.New("boom") }},
		{"commercial fails", func(_ *fakeReference, c *fakeCommercial, _ *fakeMarket) { c.err = errors.New("boom") }},
		{"market fails", func(_ *fakeReference, _ *fakeCommercial, m *fakeMarket) { m.err = errors.New("boom") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ref, com, mkt, dir := defaultSources()
			tc.induce(ref, com, mkt)
			a := newTestAggregator(t, ref, com, mkt, dir)

			bundle, err := a.GetRates(context.Background(), "4")
			require.Error(t, err)

			var ucErr *Error
			require.ErrorAs(t, err, &ucErr)
			require.Equal(t, ErrorSource, ucErr.Code)
			// No partial bundle is observable on error.
			require.Equal(t, domain.RateBundle{}, bundle)
		})
	}
}

func TestGetRates_MissingMarketQuoteIsNotAnError(t *testing.T) {
	ref, com, mkt, dir := defaultSources()
	mkt.quote = nil
	a := newTestAggregator(t, ref, com, mkt, dir)

	bundle, err := a.GetRates(context.Background(), "4")
	require.NoError(t, err)
	require.Nil(t, bundle.MarketQuote)
}

func TestGetRates_EmptyCityCode(t *testing.T) {
	ref, com, mkt, dir := defaultSources()
	a := newTestAggregator(t, ref, com, mkt, dir)

	_, err := a.GetRates(context.Background(), "")
	require.Error(t, err)
}

func TestAnnounceBranches_PreservesDirectoryOrder(t *testing.T) {
	ref, com, mkt, dir := defaultSources()
	dir.branches = []domain.Branch{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	dir.enriched = []domain.Branch{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	a := newTestAggregator(t, ref, com, mkt, dir)

	sink := &recordingSink{}
	require.NoError(t, a.AnnounceBranches(context.Background(), "4", "alpha", sink))
	require.Equal(t, []string{
		"text:1", "location:1",
		"text:2", "location:2",
		"text:3", "location:3",
	}, sink.delivered)
	require.Equal(t, []string{"1", "2", "3"}, dir.enrichIDs)
}

func TestAnnounceBranches_SendFailureSkipsToNextBranch(t *testing.T) {
	ref, com, mkt, dir := defaultSources()
	dir.branches = []domain.Branch{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	dir.enriched = dir.branches
	a := newTestAggregator(t, ref, com, mkt, dir)

	sink := &recordingSink{failSummary: map[string]bool{"2": true}}
	require.NoError(t, a.AnnounceBranches(context.Background(), "4", "alpha", sink))
	require.Equal(t, []string{
		"text:1", "location:1",
		"text:3", "location:3",
	}, sink.delivered)
}

func TestAnnounceBranches_ListFailure(t *testing.T) {
	ref, com, mkt, dir := defaultSources()
	dir.findErr = errors.New("portal down")
	a := newTestAggregator(t, ref, com, mkt, dir)

	err := a.AnnounceBranches(context.Background(), "4", "alpha", &recordingSink{})
	require.Error(t, err)

	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorSource, ucErr.Code)
}

func TestAnnounceBranches_NoBranchesIsANoOp(t *testing.T) {
	ref, com, mkt, dir := defaultSources()
	a := newTestAggregator(t, ref, com, mkt, dir)

	sink := &recordingSink{}
	require.NoError(t, a.AnnounceBranches(context.Background(), "4", "alpha", sink))
	require.Empty(t, sink.delivered)
	require.Nil(t, dir.enrichIDs)
}

func TestAnnounceBranches_EmptyEnrichmentFallsBackToList(t *testing.T) {
	ref, com, mkt, dir := defaultSources()
	dir.branches = []domain.Branch{{ID: "9", Name: "Head office"}}
	a := newTestAggregator(t, ref, com, mkt, dir)

	sink := &recordingSink{}
	require.NoError(t, a.AnnounceBranches(context.Background(), "4", "alpha", sink))
	require.Equal(t, []string{"text:9", "location:9"}, sink.delivered)
}

func TestAnnounceBranches_CanceledContext(t *testing.T) {
	ref, com, mkt, dir := defaultSources()
	a, err := NewAggregator(ref, com, mkt, dir, time.Hour, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = a.AnnounceBranches(ctx, "4", "alpha", &recordingSink{})
	require.ErrorIs(t, err, context.Canceled)
}
