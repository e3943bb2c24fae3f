package engine_test

import (
	"context"
	"testing"

	"github.com/defigods/futures-indexer/internal/engine"
	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/event"
	"github.com/defigods/futures-indexer/internal/fpmath"
	"github.com/defigods/futures-indexer/internal/keys"
	"github.com/defigods/futures-indexer/internal/testutil"
)

func recompute(t *testing.T, e *engine.Engine, index, ts int64, funding, rate int64) {
	t.Helper()
	apply(t, e, &event.FundingRecomputed{
		ChainPos:    testutil.Pos(index+10, 0, ts),
		Market:      market1,
		Index:       index,
		Funding:     testutil.Units(funding),
		FundingRate: testutil.Units(rate),
	})
}

func TestFundingRecomputed_AppendsCheckpoint(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)
	recompute(t, e, 0, 1000, 2, 1)

	ent, ok, _ := s.Load(context.Background(), entity.TypeFundingRateUpdate, keys.FundingRateUpdate(market1, 0))
	if !ok {
		t.Fatal("checkpoint not stored")
	}
	fru := ent.(*entity.FundingRateUpdate)
	if fru.Asset != "sETH" || fru.Funding.Cmp(testutil.Units(2)) != 0 {
		t.Errorf("checkpoint = %+v", fru)
	}
}

func TestFundingRecomputed_NegativeIndexRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	setupMarket(t, e)

	err := e.Process(context.Background(), &event.FundingRecomputed{
		ChainPos:    testutil.Pos(10, 0, 1000),
		Market:      market1,
		Index:       -1,
		Funding:     fpmath.Zero(),
		FundingRate: fpmath.Zero(),
	})
	if err == nil {
		t.Error("expected error for negative funding index")
	}
}

func TestFundingRatePeriod_LatestRateWinsWithinBucket(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)

	// Two recomputes inside the same hour: the later rate replaces the
	// earlier one in every period row.
	recompute(t, e, 0, 100, 2, 1)
	recompute(t, e, 1, 200, 3, 7)

	for _, period := range []entity.PeriodType{entity.PeriodHourly, entity.PeriodDaily, entity.PeriodWeekly} {
		key := keys.FundingRatePeriod("sETH", period.String(), 0)
		ent, ok, _ := s.Load(context.Background(), entity.TypeFundingRatePeriod, key)
		if !ok {
			t.Fatalf("period row %s missing", key)
		}
		frp := ent.(*entity.FundingRatePeriod)
		if frp.FundingRate.Cmp(testutil.Units(7)) != 0 {
			t.Errorf("%s rate = %s, want 7e18", period, frp.FundingRate)
		}
	}
}

func TestFundingRatePeriod_NewBucketNewRow(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)

	recompute(t, e, 0, 100, 2, 1)
	recompute(t, e, 1, 3700, 3, 7) // next hour

	hour0, ok, _ := s.Load(context.Background(), entity.TypeFundingRatePeriod,
		keys.FundingRatePeriod("sETH", entity.PeriodHourly.String(), 0))
	if !ok {
		t.Fatal("hour-0 row missing")
	}
	hour1, ok, _ := s.Load(context.Background(), entity.TypeFundingRatePeriod,
		keys.FundingRatePeriod("sETH", entity.PeriodHourly.String(), 3600))
	if !ok {
		t.Fatal("hour-1 row missing")
	}
	if hour0.(*entity.FundingRatePeriod).FundingRate.Cmp(testutil.Units(1)) != 0 {
		t.Error("hour-0 row should keep its own rate")
	}
	if hour1.(*entity.FundingRatePeriod).FundingRate.Cmp(testutil.Units(7)) != 0 {
		t.Error("hour-1 row should carry the new rate")
	}
}

func TestFundingRecomputed_UnknownMarketSkipsPeriods(t *testing.T) {
	e, s := newTestEngine(t)

	apply(t, e, &event.FundingRecomputed{
		ChainPos:    testutil.Pos(10, 0, 1000),
		Market:      market2,
		Index:       0,
		Funding:     testutil.Units(1),
		FundingRate: testutil.Units(1),
	})

	// The checkpoint is still appended; period rows need an asset.
	if s.Len(entity.TypeFundingRateUpdate) != 1 {
		t.Error("checkpoint should be stored even for an unknown market")
	}
	if s.Len(entity.TypeFundingRatePeriod) != 0 {
		t.Error("no period rows without an asset")
	}
}

// ============================================================================
// Funding accrual on position events
// ============================================================================

func TestAccrueFunding_SettlesBetweenCheckpoints(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)

	recompute(t, e, 0, 900, 2, 1)
	openPosition(t, e) // size 10, funding index 0
	recompute(t, e, 1, 1100, 5, 1)

	// Funding-only touch at the new checkpoint.
	tx := "0xfunding"
	ev := testutil.Modified(testutil.PosTx(tx, 6, 3, 1200), market1, account1, 1)
	ev.Size = testutil.Units(10)
	ev.Margin = testutil.Units(1000)
	ev.LastPrice = testutil.Units(100)
	ev.FundingIndex = 1
	apply(t, e, ev)

	pos := loadPosition(t, s, market1, 1)
	// (5 - 2) * 10 = 30 accrued to the long.
	if pos.NetFunding.Cmp(testutil.Units(30)) != 0 {
		t.Errorf("net funding = %s, want 30e18", pos.NetFunding)
	}
	if pos.FundingIndex != 1 {
		t.Errorf("funding index = %d, want 1", pos.FundingIndex)
	}

	ent, ok, _ := s.Load(context.Background(), entity.TypeFundingPayment, keys.FundingPayment(tx, 3, account1))
	if !ok {
		t.Fatal("funding payment not recorded")
	}
	fp := ent.(*entity.FundingPayment)
	if fp.Amount.Cmp(testutil.Units(30)) != 0 {
		t.Errorf("payment amount = %s, want 30e18", fp.Amount)
	}

	// Funding received offsets fees paid at the account level.
	stat := loadStat(t, s, account1)
	if stat.FeesPaid.Cmp(testutil.Units(2-30)) != 0 {
		t.Errorf("stat fees = %s, want -28e18", stat.FeesPaid)
	}
}

func TestAccrueFunding_MissingCheckpointKeepsIndex(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)
	openPosition(t, e) // funding index 0, no checkpoints stored

	ev := testutil.Modified(testutil.Pos(6, 3, 1200), market1, account1, 1)
	ev.Size = testutil.Units(10)
	ev.Margin = testutil.Units(1000)
	ev.LastPrice = testutil.Units(100)
	ev.FundingIndex = 4
	apply(t, e, ev)

	pos := loadPosition(t, s, market1, 1)
	if !fpmath.IsZero(pos.NetFunding) {
		t.Errorf("net funding = %s, want 0", pos.NetFunding)
	}
	// Without both checkpoints the stored index does not advance.
	if pos.FundingIndex != 0 {
		t.Errorf("funding index = %d, want 0", pos.FundingIndex)
	}
	if s.Len(entity.TypeFundingPayment) != 0 {
		t.Error("no payment without checkpoints")
	}
}

func TestAccrueFunding_ShortPaysWhenFundingRises(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)

	recompute(t, e, 0, 900, 2, 1)

	ev := testutil.Modified(testutil.Pos(5, 1, 1000), market1, account1, 1)
	ev.Size = testutil.Units(-10)
	ev.TradeSize = testutil.Units(-10)
	ev.Margin = testutil.Units(1000)
	ev.LastPrice = testutil.Units(100)
	apply(t, e, ev)

	recompute(t, e, 1, 1100, 5, 1)

	touch := testutil.Modified(testutil.Pos(7, 3, 1200), market1, account1, 1)
	touch.Size = testutil.Units(-10)
	touch.Margin = testutil.Units(1000)
	touch.LastPrice = testutil.Units(100)
	touch.FundingIndex = 1
	apply(t, e, touch)

	pos := loadPosition(t, s, market1, 1)
	if pos.NetFunding.Cmp(testutil.Units(-30)) != 0 {
		t.Errorf("net funding = %s, want -30e18", pos.NetFunding)
	}
}
