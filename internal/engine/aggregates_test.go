package engine_test

import (
	"context"
	"testing"

	"github.com/defigods/futures-indexer/internal/engine"
	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/event"
	"github.com/defigods/futures-indexer/internal/keys"
	"github.com/defigods/futures-indexer/internal/store"
	"github.com/defigods/futures-indexer/internal/testutil"
)

func loadAggregate(t *testing.T, s store.Store, bucket, period int64, asset string) *entity.FuturesAggregateStat {
	t.Helper()
	ent, ok, err := s.Load(context.Background(), entity.TypeAggregateStat, keys.AggregateStat(bucket, period, asset))
	if err != nil || !ok {
		t.Fatalf("aggregate %d-%d-%q: ok=%v err=%v", bucket, period, asset, ok, err)
	}
	return ent.(*entity.FuturesAggregateStat)
}

// tradeAt applies a 1-lot trade at price 100 with fee 1 at the given
// timestamp.
func tradeAt(t *testing.T, e *engine.Engine, posID, logIdx, ts int64) {
	t.Helper()
	ev := testutil.Modified(testutil.Pos(ts, logIdx, ts), market1, account1, posID)
	ev.Size = testutil.Units(1)
	ev.TradeSize = testutil.Units(1)
	ev.Margin = testutil.Units(100)
	ev.LastPrice = testutil.Units(100)
	ev.Fee = testutil.Units(1)
	apply(t, e, ev)
}

func TestAggregates_BucketPartition(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)

	// Two trades in hour 0, one in hour 1, all on the same day.
	tradeAt(t, e, 1, 1, 100)
	tradeAt(t, e, 2, 2, 200)
	tradeAt(t, e, 3, 3, 3700)

	hour0 := loadAggregate(t, s, 0, 3600, "sETH")
	if hour0.Trades != 2 {
		t.Errorf("hour-0 trades = %d, want 2", hour0.Trades)
	}
	hour1 := loadAggregate(t, s, 3600, 3600, "sETH")
	if hour1.Trades != 1 {
		t.Errorf("hour-1 trades = %d, want 1", hour1.Trades)
	}
	day := loadAggregate(t, s, 0, 86400, "sETH")
	if day.Trades != 3 {
		t.Errorf("day trades = %d, want 3", day.Trades)
	}
	// Each trade contributes once per period: counts partition, never
	// double inside a resolution.
	if hour0.Trades+hour1.Trades != day.Trades {
		t.Errorf("hourly rows (%d+%d) disagree with daily row (%d)",
			hour0.Trades, hour1.Trades, day.Trades)
	}
}

func TestAggregates_AllMarketsRowMirrorsAssetRow(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)

	tradeAt(t, e, 1, 1, 100)

	asset := loadAggregate(t, s, 0, 3600, "sETH")
	all := loadAggregate(t, s, 0, 3600, "")
	if asset.Volume.Cmp(all.Volume) != 0 || asset.Trades != all.Trades {
		t.Errorf("asset row %+v diverges from all-markets row %+v", asset, all)
	}
	if asset.FeesSynthetix.Cmp(testutil.Units(1)) != 0 {
		t.Errorf("protocol fees = %s, want 1e18", asset.FeesSynthetix)
	}
	// |1 * 100| = 100 volume.
	if asset.Volume.Cmp(testutil.Units(100)) != 0 {
		t.Errorf("volume = %s, want 100e18", asset.Volume)
	}
}

func TestAggregates_SmartMarginFeesTracked(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)

	proxy, owner := "0xproxy", "0xowner"
	apply(t, e, &event.SmartMarginAccountCreated{
		ChainPos: testutil.Pos(2, 0, 50),
		Proxy:    proxy,
		Owner:    owner,
	})

	ev := testutil.Modified(testutil.Pos(3, 1, 100), market1, proxy, 1)
	ev.Size = testutil.Units(1)
	ev.TradeSize = testutil.Units(1)
	ev.Margin = testutil.Units(100)
	ev.LastPrice = testutil.Units(100)
	ev.Fee = testutil.Units(1)
	apply(t, e, ev)

	agg := loadAggregate(t, s, 0, 3600, "sETH")
	if agg.FeesCrossMarginAccounts.Cmp(testutil.Units(1)) != 0 {
		t.Errorf("cross margin fees = %s, want 1e18", agg.FeesCrossMarginAccounts)
	}
}
