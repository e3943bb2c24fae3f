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

const liqTx = "0xliqtx"

// liquidate runs the two-event liquidation sequence against an open
// position: the margin-wiping PositionModified precursor, then the
// PositionLiquidated corrector at the next log index.
func liquidate(t *testing.T, e *engine.Engine, precursorFee, liqFee int64) {
	t.Helper()

	pre := testutil.Modified(testutil.PosTx(liqTx, 5, 9, 2000), market1, account1, 1)
	pre.Size = fpmath.Zero()
	pre.Margin = fpmath.Zero()
	pre.TradeSize = fpmath.Zero()
	pre.LastPrice = testutil.Units(90)
	pre.Fee = testutil.Units(precursorFee)
	if err := e.Process(context.Background(), pre); err != nil {
		t.Fatalf("precursor: %v", err)
	}

	liq := &event.PositionLiquidated{
		ChainPos:   testutil.PosTx(liqTx, 5, 10, 2000),
		Market:     market1,
		Account:    account1,
		PositionID: 1,
		Size:       testutil.Units(10),
		Fee:        testutil.Units(liqFee),
	}
	if err := e.Process(context.Background(), liq); err != nil {
		t.Fatalf("liquidated: %v", err)
	}
}

func TestLiquidation_FullLossIdentity(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)
	openPosition(t, e) // margin 1000, fee 2 -> initial margin 1002
	liquidate(t, e, 3, 5)

	pos := loadPosition(t, s, market1, 1)
	if !pos.IsLiquidated || pos.IsOpen {
		t.Errorf("flags: liquidated=%v open=%v", pos.IsLiquidated, pos.IsOpen)
	}

	// The final loss is exactly everything ever put in:
	// pnlWithFeesPaid == -(initialMargin + netTransfers).
	want := fpmath.Neg(fpmath.Add(pos.InitialMargin, pos.NetTransfers))
	if pos.PnlWithFeesPaid.Cmp(want) != 0 {
		t.Errorf("pnlWithFeesPaid = %s, want %s", pos.PnlWithFeesPaid, want)
	}
	if want.Cmp(testutil.Units(-1002)) != 0 {
		t.Errorf("full loss = %s, want -1002e18", want)
	}
	// All fees: entry 2 + precursor 3 + liquidation 5.
	if pos.FeesPaid.Cmp(testutil.Units(10)) != 0 {
		t.Errorf("feesPaid = %s, want 10e18", pos.FeesPaid)
	}
}

func TestLiquidation_FullLossIdentityWithTransfers(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)
	openPosition(t, e)

	// Deposit 500 more before the liquidation; the loss grows by it.
	tx := "0xtopup"
	apply(t, e, &event.MarginTransferred{
		ChainPos:    testutil.PosTx(tx, 3, 4, 1100),
		Market:      market1,
		Account:     account1,
		MarginDelta: testutil.Units(500),
	})
	ev := testutil.Modified(testutil.PosTx(tx, 3, 5, 1100), market1, account1, 1)
	ev.Size = testutil.Units(10)
	ev.Margin = testutil.Units(1500)
	ev.LastPrice = testutil.Units(100)
	apply(t, e, ev)

	liquidate(t, e, 3, 5)

	pos := loadPosition(t, s, market1, 1)
	if pos.PnlWithFeesPaid.Cmp(testutil.Units(-1502)) != 0 {
		t.Errorf("pnlWithFeesPaid = %s, want -1502e18", pos.PnlWithFeesPaid)
	}
}

func TestLiquidation_EnrichesSyntheticTrade(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)
	openPosition(t, e)
	liquidate(t, e, 3, 5)

	trade := loadTrade(t, s, liqTx, 9)
	if trade.OrderType != entity.OrderTypeLiquidation {
		t.Errorf("order type = %v", trade.OrderType)
	}
	// The corrector backfills the liquidated size, negated.
	if trade.Size.Cmp(testutil.Units(-10)) != 0 {
		t.Errorf("trade size = %s, want -10e18", trade.Size)
	}
	if !fpmath.IsZero(trade.PositionSize) {
		t.Errorf("position size = %s, want 0", trade.PositionSize)
	}
	if !trade.PositionClosed {
		t.Error("synthetic trade should close the position")
	}
	// Precursor fee 3 plus liquidation fee 5.
	if trade.FeesPaid.Cmp(testutil.Units(8)) != 0 {
		t.Errorf("trade fees = %s, want 8e18", trade.FeesPaid)
	}
}

func TestLiquidation_CountersAlwaysIncrement(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)

	// Liquidation for a position the ledger never saw: counters still move.
	apply(t, e, &event.PositionLiquidated{
		ChainPos:   testutil.Pos(5, 10, 2000),
		Market:     market1,
		Account:    account1,
		PositionID: 99,
		Size:       testutil.Units(1),
		Fee:        testutil.Units(1),
	})

	if got := loadCumulative(t, s, entity.CumulativeStatGlobalKey).TotalLiquidations; got != 1 {
		t.Errorf("global liquidations = %d", got)
	}
	if got := loadCumulative(t, s, "sETHPERP").TotalLiquidations; got != 1 {
		t.Errorf("market liquidations = %d", got)
	}
	// No position or trade was fabricated.
	if _, ok, _ := s.Load(context.Background(), entity.TypePosition, keys.Position(market1, 99)); ok {
		t.Error("no position should be created by a liquidation")
	}
}

func TestLiquidation_StatTracksAccount(t *testing.T) {
	e, s := newTestEngine(t)
	setupMarket(t, e)
	openPosition(t, e)
	liquidate(t, e, 3, 5)

	stat := loadStat(t, s, account1)
	if stat.Liquidations != 1 {
		t.Errorf("stat liquidations = %d", stat.Liquidations)
	}
	// The account-level identity mirrors the position-level one here: this
	// position is the account's entire history.
	if stat.PnlWithFeesPaid.Cmp(testutil.Units(-1002)) != 0 {
		t.Errorf("stat pnlWithFeesPaid = %s, want -1002e18", stat.PnlWithFeesPaid)
	}
}
