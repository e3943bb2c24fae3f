package engine

import (
	"context"

	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/event"
	"github.com/defigods/futures-indexer/internal/fpmath"
	"github.com/defigods/futures-indexer/internal/keys"
)

// handlePositionLiquidated post-processes the trade/position pair the
// preceding PositionModified event recorded at logIndex-1. The full loss
// was already realized there; the liquidation fee is paid out of that loss,
// so it is added to feesPaid and added back into pnl on every touched
// entity. Liquidation counters are incremented even when no position was
// found: counts must never be lost.
func (e *Engine) handlePositionLiquidated(ctx context.Context, ev *event.PositionLiquidated) error {
	account, _, err := e.resolveAccount(ctx, ev.Account)
	if err != nil {
		return err
	}

	posKey := keys.Position(ev.Market, ev.PositionID)
	if ent, ok, err := e.load(ctx, entity.TypePosition, posKey); err != nil {
		return err
	} else if ok {
		pos := ent.(*entity.Position)
		pos.IsLiquidated = true
		pos.IsOpen = false
		pos.FeesPaid = fpmath.Add(pos.FeesPaid, ev.Fee)
		pos.Pnl = fpmath.Add(pos.Pnl, ev.Fee)
		pos.PnlWithFeesPaid = fpmath.Add(fpmath.Sub(pos.Pnl, pos.FeesPaid), pos.NetFunding)
		pos.Timestamp = ev.Timestamp
		e.save(pos)
	}

	if ent, ok, err := e.load(ctx, entity.TypeFuturesStat, account); err != nil {
		return err
	} else if ok {
		stat := ent.(*entity.FuturesStat)
		stat.Liquidations++
		stat.FeesPaid = fpmath.Add(stat.FeesPaid, ev.Fee)
		stat.Pnl = fpmath.Add(stat.Pnl, ev.Fee)
		stat.PnlWithFeesPaid = fpmath.Sub(stat.Pnl, stat.FeesPaid)
		e.save(stat)
	}

	// The synthetic liquidation trade from the adjacent PositionModified.
	if ent, ok, err := e.load(ctx, entity.TypeTrade, keys.Trade(ev.TxHash, ev.LogIndex-1)); err != nil {
		return err
	} else if ok {
		trade := ent.(*entity.Trade)
		trade.Size = fpmath.Neg(ev.Size)
		trade.PositionSize = fpmath.Zero()
		trade.FeesPaid = fpmath.Add(trade.FeesPaid, ev.Fee)
		trade.Pnl = fpmath.Add(trade.Pnl, ev.Fee)
		e.save(trade)
	}

	cum, err := e.getOrCreateCumulativeStat(ctx, entity.CumulativeStatGlobalKey)
	if err != nil {
		return err
	}
	cum.TotalLiquidations++
	e.save(cum)

	if mkt, ok, err := e.loadMarket(ctx, ev.Market); err != nil {
		return err
	} else if ok {
		marketCum, err := e.getOrCreateCumulativeStat(ctx, mkt.MarketKey)
		if err != nil {
			return err
		}
		marketCum.TotalLiquidations++
		e.save(marketCum)
	}

	if e.metrics != nil {
		e.metrics.Liquidations.Inc()
	}
	return nil
}
