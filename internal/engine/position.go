package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/event"
	"github.com/defigods/futures-indexer/internal/fpmath"
	"github.com/defigods/futures-indexer/internal/keys"
)

// handlePositionModified is the central handler: per market interaction it
// creates/updates the Position, Trade, and Stat entities, accrues funding,
// maintains the weighted average entry price, computes PnL, and pushes the
// volume/fee contribution into the cumulative and aggregate rollups.
func (e *Engine) handlePositionModified(ctx context.Context, ev *event.PositionModified) error {
	if ev.FundingIndex < 0 {
		return fmt.Errorf("funding index %d cannot exist", ev.FundingIndex)
	}

	account, accountType, err := e.resolveAccount(ctx, ev.Account)
	if err != nil {
		return err
	}

	stat, statCreated, err := e.getOrCreateStat(ctx, account)
	if err != nil {
		return err
	}
	if statCreated {
		cum, err := e.getOrCreateCumulativeStat(ctx, entity.CumulativeStatGlobalKey)
		if err != nil {
			return err
		}
		cum.TotalTraders++
		e.save(cum)
	}

	pos, err := e.getOrCreatePosition(ctx, ev, account, accountType)
	if err != nil {
		return err
	}

	accrued, err := e.accrueFunding(ctx, ev, pos, stat)
	if err != nil {
		return err
	}

	if fpmath.IsZero(ev.TradeSize) {
		if err := e.applyMarginChange(ctx, ev, pos, stat, accrued); err != nil {
			return err
		}
	} else {
		if err := e.applyTrade(ctx, ev, pos, stat, accountType, accrued); err != nil {
			return err
		}
	}

	// Trailing updates apply regardless of branch.
	stat.FeesPaid = fpmath.Add(stat.FeesPaid, ev.Fee)
	stat.PnlWithFeesPaid = fpmath.Sub(stat.Pnl, stat.FeesPaid)

	pos.Size = ev.Size
	pos.Margin = ev.Margin
	pos.LastPrice = ev.LastPrice
	pos.FeesPaid = fpmath.Add(pos.FeesPaid, ev.Fee)
	pos.PnlWithFeesPaid = fpmath.Add(fpmath.Sub(pos.Pnl, pos.FeesPaid), pos.NetFunding)
	pos.LastTxHash = ev.TxHash
	pos.Timestamp = ev.Timestamp

	if ent, ok, err := e.load(ctx, entity.TypeMarginAccount, keys.MarginAccount(account, ev.Market)); err != nil {
		return err
	} else if ok {
		ma := ent.(*entity.MarginAccount)
		ma.Margin = ev.Margin
		ma.Timestamp = ev.Timestamp
		e.save(ma)
	}

	e.save(pos)
	e.save(stat)
	return nil
}

func (e *Engine) getOrCreatePosition(ctx context.Context, ev *event.PositionModified, account string, accountType entity.AccountType) (*entity.Position, error) {
	key := keys.Position(ev.Market, ev.PositionID)
	ent, ok, err := e.load(ctx, entity.TypePosition, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return ent.(*entity.Position), nil
	}

	pos := &entity.Position{
		ID:              key,
		Market:          ev.Market,
		Account:         account,
		AbstractAccount: ev.Account,
		AccountType:     accountType,
		IsOpen:          true,
		Size:            fpmath.Zero(),
		AvgEntryPrice:   new(big.Int).Set(ev.LastPrice),
		EntryPrice:      new(big.Int).Set(ev.LastPrice),
		LastPrice:       new(big.Int).Set(ev.LastPrice),
		ExitPrice:       fpmath.Zero(),
		Margin:          fpmath.Zero(),
		InitialMargin:   fpmath.Add(ev.Margin, ev.Fee),
		NetTransfers:    fpmath.Zero(),
		TotalDeposits:   fpmath.Zero(),
		NetFunding:      fpmath.Zero(),
		FeesPaid:        fpmath.Zero(),
		Pnl:             fpmath.Zero(),
		PnlWithFeesPaid: fpmath.Zero(),
		TotalVolume:     fpmath.Zero(),
		FundingIndex:    ev.FundingIndex,
		OpenTimestamp:   ev.Timestamp,
		Timestamp:       ev.Timestamp,
	}
	if mkt, ok, err := e.loadMarket(ctx, ev.Market); err != nil {
		return nil, err
	} else if ok {
		pos.Asset = mkt.Asset
		pos.MarketKey = mkt.MarketKey
	}
	return pos, nil
}

// accrueFunding settles funding owed since the position's last recorded
// checkpoint. The stored index advances whenever both checkpoints are
// found, even if the accrued amount is zero.
func (e *Engine) accrueFunding(ctx context.Context, ev *event.PositionModified, pos *entity.Position, stat *entity.FuturesStat) (*big.Int, error) {
	accrued := fpmath.Zero()
	if pos.FundingIndex == ev.FundingIndex {
		return accrued, nil
	}

	cur, okCur, err := e.loadFundingRateUpdate(ctx, ev.Market, ev.FundingIndex)
	if err != nil {
		return nil, err
	}
	past, okPast, err := e.loadFundingRateUpdate(ctx, ev.Market, pos.FundingIndex)
	if err != nil {
		return nil, err
	}
	if !okCur || !okPast {
		// No matching checkpoint: skip accrual, keep the stored index.
		return accrued, nil
	}

	accrued = fpmath.Mul(fpmath.Sub(cur.Funding, past.Funding), pos.Size)
	if !fpmath.IsZero(accrued) {
		e.save(&entity.FundingPayment{
			ID:         keys.FundingPayment(ev.TxHash, ev.LogIndex, pos.Account),
			Market:     ev.Market,
			Asset:      pos.Asset,
			Account:    pos.Account,
			PositionID: pos.ID,
			Amount:     accrued,
			Timestamp:  ev.Timestamp,
		})
		pos.NetFunding = fpmath.Add(pos.NetFunding, accrued)
		// Funding received reduces effective fees paid; funding paid adds
		// to them.
		stat.FeesPaid = fpmath.Sub(stat.FeesPaid, accrued)
	}
	pos.FundingIndex = ev.FundingIndex
	return accrued, nil
}

// applyMarginChange handles a zero-trade-size event: either a margin
// deposit/withdrawal correlated through the MarginTransfer recorded at
// logIndex-1, or, when size and margin both collapse to zero with no
// transfer in sight, the precursor of a liquidation. The synthetic
// Liquidation trade it records is the hook the PositionLiquidated handler
// enriches next.
func (e *Engine) applyMarginChange(ctx context.Context, ev *event.PositionModified, pos *entity.Position, stat *entity.FuturesStat, accrued *big.Int) error {
	mtKey := keys.MarginTransfer(ev.Market, ev.TxHash, ev.LogIndex-1)
	ent, ok, err := e.load(ctx, entity.TypeMarginTransfer, mtKey)
	if err != nil {
		return err
	}
	if ok {
		mt := ent.(*entity.MarginTransfer)
		pos.NetTransfers = fpmath.Add(pos.NetTransfers, mt.Size)
		if mt.Size.Sign() > 0 {
			pos.TotalDeposits = fpmath.Add(pos.TotalDeposits, mt.Size)
		}
		return nil
	}

	if !fpmath.IsZero(ev.Size) || !fpmath.IsZero(ev.Margin) {
		// Funding-only modification; nothing further to record.
		return nil
	}

	// Liquidation wipes the whole margin: the position's final realized
	// loss is exactly everything that was ever put in. Back out fees and
	// funding to recover position-level pnl, then take the delta as the
	// trade-level pnl.
	newPnlWithFees := fpmath.Neg(fpmath.Add(pos.InitialMargin, pos.NetTransfers))
	feesAfter := fpmath.Add(pos.FeesPaid, ev.Fee)
	newPnl := fpmath.Sub(fpmath.Add(newPnlWithFees, feesAfter), pos.NetFunding)
	tradePnl := fpmath.Sub(newPnl, pos.Pnl)

	e.save(&entity.Trade{
		ID:              keys.Trade(ev.TxHash, ev.LogIndex),
		Market:          ev.Market,
		Asset:           pos.Asset,
		MarketKey:       pos.MarketKey,
		Account:         pos.Account,
		AbstractAccount: ev.Account,
		AccountType:     pos.AccountType,
		PositionID:      pos.ID,
		Size:            fpmath.Zero(),
		PositionSize:    fpmath.Zero(),
		Price:           ev.LastPrice,
		Margin:          fpmath.Zero(),
		Pnl:             tradePnl,
		FeesPaid:        ev.Fee,
		KeeperFeesPaid:  fpmath.Zero(),
		FundingAccrued:  accrued,
		OrderType:       entity.OrderTypeLiquidation,
		PositionClosed:  true,
		Timestamp:       ev.Timestamp,
		BlockNumber:     ev.BlockNumber,
		TxHash:          ev.TxHash,
	})

	pos.Pnl = newPnl
	stat.Pnl = fpmath.Add(stat.Pnl, tradePnl)
	return nil
}

// applyTrade handles a size-changing event: classifies it as close, flip,
// increase, or decrease, computes the trade PnL and average entry price
// accordingly, records the Trade, and rolls volume into the cumulative and
// aggregate stats.
func (e *Engine) applyTrade(ctx context.Context, ev *event.PositionModified, pos *entity.Position, stat *entity.FuturesStat, accountType entity.AccountType, accrued *big.Int) error {
	oldSize := pos.Size
	newSize := ev.Size
	delta := ev.TradeSize
	price := ev.LastPrice

	trade := &entity.Trade{
		ID:              keys.Trade(ev.TxHash, ev.LogIndex),
		Market:          ev.Market,
		Asset:           pos.Asset,
		MarketKey:       pos.MarketKey,
		Account:         pos.Account,
		AbstractAccount: ev.Account,
		AccountType:     accountType,
		PositionID:      pos.ID,
		Size:            delta,
		PositionSize:    newSize,
		Price:           price,
		Margin:          fpmath.Add(ev.Margin, ev.Fee),
		Pnl:             fpmath.Zero(),
		FeesPaid:        ev.Fee,
		KeeperFeesPaid:  fpmath.Zero(),
		FundingAccrued:  accrued,
		OrderType:       entity.OrderTypeMarket,
		Timestamp:       ev.Timestamp,
		BlockNumber:     ev.BlockNumber,
		TxHash:          ev.TxHash,
	}

	pnl := fpmath.Zero()
	switch {
	case fpmath.IsZero(newSize):
		// Full close realizes against the whole previous size.
		pnl = fpmath.Mul(fpmath.Sub(price, pos.AvgEntryPrice), oldSize)
		pos.IsOpen = false
		pos.ExitPrice = price
		pos.CloseTimestamp = ev.Timestamp
		trade.PositionClosed = true

	case oldSize.Sign() != 0 && newSize.Sign() != oldSize.Sign():
		// Side flip: realize the old side in full, re-enter at last price.
		pnl = fpmath.Mul(fpmath.Sub(price, pos.AvgEntryPrice), oldSize)
		pos.AvgEntryPrice = price
		pos.EntryPrice = price

	case fpmath.Abs(newSize).Cmp(fpmath.Abs(oldSize)) > 0:
		// Same-direction increase: no realization, re-weight the entry.
		notional := fpmath.Add(
			fpmath.Mul(fpmath.Abs(oldSize), pos.AvgEntryPrice),
			fpmath.Mul(fpmath.Abs(delta), price),
		)
		pos.AvgEntryPrice = fpmath.Div(notional, fpmath.Abs(newSize))

	default:
		// Same-direction decrease: realize the reduced portion only.
		closed := fpmath.Abs(delta)
		if newSize.Sign() < 0 {
			closed = fpmath.Neg(closed)
		}
		pnl = fpmath.Mul(fpmath.Sub(price, pos.AvgEntryPrice), closed)
	}

	if !fpmath.IsZero(pnl) {
		trade.Pnl = pnl
		pos.Pnl = fpmath.Add(pos.Pnl, pnl)
		stat.Pnl = fpmath.Add(stat.Pnl, pnl)
	}

	volume := fpmath.Abs(fpmath.Mul(delta, price))

	cum, err := e.getOrCreateCumulativeStat(ctx, entity.CumulativeStatGlobalKey)
	if err != nil {
		return err
	}
	bumpCumulative(cum, volume)
	e.save(cum)

	if mkt, ok, err := e.loadMarket(ctx, ev.Market); err != nil {
		return err
	} else if ok {
		marketCum, err := e.getOrCreateCumulativeStat(ctx, mkt.MarketKey)
		if err != nil {
			return err
		}
		bumpCumulative(marketCum, volume)
		e.save(marketCum)

		if err := e.updateAggregateStats(ctx, accountType, mkt.Asset, ev.Timestamp, 1, volume, ev.Fee, fpmath.Zero()); err != nil {
			return err
		}
	}

	stat.TotalTrades++
	stat.TotalVolume = fpmath.Add(stat.TotalVolume, volume)
	if accountType == entity.AccountSmartMargin {
		stat.SmartMarginVolume = fpmath.Add(stat.SmartMarginVolume, volume)
	}

	pos.TradeCount++
	pos.TotalVolume = fpmath.Add(pos.TotalVolume, volume)

	e.save(trade)
	if e.metrics != nil {
		e.metrics.TradesRecorded.Inc()
	}
	return nil
}

func bumpCumulative(cum *entity.FuturesCumulativeStat, volume *big.Int) {
	cum.TotalTrades++
	cum.TotalVolume = fpmath.Add(cum.TotalVolume, volume)
	cum.AverageTradeSize = new(big.Int).Quo(cum.TotalVolume, big.NewInt(cum.TotalTrades))
}
