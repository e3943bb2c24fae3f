package engine

import (
	"context"

	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/event"
	"github.com/defigods/futures-indexer/internal/fpmath"
	"github.com/defigods/futures-indexer/internal/keys"
)

// handleDelayedOrderSubmitted creates or replaces the pending order for
// (asset, account, targetRound).
func (e *Engine) handleDelayedOrderSubmitted(ctx context.Context, ev *event.DelayedOrderSubmitted) error {
	account, _, err := e.resolveAccount(ctx, ev.Account)
	if err != nil {
		return err
	}

	mkt, ok, err := e.loadMarket(ctx, ev.Market)
	if err != nil {
		return err
	}
	if !ok {
		e.log.Warn().Str("market", ev.Market).Msg("delayed order for unknown market")
		return nil
	}

	orderType := entity.OrderTypeDelayed
	if ev.IsOffchain {
		orderType = entity.OrderTypeDelayedOffchain
	}

	e.save(&entity.FuturesOrder{
		ID:              keys.Order(mkt.Asset, account, ev.TargetRoundID),
		Market:          ev.Market,
		Asset:           mkt.Asset,
		Account:         account,
		AbstractAccount: ev.Account,
		Size:            ev.SizeDelta,
		TargetRoundID:   ev.TargetRoundID,
		OrderType:       orderType,
		Status:          entity.OrderPending,
		Timestamp:       ev.Timestamp,
	})
	return nil
}

// handleDelayedOrderRemoved terminates an order. A Trade at logIndex-1
// means the order filled: the trade inherits the order type and tracking
// code, and a keeper who is not the trader gets their deposit attributed as
// fees. No trade means the order was cancelled.
func (e *Engine) handleDelayedOrderRemoved(ctx context.Context, ev *event.DelayedOrderRemoved) error {
	account, accountType, err := e.resolveAccount(ctx, ev.Account)
	if err != nil {
		return err
	}

	mkt, ok, err := e.loadMarket(ctx, ev.Market)
	if err != nil {
		return err
	}
	if !ok {
		e.log.Warn().Str("market", ev.Market).Msg("delayed order removal for unknown market")
		return nil
	}

	ent, ok, err := e.load(ctx, entity.TypeFuturesOrder, keys.Order(mkt.Asset, account, ev.TargetRoundID))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	order := ent.(*entity.FuturesOrder)

	tradeEnt, ok, err := e.load(ctx, entity.TypeTrade, keys.Trade(ev.TxHash, ev.LogIndex-1))
	if err != nil {
		return err
	}
	if !ok {
		order.Status = entity.OrderCancelled
		e.save(order)
		return nil
	}
	trade := tradeEnt.(*entity.Trade)

	order.Status = entity.OrderFilled
	order.Keeper = ev.TxSender

	orderType := order.OrderType
	if accountType == entity.AccountSmartMargin {
		if smEnt, ok, err := e.load(ctx, entity.TypeSmartMarginAccount, ev.Account); err != nil {
			return err
		} else if ok {
			sm := smEnt.(*entity.SmartMarginAccount)
			if sm.PendingOrderType != nil {
				orderType = *sm.PendingOrderType
				sm.PendingOrderType = nil
				e.save(sm)
			}
		}
	}
	trade.OrderType = orderType
	trade.TrackingCode = ev.TrackingCode

	// Self-executed orders pay no keeper; otherwise the deposit is part of
	// what the trader paid for the fill.
	if ev.TxSender != order.Account && ev.KeeperDeposit.Sign() > 0 {
		trade.KeeperFeesPaid = fpmath.Add(trade.KeeperFeesPaid, ev.KeeperDeposit)
		trade.FeesPaid = fpmath.Add(trade.FeesPaid, ev.KeeperDeposit)

		if statEnt, ok, err := e.load(ctx, entity.TypeFuturesStat, account); err != nil {
			return err
		} else if ok {
			stat := statEnt.(*entity.FuturesStat)
			stat.FeesPaid = fpmath.Add(stat.FeesPaid, ev.KeeperDeposit)
			stat.PnlWithFeesPaid = fpmath.Sub(stat.Pnl, stat.FeesPaid)
			e.save(stat)
		}

		if posEnt, ok, err := e.load(ctx, entity.TypePosition, trade.PositionID); err != nil {
			return err
		} else if ok {
			pos := posEnt.(*entity.Position)
			pos.FeesPaid = fpmath.Add(pos.FeesPaid, ev.KeeperDeposit)
			pos.PnlWithFeesPaid = fpmath.Add(fpmath.Sub(pos.Pnl, pos.FeesPaid), pos.NetFunding)
			e.save(pos)
		}

		if ev.TrackingCode == e.trackingCode {
			if err := e.updateAggregateStats(ctx, accountType, mkt.Asset, ev.Timestamp, 0, fpmath.Zero(), fpmath.Zero(), ev.KeeperDeposit); err != nil {
				return err
			}
		}
	}

	e.save(trade)
	e.save(order)
	return nil
}
