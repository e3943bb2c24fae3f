package engine

import (
	"context"

	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/event"
	"github.com/defigods/futures-indexer/internal/fpmath"
	"github.com/defigods/futures-indexer/internal/keys"
)

// handleMarginTransferred records the MarginTransfer entity the adjacent
// PositionModified event probes at logIndex-1, and keeps the per-account,
// per-market margin account in step.
func (e *Engine) handleMarginTransferred(ctx context.Context, ev *event.MarginTransferred) error {
	account, _, err := e.resolveAccount(ctx, ev.Account)
	if err != nil {
		return err
	}

	asset := ""
	if mkt, ok, err := e.loadMarket(ctx, ev.Market); err != nil {
		return err
	} else if ok {
		asset = mkt.Asset
	}

	e.save(&entity.MarginTransfer{
		ID:        keys.MarginTransfer(ev.Market, ev.TxHash, ev.LogIndex),
		Market:    ev.Market,
		Account:   account,
		Size:      ev.MarginDelta,
		Timestamp: ev.Timestamp,
		TxHash:    ev.TxHash,
	})

	ma, err := e.getOrCreateMarginAccount(ctx, account, ev.Market, asset)
	if err != nil {
		return err
	}
	ma.Margin = fpmath.Add(ma.Margin, ev.MarginDelta)
	if ev.MarginDelta.Sign() > 0 {
		ma.Deposits = fpmath.Add(ma.Deposits, ev.MarginDelta)
	} else {
		ma.Withdrawals = fpmath.Add(ma.Withdrawals, fpmath.Abs(ev.MarginDelta))
	}
	ma.Timestamp = ev.Timestamp
	e.save(ma)
	return nil
}
