package engine

import (
	"context"

	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/fpmath"
	"github.com/defigods/futures-indexer/internal/keys"
)

// The get-or-create accessors are pure: a miss returns a fully zeroed
// entity without persisting anything. Nothing reaches the store until the
// caller commits it with save.

// getOrCreateStat returns the lifetime per-trader rollup for an account.
// created reports whether the entity did not exist yet, so the caller can
// bump the global trader counter exactly once per account.
func (e *Engine) getOrCreateStat(ctx context.Context, account string) (stat *entity.FuturesStat, created bool, err error) {
	ent, ok, err := e.load(ctx, entity.TypeFuturesStat, account)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return ent.(*entity.FuturesStat), false, nil
	}
	return &entity.FuturesStat{
		ID:                account,
		Account:           account,
		FeesPaid:          fpmath.Zero(),
		Pnl:               fpmath.Zero(),
		PnlWithFeesPaid:   fpmath.Zero(),
		TotalVolume:       fpmath.Zero(),
		SmartMarginVolume: fpmath.Zero(),
	}, true, nil
}

// getOrCreateCumulativeStat returns the running-totals row for a key:
// entity.CumulativeStatGlobalKey for the global row, or a marketKey.
func (e *Engine) getOrCreateCumulativeStat(ctx context.Context, key string) (*entity.FuturesCumulativeStat, error) {
	ent, ok, err := e.load(ctx, entity.TypeCumulativeStat, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return ent.(*entity.FuturesCumulativeStat), nil
	}
	return &entity.FuturesCumulativeStat{
		ID:               key,
		TotalVolume:      fpmath.Zero(),
		AverageTradeSize: fpmath.Zero(),
	}, nil
}

// getOrCreateAggregateStat returns one time-bucket rollup row. bucketStart
// must already be truncated to the period.
func (e *Engine) getOrCreateAggregateStat(ctx context.Context, bucketStart, period int64, asset string) (*entity.FuturesAggregateStat, error) {
	key := keys.AggregateStat(bucketStart, period, asset)
	ent, ok, err := e.load(ctx, entity.TypeAggregateStat, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return ent.(*entity.FuturesAggregateStat), nil
	}
	return &entity.FuturesAggregateStat{
		ID:                      key,
		Period:                  period,
		Timestamp:               bucketStart,
		Asset:                   asset,
		Volume:                  fpmath.Zero(),
		FeesSynthetix:           fpmath.Zero(),
		FeesKwenta:              fpmath.Zero(),
		FeesCrossMarginAccounts: fpmath.Zero(),
	}, nil
}

// getOrCreateMarginAccount returns the per-account, per-market margin
// balance row.
func (e *Engine) getOrCreateMarginAccount(ctx context.Context, account, market, asset string) (*entity.MarginAccount, error) {
	key := keys.MarginAccount(account, market)
	ent, ok, err := e.load(ctx, entity.TypeMarginAccount, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return ent.(*entity.MarginAccount), nil
	}
	return &entity.MarginAccount{
		ID:          key,
		Account:     account,
		Market:      market,
		Asset:       asset,
		Margin:      fpmath.Zero(),
		Deposits:    fpmath.Zero(),
		Withdrawals: fpmath.Zero(),
	}, nil
}
