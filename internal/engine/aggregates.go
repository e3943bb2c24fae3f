package engine

import (
	"context"
	"math/big"

	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/fpmath"
	"github.com/defigods/futures-indexer/internal/keys"
)

// updateAggregateStats folds one contribution into the time-bucketed
// rollups: for every configured resolution it upserts the per-asset row and
// the all-markets row (empty asset). Smart-margin interactions additionally
// accumulate the combined fee total into FeesCrossMarginAccounts.
func (e *Engine) updateAggregateStats(
	ctx context.Context,
	accountType entity.AccountType,
	asset string,
	timestamp int64,
	trades int64,
	volume, feesProtocol, feesPlatform *big.Int,
) error {
	for _, period := range e.aggPeriods {
		bucket := keys.TimeID(timestamp, period)
		for _, a := range [2]string{asset, ""} {
			agg, err := e.getOrCreateAggregateStat(ctx, bucket, period, a)
			if err != nil {
				return err
			}
			agg.Trades += trades
			agg.Volume = fpmath.Add(agg.Volume, volume)
			agg.FeesSynthetix = fpmath.Add(agg.FeesSynthetix, feesProtocol)
			agg.FeesKwenta = fpmath.Add(agg.FeesKwenta, feesPlatform)
			if accountType == entity.AccountSmartMargin {
				agg.FeesCrossMarginAccounts = fpmath.Add(agg.FeesCrossMarginAccounts, fpmath.Add(feesProtocol, feesPlatform))
			}
			e.save(agg)
		}
	}
	return nil
}
