package engine

import (
	"context"
	"fmt"

	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/event"
	"github.com/defigods/futures-indexer/internal/keys"
)

// fundingPeriods are the coarse buckets tracked by the funding-rate period
// rows.
var fundingPeriods = []entity.PeriodType{
	entity.PeriodHourly,
	entity.PeriodDaily,
	entity.PeriodWeekly,
}

// handleFundingRecomputed appends the funding checkpoint and refreshes the
// per-bucket "latest rate" rows. A period row always reflects the most
// recent rate observed within its bucket, not an average.
func (e *Engine) handleFundingRecomputed(ctx context.Context, ev *event.FundingRecomputed) error {
	if ev.Index < 0 {
		return fmt.Errorf("funding index %d cannot exist", ev.Index)
	}

	asset := ""
	if mkt, ok, err := e.loadMarket(ctx, ev.Market); err != nil {
		return err
	} else if ok {
		asset = mkt.Asset
	}

	e.save(&entity.FundingRateUpdate{
		ID:           keys.FundingRateUpdate(ev.Market, ev.Index),
		Market:       ev.Market,
		Asset:        asset,
		FundingIndex: ev.Index,
		Funding:      ev.Funding,
		FundingRate:  ev.FundingRate,
		Timestamp:    ev.Timestamp,
	})

	if asset == "" {
		// Unknown market: no asset to bucket the period rows under.
		return nil
	}

	for _, period := range fundingPeriods {
		bucket := keys.TimeID(ev.Timestamp, period.Seconds())
		key := keys.FundingRatePeriod(asset, period.String(), bucket)

		ent, ok, err := e.load(ctx, entity.TypeFundingRatePeriod, key)
		if err != nil {
			return err
		}
		if ok {
			frp := ent.(*entity.FundingRatePeriod)
			frp.FundingRate = ev.FundingRate
			e.save(frp)
			continue
		}
		e.save(&entity.FundingRatePeriod{
			ID:          key,
			Asset:       asset,
			Period:      period,
			Timestamp:   bucket,
			FundingRate: ev.FundingRate,
		})
	}
	return nil
}

func (e *Engine) loadFundingRateUpdate(ctx context.Context, market string, index int64) (*entity.FundingRateUpdate, bool, error) {
	ent, ok, err := e.load(ctx, entity.TypeFundingRateUpdate, keys.FundingRateUpdate(market, index))
	if err != nil || !ok {
		return nil, false, err
	}
	return ent.(*entity.FundingRateUpdate), true, nil
}
