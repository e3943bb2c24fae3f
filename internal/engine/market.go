package engine

import (
	"context"
	"strings"

	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/event"
)

func (e *Engine) handleMarketAdded(ctx context.Context, ev *event.MarketAdded) error {
	cum, err := e.getOrCreateCumulativeStat(ctx, ev.MarketKey)
	if err != nil {
		return err
	}
	e.save(cum)

	e.save(&entity.Market{
		ID:              ev.Market,
		Asset:           ev.Asset,
		MarketKey:       ev.MarketKey,
		CumulativeStats: cum.ID,
		Timestamp:       ev.Timestamp,
	})

	// v2 markets are added at runtime; extend the watched address set so
	// their position/funding/order events start flowing.
	if strings.HasSuffix(ev.MarketKey, marketKeyV2Suffix) && e.registrar != nil {
		e.registrar.RegisterMarket(ev.Market)
		if e.metrics != nil {
			e.metrics.MarketsWatched.Inc()
		}
	}

	e.log.Info().
		Str("market", ev.Market).
		Str("market_key", ev.MarketKey).
		Str("asset", ev.Asset).
		Msg("market added")
	return nil
}

func (e *Engine) handleMarketRemoved(ctx context.Context, ev *event.MarketRemoved) error {
	e.remove(entity.TypeMarket, ev.Market)
	e.log.Info().Str("market", ev.Market).Msg("market removed")
	return nil
}

// loadMarket returns the market entity, or ok=false when the market was
// never added (its asset and market key are then unknown).
func (e *Engine) loadMarket(ctx context.Context, market string) (*entity.Market, bool, error) {
	ent, ok, err := e.load(ctx, entity.TypeMarket, market)
	if err != nil || !ok {
		return nil, false, err
	}
	return ent.(*entity.Market), true, nil
}
