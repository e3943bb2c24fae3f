package engine

import (
	"context"

	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/event"
)

// resolveAccount maps a raw transacting address to its logical account. A
// known smart-margin proxy resolves to its registered owner; anything else
// is an isolated-margin interaction by the address itself. Resolution is
// re-derived on every event since proxy registration can occur at any point
// in the stream.
func (e *Engine) resolveAccount(ctx context.Context, addr string) (string, entity.AccountType, error) {
	ent, ok, err := e.load(ctx, entity.TypeSmartMarginAccount, addr)
	if err != nil {
		return "", entity.AccountIsolatedMargin, err
	}
	if ok {
		sm := ent.(*entity.SmartMarginAccount)
		return sm.Owner, entity.AccountSmartMargin, nil
	}
	return addr, entity.AccountIsolatedMargin, nil
}

func (e *Engine) handleSmartMarginAccountCreated(ctx context.Context, ev *event.SmartMarginAccountCreated) error {
	e.save(&entity.SmartMarginAccount{
		ID:        ev.Proxy,
		Owner:     ev.Owner,
		Timestamp: ev.Timestamp,
	})
	return nil
}

// handleConditionalOrderPlaced stores the order-type flag a smart-margin
// conditional order leaves behind; the next delayed-order fill for the
// proxy prefers it over the order's own type and clears it.
func (e *Engine) handleConditionalOrderPlaced(ctx context.Context, ev *event.ConditionalOrderPlaced) error {
	ent, ok, err := e.load(ctx, entity.TypeSmartMarginAccount, ev.Proxy)
	if err != nil {
		return err
	}
	if !ok {
		e.log.Warn().Str("proxy", ev.Proxy).Msg("conditional order for unknown smart margin account")
		return nil
	}
	sm := ent.(*entity.SmartMarginAccount)

	var ot entity.OrderType
	switch ev.OrderType {
	case "StopMarket":
		ot = entity.OrderTypeStopMarket
	default:
		ot = entity.OrderTypeLimit
	}
	sm.PendingOrderType = &ot
	e.save(sm)
	return nil
}
