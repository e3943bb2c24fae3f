// Package engine derives the trading ledger from the ordered on-chain event
// stream. It is a single-threaded, append-only stream processor: each event
// is handled to completion (all loads, computations, and upserts) before the
// next is delivered, and every state transition must be correct using only
// the entities visible at that point in the stream.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/defigods/futures-indexer/internal/entity"
	"github.com/defigods/futures-indexer/internal/event"
	"github.com/defigods/futures-indexer/internal/observability"
	"github.com/defigods/futures-indexer/internal/store"
)

// MarketRegistrar is notified when a qualifying MarketAdded event requires
// the ingestion layer to start watching a new market address.
type MarketRegistrar interface {
	RegisterMarket(market string)
}

// DefaultTrackingCode is the platform tracking code whose keeper-fee revenue
// is attributed to the platform-fee aggregate column.
const DefaultTrackingCode = "KWENTA"

// ErrFlush marks a store commit failure. The event itself was valid; the
// caller should leave it unacked so the broker redelivers it.
var ErrFlush = errors.New("store flush failed")

// marketKeyV2Suffix marks v2 market keys; markets carrying it are
// dynamically registered as event sources.
const marketKeyV2Suffix = "PERP"

type bufKey struct {
	typ entity.Type
	key string
}

// Engine processes one event at a time. Writes are buffered per event and
// flushed only when the handler completes, so a skipped malformed event
// never leaves partial state behind.
type Engine struct {
	store     store.Store
	log       zerolog.Logger
	metrics   *observability.Metrics
	registrar MarketRegistrar

	trackingCode string
	aggPeriods   []int64

	buf  map[bufKey]entity.Entity
	dels map[bufKey]bool
}

// Option configures an Engine.
type Option func(*Engine)

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithRegistrar(r MarketRegistrar) Option {
	return func(e *Engine) { e.registrar = r }
}

func WithTrackingCode(code string) Option {
	return func(e *Engine) { e.trackingCode = code }
}

// WithAggregatePeriods overrides the bucket resolutions used for the
// time-bucketed rollups.
func WithAggregatePeriods(periods []int64) Option {
	return func(e *Engine) { e.aggPeriods = periods }
}

func New(s store.Store, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:        s,
		log:          log,
		trackingCode: DefaultTrackingCode,
		aggPeriods:   []int64{3600, 86400},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process handles one event to completion. On handler failure nothing is
// persisted for the event; the error is returned so the caller can record
// the skip. Store failures are wrapped in ErrFlush so the caller can tell
// a redeliverable fault from a permanently skipped event. A redelivery of
// an already-applied event is a silent no-op.
func (e *Engine) Process(ctx context.Context, evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()
	dedupKey := evt.IdempotencyKey()

	if _, seen, err := e.store.Load(ctx, entity.TypeProcessedEvent, dedupKey); err != nil {
		return fmt.Errorf("load processed marker %s: %w: %w", dedupKey, ErrFlush, err)
	} else if seen {
		if e.metrics != nil {
			e.metrics.EventsDuplicate.WithLabelValues(eventType).Inc()
		}
		e.log.Debug().
			Str("event_type", eventType).
			Str("idempotency_key", dedupKey).
			Msg("duplicate delivery ignored")
		return nil
	}

	e.buf = make(map[bufKey]entity.Entity)
	e.dels = make(map[bufKey]bool)

	if err := e.dispatch(ctx, evt); err != nil {
		e.buf, e.dels = nil, nil
		if e.metrics != nil {
			e.metrics.EventsSkipped.WithLabelValues(eventType).Inc()
		}
		e.log.Error().
			Err(err).
			Str("event_type", eventType).
			Str("idempotency_key", evt.IdempotencyKey()).
			Msg("event skipped")
		return err
	}

	// The marker commits in the same batch as the event's writes, so an
	// applied event is always marked and a failed flush marks nothing.
	e.save(&entity.ProcessedEvent{
		ID:          dedupKey,
		EventType:   eventType,
		BlockNumber: evt.SourceSequence(),
	})

	if err := e.flush(ctx); err != nil {
		e.buf, e.dels = nil, nil
		return fmt.Errorf("flush %s %s: %w: %w", eventType, dedupKey, ErrFlush, err)
	}
	e.buf, e.dels = nil, nil

	if e.metrics != nil {
		e.metrics.EventsApplied.WithLabelValues(eventType).Inc()
		e.metrics.HandlerDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, evt event.Event) error {
	switch ev := evt.(type) {
	case *event.MarketAdded:
		return e.handleMarketAdded(ctx, ev)
	case *event.MarketRemoved:
		return e.handleMarketRemoved(ctx, ev)
	case *event.PositionModified:
		return e.handlePositionModified(ctx, ev)
	case *event.PositionLiquidated:
		return e.handlePositionLiquidated(ctx, ev)
	case *event.MarginTransferred:
		return e.handleMarginTransferred(ctx, ev)
	case *event.FundingRecomputed:
		return e.handleFundingRecomputed(ctx, ev)
	case *event.DelayedOrderSubmitted:
		return e.handleDelayedOrderSubmitted(ctx, ev)
	case *event.DelayedOrderRemoved:
		return e.handleDelayedOrderRemoved(ctx, ev)
	case *event.SmartMarginAccountCreated:
		return e.handleSmartMarginAccountCreated(ctx, ev)
	case *event.ConditionalOrderPlaced:
		return e.handleConditionalOrderPlaced(ctx, ev)
	default:
		return fmt.Errorf("unknown event type: %T", evt)
	}
}

// load reads through the per-event buffer first so a handler sees its own
// uncommitted writes, then falls back to the store.
func (e *Engine) load(ctx context.Context, typ entity.Type, key string) (entity.Entity, bool, error) {
	bk := bufKey{typ, key}
	if e.dels[bk] {
		return nil, false, nil
	}
	if ent, ok := e.buf[bk]; ok {
		return ent, true, nil
	}
	return e.store.Load(ctx, typ, key)
}

// save buffers an upsert for the current event.
func (e *Engine) save(ent entity.Entity) {
	bk := bufKey{ent.EntityType(), ent.Key()}
	delete(e.dels, bk)
	e.buf[bk] = ent
}

// remove buffers a delete for the current event.
func (e *Engine) remove(typ entity.Type, key string) {
	bk := bufKey{typ, key}
	delete(e.buf, bk)
	e.dels[bk] = true
}

// flush commits buffered writes as one atomic batch, in deterministic key
// order. A mid-batch store failure persists nothing for the event.
func (e *Engine) flush(ctx context.Context) error {
	ordered := make([]bufKey, 0, len(e.buf))
	for bk := range e.buf {
		ordered = append(ordered, bk)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].typ != ordered[j].typ {
			return ordered[i].typ < ordered[j].typ
		}
		return ordered[i].key < ordered[j].key
	})
	upserts := make([]entity.Entity, len(ordered))
	for i, bk := range ordered {
		upserts[i] = e.buf[bk]
	}

	deleted := make([]bufKey, 0, len(e.dels))
	for bk := range e.dels {
		deleted = append(deleted, bk)
	}
	sort.Slice(deleted, func(i, j int) bool {
		if deleted[i].typ != deleted[j].typ {
			return deleted[i].typ < deleted[j].typ
		}
		return deleted[i].key < deleted[j].key
	})
	deletes := make([]store.Ref, len(deleted))
	for i, bk := range deleted {
		deletes[i] = store.Ref{Type: bk.typ, Key: bk.key}
	}

	if err := e.store.Apply(ctx, upserts, deletes); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.StoreUpserts.Add(float64(len(upserts)))
	}
	return nil
}
