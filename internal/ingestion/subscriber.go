// Package ingestion consumes decoded blockchain log events from NATS
// JetStream and feeds them, in order, to the engine. Each event family has
// its own subject. All of a market's families flow through one consumer,
// so events that correlate through logIndex adjacency within a transaction
// arrive in stream order; the watched set grows at runtime when new
// markets deploy.
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// StreamName is the single JetStream stream carrying every event family.
const StreamName = "FUTURES_EVENTS"

// Families of decoded log events, one NATS subject token each.
const (
	FamilyMarketAdded          = "market_added"
	FamilyMarketRemoved        = "market_removed"
	FamilySmartMarginAccount   = "smart_margin_account"
	FamilyConditionalOrder     = "conditional_order"
	FamilyPositionModified     = "position_modified"
	FamilyPositionModifiedV2   = "position_modified_v2"
	FamilyPositionLiquidated   = "position_liquidated"
	FamilyPositionLiquidatedV2 = "position_liquidated_v2"
	FamilyMarginTransferred    = "margin_transferred"
	FamilyFundingRecomputed    = "funding_recomputed"
	FamilyOrderSubmitted       = "order_submitted"
	FamilyOrderRemoved         = "order_removed"
)

// globalFamilies are consumed from the start; they are not scoped to a
// market address.
var globalFamilies = []string{
	FamilyMarketAdded,
	FamilyMarketRemoved,
	FamilySmartMarginAccount,
	FamilyConditionalOrder,
}

// marketFamilies are consumed per registered market address.
var marketFamilies = []string{
	FamilyPositionModified,
	FamilyPositionModifiedV2,
	FamilyPositionLiquidated,
	FamilyPositionLiquidatedV2,
	FamilyMarginTransferred,
	FamilyFundingRecomputed,
	FamilyOrderSubmitted,
	FamilyOrderRemoved,
}

// RawEvent is the parsed-but-untyped message from NATS, ready to be decoded
// into a typed event.Event before dispatch.
type RawEvent struct {
	DeliveryID string // for log correlation
	Family     string
	Subject    string
	Data       []byte
	Received   time.Time
	AckFunc    func()
	NakFunc    func()
}

// Subscriber owns the JetStream consumers and implements
// engine.MarketRegistrar so MarketAdded events can extend the watched set.
type Subscriber struct {
	js        jetstream.JetStream
	eventChan chan<- RawEvent
	log       zerolog.Logger

	mu        sync.Mutex
	ctx       context.Context
	consumers []jetstream.ConsumeContext
	markets   map[string]bool
}

func NewSubscriber(js jetstream.JetStream, eventChan chan<- RawEvent, log zerolog.Logger) *Subscriber {
	return &Subscriber{
		js:        js,
		eventChan: eventChan,
		log:       log,
		markets:   make(map[string]bool),
	}
}

// EnsureStream creates the event stream if it does not exist.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"futures.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	return nil
}

// Start subscribes the global families and the per-market families for
// every already-known market address.
func (s *Subscriber) Start(ctx context.Context, markets []string) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	globals := make([]string, len(globalFamilies))
	for i, family := range globalFamilies {
		globals[i] = "futures." + family + ".>"
	}
	if err := s.consume(ctx, "ledger-global", globals); err != nil {
		return err
	}
	for _, market := range markets {
		s.RegisterMarket(market)
	}
	return nil
}

// RegisterMarket starts consuming the market-scoped event families for a
// market address. Registering the same address twice is a no-op.
func (s *Subscriber) RegisterMarket(market string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.markets[market] || s.ctx == nil {
		return
	}
	s.markets[market] = true

	// One consumer per market covering every family. Splitting families
	// across consumers would let a liquidation or order-removed follow-up
	// overtake the position-modified event it correlates with.
	subjects := make([]string, len(marketFamilies))
	for i, family := range marketFamilies {
		subjects[i] = "futures." + family + "." + market
	}
	if err := s.consume(s.ctx, consumerName("market."+market), subjects); err != nil {
		s.log.Error().Err(err).Str("market", market).Msg("register market consumer failed")
		return
	}
	s.log.Info().Str("market", market).Msg("watching market")
}

func (s *Subscriber) consume(ctx context.Context, durable string, subjects []string) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:        durable,
		FilterSubjects: subjects,
		AckPolicy:      jetstream.AckExplicitPolicy,
		AckWait:        30 * time.Second,
		MaxDeliver:     5,
		DeliverPolicy:  jetstream.DeliverAllPolicy,
		// One message in flight at a time: a Nak'd message must be
		// redelivered before anything behind it is handed out.
		MaxAckPending: 1,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", durable, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		raw := RawEvent{
			DeliveryID: uuid.NewString(),
			Family:     familyFromSubject(msg.Subject()),
			Subject:    msg.Subject(),
			Data:       msg.Data(),
			Received:   time.Now(),
			AckFunc:    func() { msg.Ack() },
			NakFunc:    func() { msg.Nak() },
		}
		select {
		case s.eventChan <- raw:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", durable, err)
	}

	s.consumers = append(s.consumers, cc)
	s.log.Info().Str("consumer", durable).Strs("subjects", subjects).Msg("subscribed")
	return nil
}

// Stop drains all consumers.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cc := range s.consumers {
		cc.Stop()
	}
	s.consumers = nil
}

// consumerName derives a durable consumer name; JetStream durable names
// cannot contain dots or wildcard tokens.
func consumerName(suffix string) string {
	name := make([]byte, 0, len(suffix)+7)
	name = append(name, "ledger-"...)
	for i := 0; i < len(suffix); i++ {
		switch suffix[i] {
		case '.', '>', '*':
			name = append(name, '_')
		default:
			name = append(name, suffix[i])
		}
	}
	return string(name)
}

// familyFromSubject extracts the family token from
// "futures.<family>[.<market>]".
func familyFromSubject(subject string) string {
	parts := strings.SplitN(subject, ".", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
