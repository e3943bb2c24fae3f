package entity_test

import (
	"encoding/json"
	"testing"

	"github.com/defigods/futures-indexer/internal/entity"
)

func TestAccountType_JSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(entity.AccountSmartMargin)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"smart_margin"` {
		t.Errorf("marshal = %s", raw)
	}
	var got entity.AccountType
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != entity.AccountSmartMargin {
		t.Errorf("round trip = %v", got)
	}
}

func TestPeriodType_Seconds(t *testing.T) {
	cases := map[entity.PeriodType]int64{
		entity.PeriodHourly: 3600,
		entity.PeriodDaily:  86400,
		entity.PeriodWeekly: 604800,
	}
	for p, want := range cases {
		if got := p.Seconds(); got != want {
			t.Errorf("%s.Seconds() = %d, want %d", p, got, want)
		}
	}
}

func TestNew_CoversEveryType(t *testing.T) {
	types := []entity.Type{
		entity.TypeMarket,
		entity.TypePosition,
		entity.TypeTrade,
		entity.TypeMarginTransfer,
		entity.TypeMarginAccount,
		entity.TypeFuturesStat,
		entity.TypeCumulativeStat,
		entity.TypeAggregateStat,
		entity.TypeFundingRateUpdate,
		entity.TypeFundingRatePeriod,
		entity.TypeFundingPayment,
		entity.TypeFuturesOrder,
		entity.TypeSmartMarginAccount,
		entity.TypeProcessedEvent,
	}
	for _, typ := range types {
		e, ok := entity.New(typ)
		if !ok {
			t.Errorf("New(%s) not registered", typ)
			continue
		}
		if e.EntityType() != typ {
			t.Errorf("New(%s) returned %s", typ, e.EntityType())
		}
	}
	if _, ok := entity.New("bogus"); ok {
		t.Error("unknown type should not construct")
	}
}
