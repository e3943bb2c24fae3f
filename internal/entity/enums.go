package entity

import "fmt"

// AccountType classifies how a trader interacted with a market: directly
// (isolated margin) or through a smart-margin proxy account.
type AccountType int32

const (
	AccountIsolatedMargin AccountType = iota
	AccountSmartMargin
)

func (a AccountType) String() string {
	switch a {
	case AccountIsolatedMargin:
		return "isolated_margin"
	case AccountSmartMargin:
		return "smart_margin"
	default:
		return "unknown"
	}
}

func (a AccountType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "isolated_margin":
		*a = AccountIsolatedMargin
	case "smart_margin":
		*a = AccountSmartMargin
	default:
		return fmt.Errorf("unknown account type %q", b)
	}
	return nil
}

// OrderStatus is the lifecycle state of a delayed/off-chain order.
type OrderStatus int32

const (
	OrderPending OrderStatus = iota
	OrderFilled
	OrderCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "Pending"
	case OrderFilled:
		return "Filled"
	case OrderCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *OrderStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Pending":
		*s = OrderPending
	case "Filled":
		*s = OrderFilled
	case "Cancelled":
		*s = OrderCancelled
	default:
		return fmt.Errorf("unknown order status %q", b)
	}
	return nil
}

// OrderType identifies what produced a trade or order.
type OrderType int32

const (
	OrderTypeMarket OrderType = iota
	OrderTypeDelayed
	OrderTypeDelayedOffchain
	OrderTypeLimit
	OrderTypeStopMarket
	OrderTypeLiquidation
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "Market"
	case OrderTypeDelayed:
		return "Delayed"
	case OrderTypeDelayedOffchain:
		return "DelayedOffchain"
	case OrderTypeLimit:
		return "Limit"
	case OrderTypeStopMarket:
		return "StopMarket"
	case OrderTypeLiquidation:
		return "Liquidation"
	default:
		return "Unknown"
	}
}

func (t OrderType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *OrderType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Market":
		*t = OrderTypeMarket
	case "Delayed":
		*t = OrderTypeDelayed
	case "DelayedOffchain":
		*t = OrderTypeDelayedOffchain
	case "Limit":
		*t = OrderTypeLimit
	case "StopMarket":
		*t = OrderTypeStopMarket
	case "Liquidation":
		*t = OrderTypeLiquidation
	default:
		return fmt.Errorf("unknown order type %q", b)
	}
	return nil
}

// PeriodType names the coarse funding-rate buckets.
type PeriodType int32

const (
	PeriodHourly PeriodType = iota
	PeriodDaily
	PeriodWeekly
)

func (p PeriodType) String() string {
	switch p {
	case PeriodHourly:
		return "Hourly"
	case PeriodDaily:
		return "Daily"
	case PeriodWeekly:
		return "Weekly"
	default:
		return "Unknown"
	}
}

// Seconds returns the bucket length for the period.
func (p PeriodType) Seconds() int64 {
	switch p {
	case PeriodHourly:
		return 3600
	case PeriodDaily:
		return 86400
	case PeriodWeekly:
		return 604800
	default:
		return 0
	}
}

func (p PeriodType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PeriodType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Hourly":
		*p = PeriodHourly
	case "Daily":
		*p = PeriodDaily
	case "Weekly":
		*p = PeriodWeekly
	default:
		return fmt.Errorf("unknown period type %q", b)
	}
	return nil
}
