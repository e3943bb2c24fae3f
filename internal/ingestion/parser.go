package ingestion

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/defigods/futures-indexer/internal/event"
	"github.com/defigods/futures-indexer/internal/fpmath"
)

// chainPosWire is the on-chain position block shared by every payload.
type chainPosWire struct {
	BlockNumber int64  `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    int64  `json:"log_index"`
	Timestamp   int64  `json:"timestamp"`
}

func (w chainPosWire) pos() event.ChainPos {
	return event.ChainPos{
		BlockNumber: w.BlockNumber,
		TxHash:      w.TxHash,
		LogIndex:    w.LogIndex,
		Timestamp:   w.Timestamp,
	}
}

// ParseEvent decodes a raw NATS payload into a typed event based on its
// family. Both position-modified wire layouts collapse into one struct; the
// three-fee liquidation layout is summed into a single fee here so the
// engine never sees the difference.
func ParseEvent(raw RawEvent) (event.Event, error) {
	switch raw.Family {
	case FamilyMarketAdded:
		return parseMarketAdded(raw.Data)
	case FamilyMarketRemoved:
		return parseMarketRemoved(raw.Data)
	case FamilySmartMarginAccount:
		return parseSmartMarginAccount(raw.Data)
	case FamilyConditionalOrder:
		return parseConditionalOrder(raw.Data)
	case FamilyPositionModified, FamilyPositionModifiedV2:
		return parsePositionModified(raw.Data)
	case FamilyPositionLiquidated:
		return parsePositionLiquidated(raw.Data, false)
	case FamilyPositionLiquidatedV2:
		return parsePositionLiquidated(raw.Data, true)
	case FamilyMarginTransferred:
		return parseMarginTransferred(raw.Data)
	case FamilyFundingRecomputed:
		return parseFundingRecomputed(raw.Data)
	case FamilyOrderSubmitted:
		return parseOrderSubmitted(raw.Data)
	case FamilyOrderRemoved:
		return parseOrderRemoved(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event family %q", raw.Family)
	}
}

func parseMarketAdded(data []byte) (event.Event, error) {
	var w struct {
		chainPosWire
		Market    string `json:"market"`
		Asset     string `json:"asset"`
		MarketKey string `json:"market_key"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal market_added: %w", err)
	}
	return &event.MarketAdded{
		ChainPos:  w.pos(),
		Market:    w.Market,
		Asset:     w.Asset,
		MarketKey: w.MarketKey,
	}, nil
}

func parseMarketRemoved(data []byte) (event.Event, error) {
	var w struct {
		chainPosWire
		Market string `json:"market"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal market_removed: %w", err)
	}
	return &event.MarketRemoved{ChainPos: w.pos(), Market: w.Market}, nil
}

func parseSmartMarginAccount(data []byte) (event.Event, error) {
	var w struct {
		chainPosWire
		Proxy string `json:"proxy"`
		Owner string `json:"owner"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal smart_margin_account: %w", err)
	}
	return &event.SmartMarginAccountCreated{ChainPos: w.pos(), Proxy: w.Proxy, Owner: w.Owner}, nil
}

func parseConditionalOrder(data []byte) (event.Event, error) {
	var w struct {
		chainPosWire
		Proxy     string `json:"proxy"`
		Market    string `json:"market"`
		OrderType string `json:"order_type"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal conditional_order: %w", err)
	}
	return &event.ConditionalOrderPlaced{
		ChainPos:  w.pos(),
		Proxy:     w.Proxy,
		Market:    w.Market,
		OrderType: w.OrderType,
	}, nil
}

func parsePositionModified(data []byte) (event.Event, error) {
	var w struct {
		chainPosWire
		Market       string `json:"market"`
		Account      string `json:"account"`
		PositionID   int64  `json:"position_id"`
		Size         string `json:"size"`
		Margin       string `json:"margin"`
		LastPrice    string `json:"last_price"`
		TradeSize    string `json:"trade_size"`
		Fee          string `json:"fee"`
		FundingIndex int64  `json:"funding_index"`
		// Skew is present on the newer layout only; the ledger has no use
		// for it.
		Skew string `json:"skew"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal position_modified: %w", err)
	}
	ev := &event.PositionModified{
		ChainPos:     w.pos(),
		Market:       w.Market,
		Account:      w.Account,
		PositionID:   w.PositionID,
		FundingIndex: w.FundingIndex,
	}
	var err error
	if ev.Size, err = parseBig("size", w.Size); err != nil {
		return nil, err
	}
	if ev.Margin, err = parseBig("margin", w.Margin); err != nil {
		return nil, err
	}
	if ev.LastPrice, err = parseBig("last_price", w.LastPrice); err != nil {
		return nil, err
	}
	if ev.TradeSize, err = parseBig("trade_size", w.TradeSize); err != nil {
		return nil, err
	}
	if ev.Fee, err = parseBig("fee", w.Fee); err != nil {
		return nil, err
	}
	return ev, nil
}

func parsePositionLiquidated(data []byte, split bool) (event.Event, error) {
	var w struct {
		chainPosWire
		Market        string `json:"market"`
		Account       string `json:"account"`
		PositionID    int64  `json:"position_id"`
		Size          string `json:"size"`
		Fee           string `json:"fee"`
		FlaggerFee    string `json:"flagger_fee"`
		LiquidatorFee string `json:"liquidator_fee"`
		StakersFee    string `json:"stakers_fee"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal position_liquidated: %w", err)
	}
	ev := &event.PositionLiquidated{
		ChainPos:   w.pos(),
		Market:     w.Market,
		Account:    w.Account,
		PositionID: w.PositionID,
	}
	var err error
	if ev.Size, err = parseBig("size", w.Size); err != nil {
		return nil, err
	}
	if split {
		flagger, err := parseBig("flagger_fee", w.FlaggerFee)
		if err != nil {
			return nil, err
		}
		liquidator, err := parseBig("liquidator_fee", w.LiquidatorFee)
		if err != nil {
			return nil, err
		}
		stakers, err := parseBig("stakers_fee", w.StakersFee)
		if err != nil {
			return nil, err
		}
		ev.Fee = fpmath.Add(fpmath.Add(flagger, liquidator), stakers)
	} else {
		if ev.Fee, err = parseBig("fee", w.Fee); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

func parseMarginTransferred(data []byte) (event.Event, error) {
	var w struct {
		chainPosWire
		Market      string `json:"market"`
		Account     string `json:"account"`
		MarginDelta string `json:"margin_delta"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal margin_transferred: %w", err)
	}
	ev := &event.MarginTransferred{ChainPos: w.pos(), Market: w.Market, Account: w.Account}
	var err error
	if ev.MarginDelta, err = parseBig("margin_delta", w.MarginDelta); err != nil {
		return nil, err
	}
	return ev, nil
}

func parseFundingRecomputed(data []byte) (event.Event, error) {
	var w struct {
		chainPosWire
		Market      string `json:"market"`
		Index       int64  `json:"index"`
		Funding     string `json:"funding"`
		FundingRate string `json:"funding_rate"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal funding_recomputed: %w", err)
	}
	ev := &event.FundingRecomputed{ChainPos: w.pos(), Market: w.Market, Index: w.Index}
	var err error
	if ev.Funding, err = parseBig("funding", w.Funding); err != nil {
		return nil, err
	}
	if ev.FundingRate, err = parseBig("funding_rate", w.FundingRate); err != nil {
		return nil, err
	}
	return ev, nil
}

func parseOrderSubmitted(data []byte) (event.Event, error) {
	var w struct {
		chainPosWire
		Market        string `json:"market"`
		Account       string `json:"account"`
		SizeDelta     string `json:"size_delta"`
		TargetRoundID int64  `json:"target_round_id"`
		IsOffchain    bool   `json:"is_offchain"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal order_submitted: %w", err)
	}
	ev := &event.DelayedOrderSubmitted{
		ChainPos:      w.pos(),
		Market:        w.Market,
		Account:       w.Account,
		TargetRoundID: w.TargetRoundID,
		IsOffchain:    w.IsOffchain,
	}
	var err error
	if ev.SizeDelta, err = parseBig("size_delta", w.SizeDelta); err != nil {
		return nil, err
	}
	return ev, nil
}

func parseOrderRemoved(data []byte) (event.Event, error) {
	var w struct {
		chainPosWire
		Market        string `json:"market"`
		Account       string `json:"account"`
		TargetRoundID int64  `json:"target_round_id"`
		KeeperDeposit string `json:"keeper_deposit"`
		TrackingCode  string `json:"tracking_code"`
		TxSender      string `json:"tx_sender"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal order_removed: %w", err)
	}
	ev := &event.DelayedOrderRemoved{
		ChainPos:      w.pos(),
		Market:        w.Market,
		Account:       w.Account,
		TargetRoundID: w.TargetRoundID,
		TrackingCode:  w.TrackingCode,
		TxSender:      w.TxSender,
	}
	var err error
	if ev.KeeperDeposit, err = parseBig("keeper_deposit", w.KeeperDeposit); err != nil {
		return nil, err
	}
	return ev, nil
}

// parseBig decodes a base-10 integer string. Empty strings decode to zero;
// the upstream decoder omits fields that the contract did not emit.
func parseBig(field, s string) (*big.Int, error) {
	if s == "" {
		return fpmath.Zero(), nil
	}
	v, err := fpmath.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return v, nil
}
