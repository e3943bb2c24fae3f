// Package keys builds the deterministic composite keys used to address
// entities in the store. Key layouts are load-bearing: the trade handler
// looks up margin transfers and the order/liquidation handlers look up
// trades by reconstructing the same keys from adjacent log positions.
package keys

import (
	"fmt"
	"strconv"
)

// Position is "<market>-<positionID>".
func Position(market string, positionID int64) string {
	return market + "-" + strconv.FormatInt(positionID, 10)
}

// Trade is "<txHash>-<logIndex>".
func Trade(txHash string, logIndex int64) string {
	return txHash + "-" + strconv.FormatInt(logIndex, 10)
}

// MarginTransfer is "<market>-<txHash>-<logIndex>". The position-modified
// handler probes this key at logIndex-1 to classify a zero-size event.
func MarginTransfer(market, txHash string, logIndex int64) string {
	return market + "-" + txHash + "-" + strconv.FormatInt(logIndex, 10)
}

// MarginAccount is "<account>-<market>".
func MarginAccount(account, market string) string {
	return account + "-" + market
}

// AggregateStat is "<bucketStart>-<period>-<asset>". An empty asset
// addresses the all-markets row for the bucket.
func AggregateStat(bucketStart, period int64, asset string) string {
	return fmt.Sprintf("%d-%d-%s", bucketStart, period, asset)
}

// FundingRateUpdate is "<market>-<fundingIndex>".
func FundingRateUpdate(market string, fundingIndex int64) string {
	return market + "-" + strconv.FormatInt(fundingIndex, 10)
}

// FundingRatePeriod is "<asset>-<periodType>-<bucketStart>".
func FundingRatePeriod(asset, periodType string, bucketStart int64) string {
	return asset + "-" + periodType + "-" + strconv.FormatInt(bucketStart, 10)
}

// Order is "D-<asset>-<account>-<targetRoundID>".
func Order(asset, account string, targetRoundID int64) string {
	return "D-" + asset + "-" + account + "-" + strconv.FormatInt(targetRoundID, 10)
}

// FundingPayment is "<txHash>-<logIndex>-<account>".
func FundingPayment(txHash string, logIndex int64, account string) string {
	return txHash + "-" + strconv.FormatInt(logIndex, 10) + "-" + account
}

// TimeID truncates ts to the start of its period bucket:
// TimeID(ts, p) <= ts < TimeID(ts, p) + p.
func TimeID(ts, period int64) int64 {
	return ts - ts%period
}
