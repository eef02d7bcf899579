package scorer

import (
	"math/big"

	"github.com/cespare/xxhash/v2"

	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

const (
	// FeatureVersion identifies the feature vector layout below.
	FeatureVersion = "v1"
	// FeatureWidth is the number of slots the scorer model expects.
	FeatureWidth = 38

	addressHashModulo = 100_000_000
	secondsPerDay     = 86400
	secondsPerHour    = 3600
)

// Feature slots of the v1 layout. Slots from featurePadding up to FeatureWidth are always zero.
const (
	featureAddressHash = iota
	featureAmount
	featureReason
	featureHourOfDay
	featureDayOfWeek
	featureWeekend
	featurePadding
)

// Features is the versioned fixed-width vector sent along with the raw attributes.
type Features struct {
	Version string    `json:"version"`
	Values  []float64 `json:"values"`
}

// TimeFeatures splits a unix timestamp into hour of day, day of week and the weekend flag. Days
// are counted from the epoch, so day 0 is the epoch's weekday; days 5 and 6 are the weekend.
func TimeFeatures(timestamp uint64) (hour, day uint64, weekend bool) {
	hour = (timestamp % secondsPerDay) / secondsPerHour
	day = (timestamp / secondsPerDay) % 7
	return hour, day, day == 5 || day == 6
}

// BuildFeatures returns the v1 feature vector of the record.
func BuildFeatures(record relay.TransactionRecord, reason ReasonCode) Features {
	values := make([]float64, FeatureWidth)

	pair := record.Sender.Hex() + record.Recipient.Hex()
	values[featureAddressHash] = float64(xxhash.Sum64String(pair) % addressHashModulo)

	if record.Amount != nil {
		values[featureAmount], _ = new(big.Float).SetInt(record.Amount).Float64()
	}
	values[featureReason] = float64(reason)

	hour, day, weekend := TimeFeatures(record.Timestamp)
	values[featureHourOfDay] = float64(hour)
	values[featureDayOfWeek] = float64(day)
	if weekend {
		values[featureWeekend] = 1
	}

	return Features{Version: FeatureVersion, Values: values}
}
