package scorer

import (
	"fmt"
	"strings"

	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

// ReasonCode is the categorical reason a transaction was queued for review. The numeric values
// are part of the scorer wire contract and must never be reordered.
type ReasonCode int

const (
	AmountExceedsLimit ReasonCode = 0
	GasFee             ReasonCode = 1
	TimeLimit          ReasonCode = 2
)

var reasonLabels = map[ReasonCode]string{
	AmountExceedsLimit: "Amount exceeds limit",
	GasFee:             "Gas fee",
	TimeLimit:          "Time limit",
}

var reasonsByName = map[string]ReasonCode{
	"amount exceeds limit": AmountExceedsLimit,
	"amountexceedslimit":   AmountExceedsLimit,
	"gas fee":              GasFee,
	"gasfee":               GasFee,
	"time limit":           TimeLimit,
	"timelimit":            TimeLimit,
}

// ParseReason maps a reason stored on the contract to its code. Both the human label
// ("Gas fee") and the identifier ("GasFee") are accepted, case-insensitively.
func ParseReason(s string) (ReasonCode, error) {
	code, ok := reasonsByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown reason code %q", relay.ErrMalformedInput, s)
	}
	return code, nil
}

// String returns the label the scorer was trained with.
func (c ReasonCode) String() string {
	if label, ok := reasonLabels[c]; ok {
		return label
	}
	return fmt.Sprintf("ReasonCode(%d)", int(c))
}
