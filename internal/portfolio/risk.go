package portfolio

import "fmt"

// ViolationCode is a machine-readable identifier for a specific signal or
// order rejection, so callers can log, alert, or test on it without string
// matching.
type ViolationCode string

const (
	ViolationInvalidSignal       ViolationCode = "INVALID_SIGNAL"
	ViolationDuplicateSignal     ViolationCode = "DUPLICATE_SIGNAL"
	ViolationExistingPosition    ViolationCode = "EXISTING_POSITION"
	ViolationNoPosition          ViolationCode = "NO_POSITION"
	ViolationBelowMinOrderAmount ViolationCode = "BELOW_MIN_ORDER_AMOUNT"
	ViolationInsufficientCash    ViolationCode = "INSUFFICIENT_CASH"
	ViolationMaxPositionPct      ViolationCode = "MAX_POSITION_PCT"
	ViolationMaxTotalPositionPct ViolationCode = "MAX_TOTAL_POSITION_PCT"
)

// Violation describes a single reason a signal did not become an order.
type Violation struct {
	Code     ViolationCode
	Message  string
	Limit    float64
	Observed float64
}

func (v Violation) Error() string {
	return fmt.Sprintf("portfolio: rejected [%s]: %s (limit=%.4f, observed=%.4f)", v.Code, v.Message, v.Limit, v.Observed)
}
