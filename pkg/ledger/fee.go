package ledger

import "math"

const (
	feeRate    = 0.02
	feeMinimum = 2.99
)

// ProcessingFee is max(amount*2%, 2.99) rounded to cents.
func ProcessingFee(amount float64) float64 {
	return math.Round(math.Max(amount*feeRate, feeMinimum)*100) / 100
}
