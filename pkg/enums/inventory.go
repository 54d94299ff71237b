package enums

import "fmt"

// StockMovementReason labels an inventory log entry.
type StockMovementReason string

const (
	StockReasonSale       StockMovementReason = "sale"
	StockReasonAdjustment StockMovementReason = "adjustment"
	StockReasonReturn     StockMovementReason = "return"
	StockReasonRestock    StockMovementReason = "restock"
)

var validStockReasons = []StockMovementReason{
	StockReasonSale,
	StockReasonAdjustment,
	StockReasonReturn,
	StockReasonRestock,
}

// String implements fmt.Stringer.
func (r StockMovementReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StockMovementReason.
func (r StockMovementReason) IsValid() bool {
	for _, candidate := range validStockReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStockMovementReason converts raw input into a StockMovementReason.
func ParseStockMovementReason(value string) (StockMovementReason, error) {
	for _, candidate := range validStockReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement reason %q", value)
}
