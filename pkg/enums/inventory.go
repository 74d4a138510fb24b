package enums

import "fmt"

// InventoryChangeType classifies a stock mutation in the inventory log.
type InventoryChangeType string

const (
	InventoryChangeStockOut   InventoryChangeType = "STOCK_OUT"
	InventoryChangeAdjustment InventoryChangeType = "ADJUSTMENT"
	InventoryChangeReturn     InventoryChangeType = "RETURN"
)

var validInventoryChangeTypes = []InventoryChangeType{
	InventoryChangeStockOut,
	InventoryChangeAdjustment,
	InventoryChangeReturn,
}

// String implements fmt.Stringer.
func (c InventoryChangeType) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c InventoryChangeType) IsValid() bool {
	for _, candidate := range validInventoryChangeTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseInventoryChangeType converts raw input into an InventoryChangeType.
func ParseInventoryChangeType(value string) (InventoryChangeType, error) {
	for _, candidate := range validInventoryChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory change type %q", value)
}
